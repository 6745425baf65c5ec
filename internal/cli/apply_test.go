package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const depotScript = "../../pkg/script/testdata/depot.toml"

// isolate keeps tests away from the user's config and cache.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("TRACKYARD_CONFIG", "")
	return dir
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"svg", []string{"svg"}},
		{"svg,json,dot", []string{"svg", "json", "dot"}},
		{" svg , topology ,", []string{"svg", "topology"}},
	}

	for _, tt := range tests {
		got := parseFormats(tt.input)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "scripts/depot.toml", "scripts/depot"},
		{"out/yard.svg", "depot.toml", "out/yard"},
		{"out/yard", "depot.toml", "out/yard"},
		{"out/yard.png", "depot.toml", "out/yard.png"},
	}

	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	artifacts := map[string][]byte{"svg": []byte("<svg/>"), "topology": []byte("<svg>topo</svg>")}

	paths, err := writeArtifacts(artifacts, []string{"svg", "topology"}, filepath.Join(dir, "out", "yard"), "depot.toml")
	if err != nil {
		t.Fatalf("writeArtifacts: %v", err)
	}
	want := []string{filepath.Join(dir, "out", "yard.svg"), filepath.Join(dir, "out", "yard.topology.svg")}
	if strings.Join(paths, "|") != strings.Join(want, "|") {
		t.Errorf("paths = %v, want %v", paths, want)
	}
	if data, _ := os.ReadFile(want[1]); string(data) != "<svg>topo</svg>" {
		t.Errorf("topology file = %q", data)
	}

	single := filepath.Join(dir, "exact.svg")
	if _, err := writeArtifacts(artifacts, []string{"svg"}, single, "depot.toml"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(single); err != nil {
		t.Errorf("single output not written: %v", err)
	}

	if _, err := writeArtifacts(artifacts, []string{"svg", "topology"}, "-", "depot.toml"); err == nil {
		t.Error("stdout with two formats should fail")
	}
}

func TestApplyCommand(t *testing.T) {
	dir := isolate(t)
	var logs bytes.Buffer
	c := New(&logs, LogInfo)
	root := c.RootCommand()
	out := filepath.Join(dir, "depot")
	root.SetArgs([]string{"apply", depotScript, "-f", "svg,dot", "-o", out, "--grid", "--no-cache"})

	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("apply: %v\n%s", err, logs.String())
	}

	svg, err := os.ReadFile(out + ".svg")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(svg), `class="grid"`) {
		t.Error("--grid was not applied")
	}
	dot, err := os.ReadFile(out + ".dot")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(dot), "graph G {") {
		t.Errorf("dot = %q", dot)
	}
	if !strings.Contains(logs.String(), "Applied depot") {
		t.Errorf("logs = %q", logs.String())
	}
}

func TestApplyCommandErrors(t *testing.T) {
	isolate(t)
	tests := []struct {
		name string
		args []string
	}{
		{"missing script", []string{"apply", "does-not-exist.toml"}},
		{"bad format", []string{"apply", depotScript, "-f", "png", "--no-cache"}},
		{"no args", []string{"apply"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := New(&bytes.Buffer{}, LogInfo).RootCommand()
			root.SetArgs(tt.args)
			root.SetErr(&bytes.Buffer{})
			if err := root.ExecuteContext(context.Background()); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestConfigFlag(t *testing.T) {
	dir := isolate(t)
	cfgPath := filepath.Join(dir, "trackyard.yaml")
	cfg := "cache:\n  backend: file\n  dir: " + filepath.Join(dir, "exports") + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	c := New(&bytes.Buffer{}, LogInfo)
	root := c.RootCommand()
	root.SetArgs([]string{"--config", cfgPath, "cache", "path"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got, _ := c.cacheDir(); got != filepath.Join(dir, "exports") {
		t.Errorf("cacheDir = %q", got)
	}
}
