package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trackyard/trackyard/pkg/pipeline"
	"github.com/trackyard/trackyard/pkg/script"
)

// applyOpts holds the command-line flags for the apply command.
type applyOpts struct {
	output   string // output file (single format) or base path
	formats  string // comma-separated; empty uses the config
	scale    float64
	width    int
	height   int
	offsetX  float64
	offsetY  float64
	grid     bool
	editable bool
	pinned   bool
	strict   bool
	noCache  bool
	refresh  bool
}

// applyCommand creates the apply command, which replays a script and
// writes its exports.
func (c *CLI) applyCommand() *cobra.Command {
	var opts applyOpts

	cmd := &cobra.Command{
		Use:   "apply SCRIPT",
		Short: "Replay an edit script and export the network",
		Long: `Replay an edit-intent script step by step and export the resulting network.

Each step is one transactional edit: it is validated as a whole and either
committed or rejected. Exports are cached by script content, so applying an
unchanged script again skips the replay.`,
		Example: `  trackyard apply depot.toml
  trackyard apply depot.toml -f svg,json,dot -o out/depot
  trackyard apply depot.toml -f topology --pinned`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runApply(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): svg, json, dot, topology (comma-separated)")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0, "meters per pixel (0 fits the world)")
	cmd.Flags().IntVar(&opts.width, "width", 0, "viewport width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", 0, "viewport height in pixels")
	cmd.Flags().Float64Var(&opts.offsetX, "x", 0, "viewport left edge in meters")
	cmd.Flags().Float64Var(&opts.offsetY, "y", 0, "viewport top edge in meters")
	cmd.Flags().BoolVar(&opts.grid, "grid", false, "draw segment boundaries")
	cmd.Flags().BoolVar(&opts.editable, "editable", false, "draw vertex handles and include primitives in JSON")
	cmd.Flags().BoolVar(&opts.pinned, "pinned", false, "lay the topology out at world positions")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail a step when a move is refused")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the export cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "replay even if exports are cached")

	return cmd
}

func (c *CLI) runApply(cmd *cobra.Command, path string, flags applyOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	opts := c.pipelineOptions()
	opts.Script = data
	opts.ScriptName = scriptName(path)
	opts.Refresh = flags.refresh
	opts.Pinned = flags.pinned
	if f := parseFormats(flags.formats); len(f) > 0 {
		opts.Formats = f
	}
	applyFlagOverrides(cmd, flags, &opts)

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Replaying "+opts.ScriptName)
	opts.OnStep = func(i int, sr script.StepResult) {
		spinner.SetMessage(fmt.Sprintf("Step %d %s", i+1, sr.Name))
	}
	spinner.Start()
	prog := newProgress(logger)
	result, err := runner.Execute(ctx, opts)
	spinner.Stop()
	if err != nil {
		if spinner.Cancelled() {
			return context.Canceled
		}
		return err
	}
	prog.done("Applied " + opts.ScriptName)

	paths, err := writeArtifacts(result.Artifacts, opts.Formats, flags.output, path)
	if err != nil {
		return err
	}
	if flags.output == "-" {
		for _, w := range warnings(result) {
			logger.Warn(w)
		}
		return nil
	}

	for _, w := range warnings(result) {
		printWarning("%s", w)
	}
	printStats(result.Stats, result.CacheInfo.RenderHit)
	printSuccess("Wrote %d file(s)", len(paths))
	for _, p := range paths {
		printFile(p)
	}
	printNextStep("Serve it", fmt.Sprintf("%s serve %s", appName, path))
	return nil
}

// applyFlagOverrides copies flags the user set explicitly over the
// configured values.
func applyFlagOverrides(cmd *cobra.Command, flags applyOpts, opts *pipeline.Options) {
	changed := cmd.Flags().Changed
	if changed("scale") {
		opts.Scale = flags.scale
	}
	if changed("width") {
		opts.Width = flags.width
	}
	if changed("height") {
		opts.Height = flags.height
	}
	if changed("x") {
		opts.OffsetX = flags.offsetX
	}
	if changed("y") {
		opts.OffsetY = flags.offsetY
	}
	if changed("grid") {
		opts.Grid = flags.grid
	}
	if changed("editable") {
		opts.Editable = flags.editable
	}
	if changed("strict") {
		opts.StrictMoves = flags.strict
	}
}

func warnings(r *pipeline.Result) []string {
	if r.Scene == nil {
		return nil
	}
	return r.Scene.Warnings
}

// writeArtifacts writes one file per format and returns their paths, in
// format order. A single format with an explicit output is written exactly
// there; "-" writes it to stdout.
func writeArtifacts(artifacts map[string][]byte, formats []string, output, input string) ([]string, error) {
	if output == "-" && len(formats) != 1 {
		return nil, fmt.Errorf("stdout output needs exactly one format, got %d", len(formats))
	}
	if len(formats) == 1 && output != "" {
		out, err := openOutput(output)
		if err != nil {
			return nil, err
		}
		defer out.Close()
		if _, err := out.Write(artifacts[formats[0]]); err != nil {
			return nil, err
		}
		return []string{output}, nil
	}

	base := basePath(output, input)
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	var paths []string
	for _, format := range formats {
		p := base + "." + pipeline.Extension(format)
		if err := os.WriteFile(p, artifacts[format], 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", format, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .json, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	return os.Create(path)
}
