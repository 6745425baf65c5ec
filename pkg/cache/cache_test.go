package cache

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/trackyard/trackyard/pkg/observability"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("NullCache.Get should always return a nil miss")
	}
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ = c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	if err := c.Set(ctx, "a", []byte("alpha"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set(ctx, "b", []byte("beta"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set(ctx, "old", []byte("gone"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(time.Millisecond)

	tests := []struct {
		key  string
		want string
		hit  bool
	}{
		{"a", "alpha", true},
		{"b", "beta", true},
		{"old", "", false},
		{"missing", "", false},
	}
	for _, tt := range tests {
		data, hit, err := c.Get(ctx, tt.key)
		if err != nil {
			t.Fatalf("Get(%q): %v", tt.key, err)
		}
		if hit != tt.hit || string(data) != tt.want {
			t.Errorf("Get(%q) = %q, %v, want %q, %v", tt.key, data, hit, tt.want, tt.hit)
		}
	}

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Delete(ctx, "a"); err != nil {
		t.Errorf("second Delete: %v", err)
	}

	n, err := c.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 1 {
		t.Errorf("Clear removed %d entries, want 1", n)
	}
	if _, hit, _ := c.Get(ctx, "b"); hit {
		t.Error("entry survived Clear")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	svg := ArtifactKeyOpts{Format: "svg", Scale: 2, Width: 800, Height: 600}
	json := svg
	json.Format = "json"

	sk := k.ScriptKey("abc", svg)
	if !strings.HasPrefix(sk, "script:") {
		t.Errorf("ScriptKey = %q", sk)
	}
	if sk == k.ScriptKey("abc", json) {
		t.Error("different formats should produce different keys")
	}
	if sk == k.ScriptKey("abd", svg) {
		t.Error("different scripts should produce different keys")
	}
	if k.SnapshotKey(1, svg) == k.SnapshotKey(2, svg) {
		t.Error("different revisions should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(nil, "depot:")
	key := scoped.SnapshotKey(3, ArtifactKeyOpts{Format: "svg"})
	if !strings.HasPrefix(key, "depot:snapshot:") {
		t.Errorf("SnapshotKey = %q, want depot:snapshot: prefix", key)
	}
	if key != "depot:"+NewDefaultKeyer().SnapshotKey(3, ArtifactKeyOpts{Format: "svg"}) {
		t.Error("scoped key should be prefix plus inner key")
	}
}

type countingHooks struct {
	observability.NoopCacheHooks
	hits, misses, sets int
	keyType            string
}

func (h *countingHooks) OnCacheHit(_ context.Context, kt string)  { h.hits++; h.keyType = kt }
func (h *countingHooks) OnCacheMiss(_ context.Context, kt string) { h.misses++; h.keyType = kt }
func (h *countingHooks) OnCacheSet(_ context.Context, kt string, _ int) {
	h.sets++
	h.keyType = kt
}

func TestObserved(t *testing.T) {
	hooks := &countingHooks{}
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	ctx := context.Background()
	fc, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := Observed(fc)
	if Observed(c) != c {
		t.Error("Observed should not wrap twice")
	}

	_, _, _ = c.Get(ctx, "snapshot:1")
	_ = c.Set(ctx, "snapshot:1", []byte("x"), 0)
	_, _, _ = c.Get(ctx, "snapshot:1")

	if hooks.hits != 1 || hooks.misses != 1 || hooks.sets != 1 {
		t.Errorf("hooks = %d hits, %d misses, %d sets", hooks.hits, hooks.misses, hooks.sets)
	}
	if hooks.keyType != "snapshot" {
		t.Errorf("keyType = %q", hooks.keyType)
	}
	n, err := c.(Clearer).Clear(ctx)
	if err != nil || n != 1 {
		t.Errorf("Clear = %d, %v", n, err)
	}
}

func TestNewRedisCacheBadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "http://localhost", "trackyard:")
	if err == nil {
		t.Fatal("NewRedisCache accepted a non-redis URL")
	}
}

func TestClassify(t *testing.T) {
	if classify(nil) != nil {
		t.Error("classify(nil) should be nil")
	}
	netErr := &net.OpError{Op: "dial", Err: errors.New("refused")}
	err := classify(netErr)
	if !IsRetryable(err) || !errors.Is(err, ErrNetwork) {
		t.Errorf("classify(net error) = %v, want retryable ErrNetwork", err)
	}
	plain := errors.New("WRONGTYPE")
	if classify(plain) != plain {
		t.Error("non-network errors pass through")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	retryDelay = time.Millisecond
	defer func() { retryDelay = 100 * time.Millisecond }()
	ctx := context.Background()

	calls := 0
	if err := RetryWithBackoff(ctx, func() error { calls++; return nil }); err != nil || calls != 1 {
		t.Errorf("success: err=%v calls=%d", err, calls)
	}

	plain := errors.New("boom")
	calls = 0
	if err := RetryWithBackoff(ctx, func() error { calls++; return plain }); err != plain || calls != 1 {
		t.Errorf("non-retryable: err=%v calls=%d", err, calls)
	}

	calls = 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("retry: err=%v calls=%d", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error { calls++; return Retryable(ErrNetwork) })
	if !errors.Is(err, ErrNetwork) || calls != 3 {
		t.Errorf("exhausted: err=%v calls=%d", err, calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}

func TestKeyType(t *testing.T) {
	tests := map[string]string{
		"snapshot:1":                  "snapshot",
		"script:abc":                  "script",
		"serve:depot:1234:snapshot:9": "snapshot",
		"plain":                       "unknown",
		":x":                          "unknown",
	}
	for key, want := range tests {
		if got := keyType(key); got != want {
			t.Errorf("keyType(%q) = %q, want %q", key, got, want)
		}
	}
}
