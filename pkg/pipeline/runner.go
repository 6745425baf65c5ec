package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/trackyard/trackyard/pkg/cache"
	"github.com/trackyard/trackyard/pkg/network"
	"github.com/trackyard/trackyard/pkg/scene"
	"github.com/trackyard/trackyard/pkg/script"
)

// Runner encapsulates pipeline execution with caching.
// Both the CLI and the snapshot server use it to avoid duplicating caching
// logic.
//
// The Runner is stateless except for the cache and logger: it doesn't store
// pipeline results. Multiple goroutines can safely use the same Runner with
// different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	// TTL overrides cache.TTLArtifact for script artifacts when non-zero.
	TTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  cache.Observed(c),
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete replay → snapshot → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{
		ScriptHash: cache.Hash(opts.Script),
		Artifacts:  make(map[string][]byte),
	}

	if !opts.Refresh {
		if artifacts, ok := r.cached(ctx, func(format string) string {
			return r.Keyer.ScriptKey(result.ScriptHash, opts.ArtifactKeyOpts(format))
		}, opts.Formats); ok {
			result.Artifacts = artifacts
			result.CacheInfo.RenderHit = true
			r.Logger.Info("artifacts from cache", "script", opts.ScriptName, "formats", opts.Formats)
			return result, nil
		}
	}

	// Stage 1: Replay
	replayStart := time.Now()
	s, err := script.Parse(opts.Script)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	g, replay, err := r.Replay(ctx, s, opts)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	result.Graph, result.Replay = g, replay
	result.Stats.ReplayTime = time.Since(replayStart)
	result.Stats.Vertices = g.VertexCount()
	result.Stats.Tracks = g.TrackCount()
	result.Stats.Steps = len(replay.Steps)
	result.Stats.Rejected = replay.Rejected()

	r.Logger.Info("replayed script",
		"steps", result.Stats.Steps,
		"vertices", result.Stats.Vertices,
		"tracks", result.Stats.Tracks,
		"duration", result.Stats.ReplayTime)

	// Stage 2 and 3: Snapshot and render
	renderStart := time.Now()
	snap := TakeSnapshot(ctx, g, opts)
	result.Scene = snap.Scene
	result.Stats.Warnings = len(snap.Scene.Warnings)
	for _, w := range snap.Scene.Warnings {
		r.Logger.Warn(w)
	}
	artifacts, err := Render(ctx, snap, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	for format, data := range artifacts {
		key := r.Keyer.ScriptKey(result.ScriptHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, r.artifactTTL()); err != nil {
			r.Logger.Debug("cache write failed", "format", format, "err", err)
		}
	}
	result.Stats.RenderTime = time.Since(renderStart)

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Replay builds the script's world and replays every step into it.
func (r *Runner) Replay(ctx context.Context, s *script.Script, opts Options) (*network.Graph, *script.Result, error) {
	g, err := s.NewGraph()
	if err != nil {
		return nil, nil, err
	}
	ropts := []script.Option{
		script.WithLogger(r.Logger),
		script.WithStepHook(func(i int, sr script.StepResult) {
			r.Logger.Debug("step committed", "step", i+1, "name", sr.Name, "changes", sr.Changes.String())
			if opts.OnStep != nil {
				opts.OnStep(i, sr)
			}
		}),
	}
	if opts.StrictMoves {
		ropts = append(ropts, script.WithStrictMoves())
	}
	res, err := script.NewRunner(ropts...).Run(ctx, g, s)
	return g, res, err
}

// RenderSnapshot renders one format of a snapshot taken at revision,
// consulting the cache first. It reports whether the cache was hit.
func (r *Runner) RenderSnapshot(ctx context.Context, snap *Snapshot, revision uint64, format string, opts Options) ([]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	key := r.Keyer.SnapshotKey(revision, opts.ArtifactKeyOpts(format))
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		return data, true, nil
	}
	data, err := RenderFormat(ctx, snap, format, opts)
	if err != nil {
		return nil, false, err
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLSnapshot); err != nil {
		r.Logger.Debug("cache write failed", "format", format, "err", err)
	}
	return data, false, nil
}

// cached returns every format from the cache, or false if any is missing.
func (r *Runner) cached(ctx context.Context, key func(string) string, formats []string) (map[string][]byte, bool) {
	artifacts := make(map[string][]byte, len(formats))
	for _, format := range formats {
		data, hit, err := r.Cache.Get(ctx, key(format))
		if err != nil || !hit {
			return nil, false
		}
		artifacts[format] = data
	}
	return artifacts, true
}

func (r *Runner) artifactTTL() time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return cache.TTLArtifact
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// Snapshot is a copy of a network taken for rendering. It shares nothing
// with the graph it was taken from.
type Snapshot struct {
	Scene *scene.Scene
	DOT   string
}

// TakeSnapshot copies src into a scene and a DOT topology. Callers that share
// src between goroutines hold their lock for the duration of this call only.
func TakeSnapshot(ctx context.Context, src scene.Source, opts Options) *Snapshot {
	var fopts []scene.FactoryOption
	if opts.Assets != nil {
		fopts = append(fopts, scene.WithAssets(opts.Assets))
	}
	return &Snapshot{
		Scene: scene.NewFactory(fopts...).Build(ctx, src),
		DOT:   scene.ToDOT(src, scene.DOTOptions{Positions: opts.Pinned, Stops: true}),
	}
}
