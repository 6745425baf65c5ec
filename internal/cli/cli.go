// Package cli implements the trackyard command-line interface.
//
// Commands replay edit-intent scripts into a track network and export the
// result, show which world segments are occupied, or serve live snapshots
// over HTTP. Settings come from the config file (see pkg/config) and can be
// overridden per command with flags.
//
// # Commands
//
//   - apply: replay a script and write SVG, JSON, DOT or topology exports
//   - minimap: show segment occupancy in the terminal
//   - serve: hold the replayed network and serve snapshots over HTTP
//   - cache: manage the export cache
//   - completion: generate shell completion scripts
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to the pipeline and the server.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/trackyard/trackyard/pkg/buildinfo"
	"github.com/trackyard/trackyard/pkg/cache"
	"github.com/trackyard/trackyard/pkg/config"
	"github.com/trackyard/trackyard/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "trackyard"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	// Config is loaded before any subcommand runs.
	Config *config.Config

	configPath string
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Trackyard replays edit scripts into rail networks",
		Long:         `Trackyard builds rail track networks from edit-intent scripts, validates every edit transactionally, and exports the result as SVG, JSON or Graphviz topology.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $"+config.EnvConfigPath+", ./"+config.ConfigFileName+", ~/.config/"+appName+"/config.yaml)")

	root.AddCommand(c.applyCommand())
	root.AddCommand(c.minimapCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the explicit --config path or the first discovered file.
func (c *CLI) loadConfig() error {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if c.configPath != "" {
		cfg, path, err = config.LoadFromPath(c.configPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return err
	}
	if path != "" {
		c.Logger.Debug("loaded config", "path", path)
	}
	c.Config = cfg
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(ch, nil, c.Logger)
	r.TTL = c.Config.Cache.TTL.Duration()
	return r, nil
}

// newCache opens the configured backend. A file cache that cannot be
// created degrades to no caching; an unreachable Redis is an error.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Config.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, c.Config.Cache.RedisURL, c.Config.Cache.Namespace)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return rc, nil
	}
	dir, err := c.cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("file cache disabled", "dir", dir, "err", err)
		return cache.NewNullCache(), nil
	}
	return fc, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured directory or the XDG default.
func (c *CLI) cacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cacheDir()
}

// cacheDir returns the cache directory using XDG standard (~/.cache/trackyard/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// pipelineOptions seeds pipeline options from the configuration.
func (c *CLI) pipelineOptions() pipeline.Options {
	cfg := c.Config
	opts := pipeline.Options{
		StrictMoves: cfg.Rules.StrictMoves,
		Scale:       cfg.Camera.Scale,
		Width:       cfg.Camera.Width,
		Height:      cfg.Camera.Height,
		Formats:     append([]string(nil), cfg.Render.Formats...),
		Grid:        cfg.Render.Grid,
		Editable:    cfg.Render.Editable,
		Tolerance:   cfg.Render.Tolerance,
		Logger:      c.Logger,
	}
	if cfg.Render.Assets != "" {
		opts.Assets = os.DirFS(cfg.Render.Assets)
	}
	return opts
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	var formats []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			formats = append(formats, f)
		}
	}
	return formats
}

// scriptName derives a display name from a script path.
func scriptName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
