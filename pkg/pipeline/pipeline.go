// Package pipeline provides the replay and export pipeline shared by the CLI
// commands and the snapshot server.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Replay: parse an edit-intent script and replay it into a fresh graph
//  2. Snapshot: copy the graph into a scene and a DOT topology
//  3. Render: serialize the snapshot in the requested formats
//
// Rendered artifacts are cached under the script content hash, so exporting
// an unchanged script skips the replay entirely.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Script:  data,
//	    Formats: []string{"svg", "dot"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/charmbracelet/log"

	"github.com/trackyard/trackyard/pkg/cache"
	"github.com/trackyard/trackyard/pkg/network"
	"github.com/trackyard/trackyard/pkg/scene"
	"github.com/trackyard/trackyard/pkg/script"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultWidth is the default viewport width in pixels.
	DefaultWidth = 1200

	// DefaultHeight is the default viewport height in pixels.
	DefaultHeight = 800

	// DefaultTolerance is the polyline flattening tolerance in meters.
	DefaultTolerance = 0.5
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatJSON = "json"
	FormatDOT  = "dot"
	// FormatTopology is the DOT topology laid out by Graphviz, as SVG.
	FormatTopology = "topology"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:      true,
	FormatJSON:     true,
	FormatDOT:      true,
	FormatTopology: true,
}

// Extension returns the file extension for a format.
func Extension(format string) string {
	if format == FormatTopology {
		return "topology.svg"
	}
	return format
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
type Options struct {
	// Script is the raw TOML edit-intent script.
	Script []byte `json:"-"`
	// ScriptName is used in log messages and the SVG title.
	ScriptName string `json:"script_name,omitempty"`
	Refresh    bool   `json:"refresh,omitempty"`

	// Replay options
	StrictMoves bool `json:"strict_moves,omitempty"`

	// Camera options. A zero Scale fits the whole world into the viewport.
	Scale   float64 `json:"scale,omitempty"`
	Width   int     `json:"width,omitempty"`
	Height  int     `json:"height,omitempty"`
	OffsetX float64 `json:"offset_x,omitempty"`
	OffsetY float64 `json:"offset_y,omitempty"`

	// Render options
	Formats   []string `json:"formats,omitempty"`
	Grid      bool     `json:"grid,omitempty"`
	Editable  bool     `json:"editable,omitempty"`
	Tolerance float64  `json:"tolerance,omitempty"`
	// Pinned lays the topology out at world positions instead of freely.
	Pinned bool `json:"pinned,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
	Assets fs.FS       `json:"-"`
	// OnStep is called after every committed replay step.
	OnStep func(i int, sr script.StepResult) `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Graph is the replayed network. It is nil when every artifact came
	// from the cache.
	Graph *network.Graph

	// Replay reports the committed steps and reference names.
	Replay *script.Result

	// Scene is the snapshot the artifacts were rendered from.
	Scene *scene.Scene

	// ScriptHash is the content hash of the script.
	ScriptHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Vertices   int
	Tracks     int
	Steps      int
	Rejected   int
	Warnings   int
	ReplayTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits.
type CacheInfo struct {
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: svg, json, dot, topology)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full pipeline. Calling it more than once has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.Script) == 0 {
		return fmt.Errorf("script is required")
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if o.Scale < 0 || o.Width < 0 || o.Height < 0 || o.Tolerance < 0 {
		return fmt.Errorf("camera and tolerance values must not be negative")
	}
	return ValidateFormats(o.Formats)
}

// ArtifactKeyOpts returns cache key options for one format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:    format,
		Scale:     o.Scale,
		Width:     o.Width,
		Height:    o.Height,
		OffsetX:   o.OffsetX,
		OffsetY:   o.OffsetY,
		Grid:      o.Grid,
		Editable:  o.Editable,
		Pinned:    o.Pinned,
		Tolerance: o.Tolerance,
	}
}
