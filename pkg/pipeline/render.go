package pipeline

import (
	"context"
	"fmt"

	"github.com/trackyard/trackyard/pkg/scene"
)

// Render generates output artifacts in the requested formats.
func Render(ctx context.Context, snap *Snapshot, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, err := RenderFormat(ctx, snap, format, opts)
		if err != nil {
			return nil, err
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// RenderFormat serializes a snapshot in one format.
func RenderFormat(ctx context.Context, snap *Snapshot, format string, opts Options) ([]byte, error) {
	var data []byte
	var err error

	switch format {
	case FormatSVG:
		data = scene.RenderSVG(snap.Scene, Camera(snap.Scene, opts), buildSVGOptions(opts)...)
	case FormatJSON:
		var jopts []scene.JSONOption
		if opts.Editable {
			jopts = append(jopts, scene.WithPrimitives(Camera(snap.Scene, opts), true))
		}
		data, err = scene.RenderJSON(snap.Scene, opts.Tolerance, jopts...)
	case FormatDOT:
		data = []byte(snap.DOT)
	case FormatTopology:
		data, err = scene.RenderDOT(ctx, snap.DOT, opts.Pinned)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return data, nil
}

// Camera returns the viewport for opts. A zero scale fits the whole world.
func Camera(sc *scene.Scene, opts Options) scene.CameraSnapshot {
	cam := scene.NewCamera(1, opts.Width, opts.Height)
	if opts.Scale == 0 {
		cam.Fit(sc.Width, sc.Height)
	} else {
		cam.SetScale(opts.Scale)
	}
	cam.Pan(opts.OffsetX, opts.OffsetY)
	return cam.Snapshot()
}

func buildSVGOptions(opts Options) []scene.SVGOption {
	var svgOpts []scene.SVGOption
	if opts.Grid {
		svgOpts = append(svgOpts, scene.WithGrid())
	}
	if opts.Editable {
		svgOpts = append(svgOpts, scene.WithEditable())
	}
	if opts.ScriptName != "" {
		svgOpts = append(svgOpts, scene.WithTitle(opts.ScriptName))
	}
	return svgOpts
}
