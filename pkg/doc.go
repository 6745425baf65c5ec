// Package pkg provides the core libraries for Trackyard, a rail track network
// editor core.
//
// # Overview
//
// A network is a graph of vertices (track ends and joints) and tracks
// (straight, curved or free-form) placed on a world of fixed-size segments.
// Edits never touch the network directly: they run against a copy-on-write
// view and are committed atomically, so a rejected edit leaves no trace.
//
//  1. [geometry] - Points, lines, arcs and cubic curves
//  2. [world] - The segment grid and its background bitmaps
//  3. [network] - Vertices, tracks, the editable view and commit
//  4. [transform] - Edit operations and the unit of work that commits them
//  5. [scene] - Drawable snapshots, camera, SVG/JSON/DOT export
//  6. [script] - TOML edit-intent scripts and their replay
//  7. [pipeline] - Orchestration (replay → snapshot → render) with caching
//
// # Architecture
//
// The typical data flow:
//
//	edit-intent script (TOML)
//	         ↓
//	    [script] package (parse, validate references)
//	         ↓
//	    [transform] package (one unit of work per step)
//	         ↓
//	    [network] package (commit, relink, validate)
//	         ↓
//	    [scene] package (snapshot + export)
//	         ↓
//	    SVG/JSON/DOT output
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/trackyard/trackyard/pkg/script"
//	    "github.com/trackyard/trackyard/pkg/scene"
//	)
//
//	s, _ := script.Load("depot.toml")
//	g, _ := s.NewGraph()
//	_, _ = script.NewRunner().Run(context.Background(), g, s)
//
//	sc := scene.NewFactory().Build(context.Background(), g)
//	cam := scene.NewCamera(1, 1200, 800)
//	cam.Fit(sc.Width, sc.Height)
//	svg := scene.RenderSVG(sc, cam.Snapshot())
//
// # Supporting Packages
//
// [errors] defines coded errors shared by every layer. [cache] stores
// rendered exports in files or Redis. [config] loads the YAML configuration.
// [observability] exposes hooks for edits, scene builds, cache and HTTP
// events. [buildinfo] carries version information set at link time.
package pkg
