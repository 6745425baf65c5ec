package scene

import (
	"context"
	"fmt"
	"image"
	"io/fs"
	"os"
	"time"

	"github.com/trackyard/trackyard/pkg/geometry"
	"github.com/trackyard/trackyard/pkg/network"
	"github.com/trackyard/trackyard/pkg/observability"
	"github.com/trackyard/trackyard/pkg/world"
)

// Source is the network state a scene is built from. Both *network.Graph and
// *network.EditableGraph satisfy it.
type Source interface {
	World() *world.World
	Vertices() []*network.Vertex
	Tracks() []*network.Track
}

// Background is a segment bitmap placed in world coordinates.
type Background struct {
	X    int            `json:"x"`
	Y    int            `json:"y"`
	Path string         `json:"path"`
	Min  geometry.Point `json:"min"`
	Max  geometry.Point `json:"max"`
}

// Scene is an immutable set of painters built from one source.
type Scene struct {
	// Painters holds track painters first, then vertex painters.
	Painters    []Painter
	Backgrounds []Background
	// Occupancy is a private copy of the graph occupancy, nil for editable
	// sources.
	Occupancy [][]bool
	Warnings  []string

	Width, Height float64
}

// Draw paints backgrounds, tracks and vertices in that order, skipping
// painters outside the camera view.
func (sc *Scene) Draw(cam CameraSnapshot, s Surface, editable bool) {
	x0, y0, x1, y1 := cam.Visible()
	for _, b := range sc.Backgrounds {
		if b.Max.X < x0 || b.Min.X > x1 || b.Max.Y < y0 || b.Min.Y > y1 {
			continue
		}
		s.Image(image.Rectangle{Min: cam.World2Pix(b.Min), Max: cam.World2Pix(b.Max)}, b.Path)
	}
	for _, p := range sc.Painters {
		if bp, ok := p.(interface {
			Bounds() (geometry.Point, geometry.Point)
		}); ok {
			lo, hi := bp.Bounds()
			margin := HitTolerance * cam.Scale
			if hi.X+margin < x0 || lo.X-margin > x1 || hi.Y+margin < y0 || lo.Y-margin > y1 {
				continue
			}
		}
		p.Draw(cam, s, editable)
	}
}

// HitTest returns the topmost painter under pixel (px, py).
func (sc *Scene) HitTest(cam CameraSnapshot, px, py int) (Painter, bool) {
	for i := len(sc.Painters) - 1; i >= 0; i-- {
		if sc.Painters[i].Hits(cam, px, py) {
			return sc.Painters[i], true
		}
	}
	return nil, false
}

// Tracks returns the track painters.
func (sc *Scene) Tracks() []Painter {
	var out []Painter
	for _, p := range sc.Painters {
		if _, ok := p.(*VertexPainter); !ok {
			out = append(out, p)
		}
	}
	return out
}

// Factory builds scenes.
type Factory struct {
	assets fs.FS
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithAssets resolves background bitmap paths inside fsys instead of the
// operating system file system.
func WithAssets(fsys fs.FS) FactoryOption { return func(f *Factory) { f.assets = fsys } }

// NewFactory creates a scene factory.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Build copies src into a new scene. Deleted elements are skipped; tracks
// with an empty end and missing background bitmaps become warnings.
func (f *Factory) Build(ctx context.Context, src Source) *Scene {
	start := time.Now()
	w := src.World()
	sc := &Scene{}
	sc.Width, sc.Height = w.Size()

	for _, seg := range w.All() {
		path := seg.Background()
		if path == "" {
			continue
		}
		if err := f.stat(path); err != nil {
			sc.Warnings = append(sc.Warnings, fmt.Sprintf("segment (%d,%d): background %s: %v", seg.X(), seg.Y(), path, err))
			continue
		}
		ox, oy := seg.Origin()
		sc.Backgrounds = append(sc.Backgrounds, Background{
			X: seg.X(), Y: seg.Y(), Path: path,
			Min: geometry.Pt(ox, oy),
			Max: geometry.Pt(ox+world.SegmentSize, oy+world.SegmentSize),
		})
	}

	for _, t := range src.Tracks() {
		if t.IsDeleted() {
			continue
		}
		p, err := trackPainterFor(t)
		if err != nil {
			sc.Warnings = append(sc.Warnings, err.Error())
			continue
		}
		sc.Painters = append(sc.Painters, p)
	}
	for _, v := range src.Vertices() {
		if v.IsDeleted() {
			continue
		}
		sc.Painters = append(sc.Painters, &VertexPainter{ID: v.ID(), Position: v.Position(), Degree: v.Degree()})
	}

	if o, ok := src.(interface{ Occupancy() [][]bool }); ok {
		sc.Occupancy = copyGrid(o.Occupancy())
	}

	observability.Scene().OnBuild(ctx, len(sc.Painters), len(sc.Warnings), time.Since(start))
	return sc
}

// trackPainterFor picks the painter for the track's current shape.
func trackPainterFor(t *network.Track) (Painter, error) {
	shape := t.Shape()
	switch s := shape.(type) {
	case network.StraightShape:
		return &StraightPainter{trackPainter: newTrackPainter(t, s), Segment: s.Segment}, nil
	case network.ArcShape:
		return &ArcPainter{trackPainter: newTrackPainter(t, s), Arc: s.Arc}, nil
	case network.CubicShape:
		return &CubicPainter{trackPainter: newTrackPainter(t, s), Cubic: s.Cubic}, nil
	case nil:
		return nil, fmt.Errorf("track %d has an open end and cannot be drawn", t.ID())
	}
	return nil, fmt.Errorf("track %d has unsupported shape %T", t.ID(), shape)
}

func (f *Factory) stat(path string) error {
	if f.assets != nil {
		_, err := fs.Stat(f.assets, path)
		return err
	}
	_, err := os.Stat(path)
	return err
}

func copyGrid(g [][]bool) [][]bool {
	out := make([][]bool, len(g))
	for i, col := range g {
		out[i] = append([]bool(nil), col...)
	}
	return out
}
