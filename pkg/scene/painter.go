package scene

import (
	"fmt"
	"image"

	"github.com/trackyard/trackyard/pkg/geometry"
	"github.com/trackyard/trackyard/pkg/network"
)

// HitTolerance is how far from a painted shape, in pixels, a pointer still
// hits it.
const HitTolerance = 5

var (
	trackStyle    = Style{Stroke: "#37474f", Width: 2, Class: "track"}
	editStyle     = Style{Stroke: "#1e88e5", Width: 3, Class: "track editable"}
	handleStyle   = Style{Stroke: "#90a4ae", Width: 1, Dashed: true, Class: "handle"}
	stopStyle     = Style{Stroke: "#b71c1c", Fill: "#ffffff", Width: 2, Class: "stop"}
	labelStyle    = Style{Fill: "#263238", Class: "label"}
	openStyle     = Style{Stroke: "#e65100", Fill: "#ffcc80", Width: 1, Class: "vertex open"}
	junctionStyle = Style{Stroke: "#263238", Fill: "#eceff1", Width: 1, Class: "vertex"}
)

// Painter draws one network element and answers pointer queries about it.
type Painter interface {
	// Draw paints the element. Editable painting adds handles for the
	// geometry that can be dragged.
	Draw(cam CameraSnapshot, s Surface, editable bool)
	// Hits reports whether pixel (px, py) is on the element.
	Hits(cam CameraSnapshot, px, py int) bool
	// ComputePosition returns the fraction along a track under the pointer.
	// It reports false when the pointer misses the element.
	ComputePosition(cam CameraSnapshot, m MouseSnapshot) (float64, bool)
}

// TrackInfo is the part of a track a painter keeps.
type TrackInfo struct {
	ID       int64
	Kind     network.Kind
	From, To int64
	Length   float64
	Objects  []network.TrackObject
}

type trackPainter struct {
	TrackInfo
	shape network.Shape
}

func newTrackPainter(t *network.Track, shape network.Shape) trackPainter {
	return trackPainter{
		TrackInfo: TrackInfo{
			ID:      t.ID(),
			Kind:    t.Kind(),
			From:    t.Vertex(0).ID(),
			To:      t.Vertex(1).ID(),
			Length:  shape.Length(),
			Objects: t.Objects(),
		},
		shape: shape,
	}
}

// Shape returns the geometry the painter draws.
func (p *trackPainter) Shape() network.Shape { return p.shape }

// Info returns the track the painter was built from.
func (p *trackPainter) Info() TrackInfo { return p.TrackInfo }

func (p *trackPainter) Hits(cam CameraSnapshot, px, py int) bool {
	_, ok := p.project(cam, px, py)
	return ok
}

func (p *trackPainter) ComputePosition(cam CameraSnapshot, m MouseSnapshot) (float64, bool) {
	return p.project(cam, m.X, m.Y)
}

func (p *trackPainter) project(cam CameraSnapshot, px, py int) (float64, bool) {
	w := cam.Pix2World(px, py)
	f := min(max(p.shape.Project(w), 0), 1)
	if cam.Meters2Pix(w.Distance(p.shape.PointAt(f))) > HitTolerance {
		return 0, false
	}
	return f, true
}

// Bounds returns the world rectangle covering the track.
func (p *trackPainter) Bounds() (geometry.Point, geometry.Point) {
	return bounds(network.Polyline(p.shape, 1))
}

func (p *trackPainter) style(editable bool) Style {
	st := trackStyle
	if editable {
		st = editStyle
	}
	st.Class += " " + p.Kind.String()
	return st
}

func (p *trackPainter) drawObjects(cam CameraSnapshot, s Surface) {
	for _, o := range p.Objects {
		at := cam.World2Pix(p.shape.PointAt(o.Position))
		s.Circle(at, 4, stopStyle)
		if o.Name != "" {
			s.Text(at.Add(image.Pt(6, -6)), o.Name, labelStyle)
		}
	}
}

// StraightPainter draws a straight track.
type StraightPainter struct {
	trackPainter
	Segment geometry.Segment
}

func (p *StraightPainter) Draw(cam CameraSnapshot, s Surface, editable bool) {
	s.Line(cam.World2Pix(p.Segment.P0), cam.World2Pix(p.Segment.P1), p.style(editable))
	p.drawObjects(cam, s)
}

// ArcPainter draws a curved track.
type ArcPainter struct {
	trackPainter
	Arc geometry.Arc
}

func (p *ArcPainter) Draw(cam CameraSnapshot, s Surface, editable bool) {
	c := cam.World2Pix(p.Arc.Center)
	s.Arc(c, cam.Meters2Pix(p.Arc.Radius), p.Arc.Start, p.Arc.Sweep, p.style(editable))
	if editable {
		s.Circle(c, 2, handleStyle)
		s.Line(c, cam.World2Pix(p.Arc.PointAt(0)), handleStyle)
	}
	p.drawObjects(cam, s)
}

// CubicPainter draws a free track.
type CubicPainter struct {
	trackPainter
	Cubic geometry.Cubic
}

func (p *CubicPainter) Draw(cam CameraSnapshot, s Surface, editable bool) {
	c := p.Cubic
	p0, p1, p2, p3 := cam.World2Pix(c.P0), cam.World2Pix(c.P1), cam.World2Pix(c.P2), cam.World2Pix(c.P3)
	s.Cubic(p0, p1, p2, p3, p.style(editable))
	if editable {
		s.Line(p0, p1, handleStyle)
		s.Line(p3, p2, handleStyle)
		s.Circle(p1, 3, handleStyle)
		s.Circle(p2, 3, handleStyle)
	}
	p.drawObjects(cam, s)
}

// VertexPainter draws a vertex marker.
type VertexPainter struct {
	ID       int64
	Position geometry.Point
	Degree   int
}

const vertexRadius = 4

func (p *VertexPainter) radius(editable bool) float64 {
	if editable {
		return vertexRadius + 2
	}
	return vertexRadius
}

func (p *VertexPainter) Draw(cam CameraSnapshot, s Surface, editable bool) {
	st := junctionStyle
	if p.Degree < 2 {
		st = openStyle
	}
	at := cam.World2Pix(p.Position)
	s.Circle(at, p.radius(editable), st)
	if editable && p.ID != network.NoID {
		s.Text(at.Add(image.Pt(8, 12)), fmt.Sprintf("#%d", p.ID), labelStyle)
	}
}

func (p *VertexPainter) Hits(cam CameraSnapshot, px, py int) bool {
	at := cam.World2Pix(p.Position)
	d := at.Sub(image.Pt(px, py))
	r := p.radius(true) + HitTolerance
	return float64(d.X*d.X+d.Y*d.Y) <= r*r
}

// ComputePosition returns 0 whenever the vertex is hit.
func (p *VertexPainter) ComputePosition(cam CameraSnapshot, m MouseSnapshot) (float64, bool) {
	return 0, p.Hits(cam, m.X, m.Y)
}

// Bounds returns the vertex position as a degenerate rectangle.
func (p *VertexPainter) Bounds() (geometry.Point, geometry.Point) {
	return p.Position, p.Position
}

func bounds(pts []geometry.Point) (lo, hi geometry.Point) {
	if len(pts) == 0 {
		return lo, hi
	}
	lo, hi = pts[0], pts[0]
	for _, q := range pts[1:] {
		lo = geometry.Pt(min(lo.X, q.X), min(lo.Y, q.Y))
		hi = geometry.Pt(max(hi.X, q.X), max(hi.Y, q.Y))
	}
	return lo, hi
}
