package world

import (
	"maps"
	"slices"
)

// SegmentSize is the edge length of a segment in meters.
const SegmentSize = 1000.0

// Segment is one square bucket of the world grid.
type Segment struct {
	x, y       int
	background string
	vertices   map[int64]struct{}
}

func newSegment(x, y int) *Segment {
	return &Segment{x: x, y: y, vertices: make(map[int64]struct{})}
}

// X returns the column of the segment in the world grid.
func (s *Segment) X() int { return s.x }

// Y returns the row of the segment in the world grid.
func (s *Segment) Y() int { return s.y }

// Origin returns the world coordinates of the segment's lower corner.
func (s *Segment) Origin() (float64, float64) {
	return float64(s.x) * SegmentSize, float64(s.y) * SegmentSize
}

// Contains reports whether the absolute position lies inside the segment.
func (s *Segment) Contains(x, y float64) bool {
	ox, oy := s.Origin()
	return x >= ox && x < ox+SegmentSize && y >= oy && y < oy+SegmentSize
}

// Background returns the optional background bitmap path.
func (s *Segment) Background() string { return s.background }

// Index records a committed vertex as living in this segment.
func (s *Segment) Index(id int64) { s.vertices[id] = struct{}{} }

// Unindex removes a vertex from the membership index.
func (s *Segment) Unindex(id int64) { delete(s.vertices, id) }

// Holds reports whether the vertex is indexed in this segment.
func (s *Segment) Holds(id int64) bool {
	_, ok := s.vertices[id]
	return ok
}

// VertexIDs returns the IDs of the vertices in the segment, ascending.
func (s *Segment) VertexIDs() []int64 {
	return slices.Sorted(maps.Keys(s.vertices))
}

// IsEmpty reports whether no vertex is indexed in the segment.
func (s *Segment) IsEmpty() bool { return len(s.vertices) == 0 }
