package network

import (
	"math"
	"slices"

	"github.com/trackyard/trackyard/pkg/errors"
	"github.com/trackyard/trackyard/pkg/geometry"
)

// Kind is the geometric type of a track.
type Kind int

const (
	Straight Kind = iota
	Curved
	Free
)

func (k Kind) String() string {
	switch k {
	case Straight:
		return "straight"
	case Curved:
		return "curved"
	case Free:
		return "free"
	}
	return "unknown"
}

// ParseKind parses a kind name as produced by String.
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{Straight, Curved, Free} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidArgument, "unknown track kind %q", s)
}

// TrackObject is something placed along a track, such as a stop.
type TrackObject struct {
	Name string `json:"name" toml:"name"`
	// Position is the fraction of the track length from vertex 0, in [0, 1].
	Position float64 `json:"position" toml:"position"`
	// Orientation is 0 for objects facing vertex 1, anything else for the
	// opposite direction.
	Orientation byte `json:"orientation" toml:"orientation"`
}

// Track is a network edge between the vertices in slots 0 and 1.
type Track struct {
	id       int64
	kind     Kind
	vertices [2]*Vertex
	deleted  bool
	objects  []TrackObject

	// angle is the tangent direction at vertex 0, used by curved tracks.
	angle float64
	// controls are the Bezier control points of free tracks, relative to
	// vertex 0 and vertex 1 respectively.
	controls [2]geometry.Point
}

func newTrack(kind Kind) *Track { return &Track{id: NoID, kind: kind} }

// ID returns the track ID, or NoID before the first commit.
func (t *Track) ID() int64 { return t.id }

// Kind returns the geometric type.
func (t *Track) Kind() Kind { return t.kind }

// Vertex returns the vertex in the given slot.
func (t *Track) Vertex(slot int) *Vertex {
	if slot < 0 || slot > 1 {
		return nil
	}
	return t.vertices[slot]
}

// SetVertex replaces the vertex reference in a slot without touching the
// vertex side. Use EditableGraph.Link to keep both sides consistent.
func (t *Track) SetVertex(slot int, v *Vertex) {
	if slot == 0 || slot == 1 {
		t.vertices[slot] = v
	}
}

// Other returns the endpoint opposite v, or nil when v is not an endpoint.
// Ghost endpoints match their origin.
func (t *Track) Other(v *Vertex) *Vertex {
	switch {
	case sameVertex(t.vertices[0], v):
		return t.vertices[1]
	case sameVertex(t.vertices[1], v):
		return t.vertices[0]
	}
	return nil
}

// SlotOf returns the slot holding v, or -1.
func (t *Track) SlotOf(v *Vertex) int {
	for i, tv := range t.vertices {
		if sameVertex(tv, v) {
			return i
		}
	}
	return -1
}

func sameVertex(a, b *Vertex) bool {
	if a == nil || b == nil {
		return false
	}
	return a == b || (a.ghost && a.origin == b) || (b.ghost && b.origin == a)
}

// IsDeleted reports whether the track is marked for deletion.
func (t *Track) IsDeleted() bool { return t.deleted }

// MarkAsDeleted flags the track for removal on commit.
func (t *Track) MarkAsDeleted() { t.deleted = true }

// Angle returns the tangent angle at vertex 0 of a curved track.
func (t *Track) Angle() float64 { return t.angle }

// SetAngle sets the tangent angle at vertex 0.
func (t *Track) SetAngle(a float64) error {
	if err := errors.ValidateFinite(a); err != nil {
		return err
	}
	t.angle = a
	return nil
}

// Controls returns the control offsets of a free track.
func (t *Track) Controls() (c0, c1 geometry.Point) { return t.controls[0], t.controls[1] }

// SetControls sets the control offsets of a free track, relative to vertex 0
// and vertex 1.
func (t *Track) SetControls(c0, c1 geometry.Point) error {
	if err := errors.ValidateFinite(c0.X, c0.Y, c1.X, c1.Y); err != nil {
		return err
	}
	t.controls = [2]geometry.Point{c0, c1}
	return nil
}

// Objects returns a copy of the track objects ordered by position.
func (t *Track) Objects() []TrackObject { return slices.Clone(t.objects) }

// AddObject inserts o keeping the list ordered by position.
func (t *Track) AddObject(o TrackObject) error {
	if err := errors.ValidateFraction(o.Position); err != nil {
		return err
	}
	i, _ := slices.BinarySearchFunc(t.objects, o.Position, func(e TrackObject, p float64) int {
		switch {
		case e.Position < p:
			return -1
		case e.Position > p:
			return 1
		}
		return 0
	})
	// Equal positions keep insertion order.
	for i < len(t.objects) && t.objects[i].Position == o.Position {
		i++
	}
	t.objects = slices.Insert(t.objects, i, o)
	return nil
}

// RemoveObject removes the object at index i.
func (t *Track) RemoveObject(i int) error {
	if i < 0 || i >= len(t.objects) {
		return errors.New(errors.ErrCodeInvalidArgument, "track %d has no object %d", t.id, i)
	}
	t.objects = slices.Delete(t.objects, i, i+1)
	return nil
}

// RemoveObjectNamed removes the first object with the given name and reports
// whether one was found.
func (t *Track) RemoveObjectNamed(name string) bool {
	i := slices.IndexFunc(t.objects, func(o TrackObject) bool { return o.Name == name })
	if i < 0 {
		return false
	}
	t.objects = slices.Delete(t.objects, i, i+1)
	return true
}

// ClearObjects removes every track object.
func (t *Track) ClearObjects() { t.objects = nil }

// Fork returns a copy with the same ID, kind, geometry, objects and deletion
// flag. Vertex slots are left empty for the caller to relink.
func (t *Track) Fork() *Track {
	return &Track{
		id:       t.id,
		kind:     t.kind,
		deleted:  t.deleted,
		objects:  slices.Clone(t.objects),
		angle:    t.angle,
		controls: t.controls,
	}
}

// CopyFrom syncs kind, geometry, objects and deletion flag from o in place.
// Vertex slots are left untouched.
func (t *Track) CopyFrom(o *Track) {
	t.kind = o.kind
	t.deleted = o.deleted
	t.objects = slices.Clone(o.objects)
	t.angle = o.angle
	t.controls = o.controls
}

// Shape returns the current geometry of the track, computed from the
// endpoint positions. A curved track whose far end lies on its tangent line
// degrades to a straight shape. Shape returns nil while a slot is empty.
func (t *Track) Shape() Shape {
	a, b := t.vertices[0], t.vertices[1]
	if a == nil || b == nil {
		return nil
	}
	p0, p1 := a.Position(), b.Position()
	switch t.kind {
	case Curved:
		if arc, ok := geometry.ArcFromTangent(p0, t.angle, p1); ok {
			return ArcShape{Arc: arc}
		}
	case Free:
		return CubicShape{Cubic: geometry.Cubic{
			P0: p0,
			P1: p0.Add(t.controls[0]),
			P2: p1.Add(t.controls[1]),
			P3: p1,
		}}
	}
	return StraightShape{Segment: geometry.Segment{P0: p0, P1: p1}}
}

// Length returns the track length in meters, or 0 while a slot is empty.
func (t *Track) Length() float64 {
	s := t.Shape()
	if s == nil {
		return 0
	}
	return s.Length()
}

// PointAt returns the point at fraction f of the track.
func (t *Track) PointAt(f float64) (geometry.Point, bool) {
	s := t.Shape()
	if s == nil || math.IsNaN(f) {
		return geometry.Point{}, false
	}
	return s.PointAt(min(max(f, 0), 1)), true
}

// Project returns the fraction of the track closest to p.
func (t *Track) Project(p geometry.Point) (float64, bool) {
	s := t.Shape()
	if s == nil {
		return 0, false
	}
	return s.Project(p), true
}
