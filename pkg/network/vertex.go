package network

import (
	"math"

	"github.com/trackyard/trackyard/pkg/errors"
	"github.com/trackyard/trackyard/pkg/geometry"
	"github.com/trackyard/trackyard/pkg/world"
)

// NoID marks a vertex or track that has not been committed yet.
const NoID int64 = -1

// MinTrackLength is the shortest chord, in meters, a move may leave on any
// track.
const MinTrackLength = 1.0

// Vertex is a network node. Its position is owned by a world segment: the
// absolute position is the segment origin plus a local offset.
type Vertex struct {
	id      int64
	segment *world.Segment
	local   geometry.Point
	tracks  [2]*Track
	deleted bool

	// ghost vertices delegate every read to origin.
	ghost  bool
	origin *Vertex

	pending *update
}

// update is a registered, not yet applied move.
type update struct {
	segment *world.Segment
	target  geometry.Point
}

// NewVertex creates an unpersisted vertex at the absolute position (x, y).
// It fails when the position lies outside the world.
func NewVertex(w *world.World, x, y float64) (*Vertex, error) {
	if err := errors.ValidateFinite(x, y); err != nil {
		return nil, err
	}
	seg := w.FindSegment(x, y)
	if seg == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "position (%.2f, %.2f) is outside the world", x, y)
	}
	ox, oy := seg.Origin()
	return &Vertex{id: NoID, segment: seg, local: geometry.Pt(x-ox, y-oy)}, nil
}

func newGhost(origin *Vertex) *Vertex {
	return &Vertex{id: origin.id, ghost: true, origin: origin}
}

func (v *Vertex) read() *Vertex {
	if v.ghost {
		return v.origin
	}
	return v
}

// ID returns the vertex ID, or NoID before the first commit.
func (v *Vertex) ID() int64 { return v.read().id }

// IsGhost reports whether v is a read-only handle on an authoritative vertex.
func (v *Vertex) IsGhost() bool { return v.ghost }

// Origin returns the authoritative vertex behind a ghost, or v itself.
func (v *Vertex) Origin() *Vertex { return v.read() }

// Segment returns the owning world segment.
func (v *Vertex) Segment() *world.Segment { return v.read().segment }

// Local returns the offset of the vertex inside its segment.
func (v *Vertex) Local() geometry.Point { return v.read().local }

// Position returns the absolute position in meters.
func (v *Vertex) Position() geometry.Point {
	r := v.read()
	ox, oy := r.segment.Origin()
	return geometry.Pt(ox+r.local.X, oy+r.local.Y)
}

// X returns the absolute x coordinate in meters.
func (v *Vertex) X() float64 { return v.Position().X }

// Y returns the absolute y coordinate in meters.
func (v *Vertex) Y() float64 { return v.Position().Y }

// Track returns the track in the given slot, or nil.
func (v *Vertex) Track(slot int) *Track {
	if slot < 0 || slot > 1 {
		return nil
	}
	return v.read().tracks[slot]
}

// Tracks returns the attached tracks, skipping empty slots.
func (v *Vertex) Tracks() []*Track {
	var out []*Track
	for _, t := range v.read().tracks {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// Degree returns the number of attached tracks.
func (v *Vertex) Degree() int { return len(v.Tracks()) }

// HasNoTracks reports whether no track is attached.
func (v *Vertex) HasNoTracks() bool { return v.Degree() == 0 }

// HasOneTrack reports whether exactly one track is attached. Such a vertex is
// open: a track may be extended from it.
func (v *Vertex) HasOneTrack() bool { return v.Degree() == 1 }

// HasAllTracks reports whether both slots are used.
func (v *Vertex) HasAllTracks() bool { return v.Degree() == 2 }

// SlotOf returns the slot holding t, or -1.
func (v *Vertex) SlotOf(t *Track) int {
	for i, vt := range v.read().tracks {
		if vt != nil && vt == t {
			return i
		}
	}
	return -1
}

// FreeSlot returns the first empty slot, or -1.
func (v *Vertex) FreeSlot() int {
	for i, t := range v.read().tracks {
		if t == nil {
			return i
		}
	}
	return -1
}

// IsDeleted reports whether the vertex is marked for deletion.
func (v *Vertex) IsDeleted() bool { return v.read().deleted }

// MarkAsDeleted flags the vertex for removal on commit.
func (v *Vertex) MarkAsDeleted() error {
	if err := v.mutable(); err != nil {
		return err
	}
	v.deleted = true
	return nil
}

// Fork returns a copy with the same ID, position and deletion flag and with
// empty track slots; relinking is up to the caller. Forking a ghost forks
// its origin.
func (v *Vertex) Fork() *Vertex {
	r := v.read()
	return &Vertex{id: r.id, segment: r.segment, local: r.local, deleted: r.deleted}
}

// CopyFrom syncs position and deletion flag from o in place. Track slots are
// left untouched.
func (v *Vertex) CopyFrom(o *Vertex) error {
	if err := v.mutable(); err != nil {
		return err
	}
	v.copyFrom(o)
	return nil
}

func (v *Vertex) copyFrom(o *Vertex) {
	r := o.read()
	v.segment, v.local, v.deleted = r.segment, r.local, r.deleted
}

func (v *Vertex) mutable() error {
	if v.ghost {
		return errors.Consistency("vertex %d is a ghost and cannot be modified", v.origin.id)
	}
	return nil
}

func (v *Vertex) setTrack(slot int, t *Track) { v.tracks[slot] = t }

func (v *Vertex) detach(t *Track) {
	if i := v.SlotOf(t); i >= 0 {
		v.tracks[i] = nil
	}
}

// RegisterUpdate records a tentative move by (dx, dy) meters. The segment of
// the target is resolved against w; a target outside the world is recorded
// and later rejected by IsUpdatePossible.
func (v *Vertex) RegisterUpdate(w *world.World, dx, dy float64) error {
	if err := v.mutable(); err != nil {
		return err
	}
	target := v.Position().Add(geometry.Pt(dx, dy))
	v.pending = &update{segment: w.FindSegment(target.X, target.Y), target: target}
	return nil
}

// IsUpdatePossible reports whether the registered move is legal. Every vertex
// taking part in the same move must be registered before asking, since the
// track length check uses the tentative position of both endpoints.
func (v *Vertex) IsUpdatePossible() bool {
	p := v.pending
	if p == nil || p.segment == nil {
		return false
	}
	if math.IsNaN(p.target.X) || math.IsNaN(p.target.Y) || math.IsInf(p.target.X, 0) || math.IsInf(p.target.Y, 0) {
		return false
	}
	for _, t := range v.tracks {
		if t == nil {
			continue
		}
		other := t.Other(v)
		if other == nil {
			continue
		}
		if p.target.Distance(other.tentative()) < MinTrackLength {
			return false
		}
	}
	return true
}

// tentative returns the registered target if any, else the current position.
func (v *Vertex) tentative() geometry.Point {
	if !v.ghost && v.pending != nil && v.pending.segment != nil {
		return v.pending.target
	}
	return v.Position()
}

// ApplyUpdate moves the vertex to the registered target.
func (v *Vertex) ApplyUpdate() {
	p := v.pending
	if p == nil || p.segment == nil {
		v.pending = nil
		return
	}
	ox, oy := p.segment.Origin()
	v.segment = p.segment
	v.local = geometry.Pt(p.target.X-ox, p.target.Y-oy)
	v.pending = nil
}

// RollbackUpdate discards the registered move.
func (v *Vertex) RollbackUpdate() { v.pending = nil }
