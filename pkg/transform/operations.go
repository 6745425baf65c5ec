package transform

import (
	"math"

	"github.com/trackyard/trackyard/pkg/errors"
	"github.com/trackyard/trackyard/pkg/geometry"
	"github.com/trackyard/trackyard/pkg/network"
)

// tangentStep is the parameter distance used to estimate track directions
// at an end.
const tangentStep = 1e-4

// AddVertex creates a free-standing vertex.
type AddVertex struct {
	X, Y float64

	// Vertex is the created vertex.
	Vertex *network.Vertex
}

func (op *AddVertex) Name() string { return "add-vertex" }

func (op *AddVertex) Apply(u *UnitOfWork) error {
	v, err := u.Edit().NewVertex(op.X, op.Y)
	if err != nil {
		return err
	}
	op.Vertex = v
	return nil
}

// DeleteVertex removes a vertex and every track attached to it.
type DeleteVertex struct {
	ID int64
}

func (op *DeleteVertex) Name() string { return "delete-vertex" }

func (op *DeleteVertex) Apply(u *UnitOfWork) error {
	v, err := u.ImportVertex(op.ID)
	if err != nil {
		return err
	}
	return u.Edit().RemoveVertex(v)
}

// DeleteTrack removes a track. Its vertices stay.
type DeleteTrack struct {
	ID int64
}

func (op *DeleteTrack) Name() string { return "delete-track" }

func (op *DeleteTrack) Apply(u *UnitOfWork) error {
	t, err := u.ImportTrack(op.ID)
	if err != nil {
		return err
	}
	return u.Edit().RemoveTrack(t)
}

// MoveVertices moves a set of vertices by a vector, all or nothing. A move
// refused by the legality check is not an error; Moved reports the outcome.
type MoveVertices struct {
	IDs    []int64
	DX, DY float64

	Moved bool
}

func (op *MoveVertices) Name() string { return "move" }

func (op *MoveVertices) Apply(u *UnitOfWork) error {
	vs := make([]*network.Vertex, 0, len(op.IDs))
	for _, id := range op.IDs {
		v, err := u.ImportVertex(id)
		if err != nil {
			return err
		}
		vs = append(vs, v)
	}
	ok, err := u.Edit().MoveByVector(op.DX, op.DY, vs...)
	if err != nil {
		return err
	}
	op.Moved = ok
	return nil
}

// AttachStop places a track object on a track.
type AttachStop struct {
	TrackID int64
	Stop    network.TrackObject
}

func (op *AttachStop) Name() string { return "attach-stop" }

func (op *AttachStop) Apply(u *UnitOfWork) error {
	t, err := u.ImportTrack(op.TrackID)
	if err != nil {
		return err
	}
	return t.AddObject(op.Stop)
}

// RemoveStop removes the first track object with the given name.
type RemoveStop struct {
	TrackID  int64
	StopName string
}

func (op *RemoveStop) Name() string { return "remove-stop" }

func (op *RemoveStop) Apply(u *UnitOfWork) error {
	t, err := u.ImportTrack(op.TrackID)
	if err != nil {
		return err
	}
	if !t.RemoveObjectNamed(op.StopName) {
		return errors.New(errors.ErrCodeNotFound, "track %d has no stop %q", op.TrackID, op.StopName)
	}
	return nil
}

// ConnectVertices joins two existing vertices with a new track. A curved
// track leaves A tangent to A's other track when it has one.
type ConnectVertices struct {
	A, B int64
	Kind network.Kind

	Track *network.Track
}

func (op *ConnectVertices) Name() string { return "connect" }

func (op *ConnectVertices) Apply(u *UnitOfWork) error {
	a, err := u.ImportVertex(op.A)
	if err != nil {
		return err
	}
	b, err := u.ImportVertex(op.B)
	if err != nil {
		return err
	}
	in := &Input{V1: a}
	if a.HasOneTrack() {
		if err := ExtractTrack.Modify(u.Edit(), in); err != nil {
			return err
		}
	}
	t, err := newTrackFrom(u, op.Kind, in.T1, a, b)
	if err != nil {
		return err
	}
	op.Track = t
	return nil
}

// ExtendTrack grows the network from a vertex with at most one track: it
// creates a vertex at (X, Y) and a track reaching it. Curved and free tracks
// continue tangent to the existing track.
type ExtendTrack struct {
	VertexID int64
	X, Y     float64
	Kind     network.Kind

	Vertex *network.Vertex
	Track  *network.Track
}

func (op *ExtendTrack) Name() string { return "extend-track" }

func (op *ExtendTrack) Apply(u *UnitOfWork) error {
	v, err := u.ImportVertex(op.VertexID)
	if err != nil {
		return err
	}
	in := &Input{V1: v}
	if !v.HasNoTracks() {
		if err := ExtractTrack.Modify(u.Edit(), in); err != nil {
			return err
		}
	}
	end, err := u.Edit().NewVertex(op.X, op.Y)
	if err != nil {
		return err
	}
	t, err := newTrackFrom(u, op.Kind, in.T1, v, end)
	if err != nil {
		return err
	}
	op.Vertex, op.Track = end, t
	return nil
}

// newTrackFrom creates a track from a to b. When prev is attached to a, the
// new track leaves a in the direction prev arrives at it.
func newTrackFrom(u *UnitOfWork, kind network.Kind, prev *network.Track, a, b *network.Vertex) (*network.Track, error) {
	chord := b.Position().Sub(a.Position())
	if chord.Length() < network.MinTrackLength {
		return nil, errors.Precondition("vertices %d and %d are closer than %v m", a.ID(), b.ID(), network.MinTrackLength)
	}
	t, err := u.Edit().NewTrack(kind, a, b)
	if err != nil {
		return nil, err
	}
	heading := chord.Angle()
	if prev != nil {
		if h, ok := leavingAngle(prev, a); ok {
			heading = h
		}
	}
	switch kind {
	case network.Curved:
		if err := t.SetAngle(heading); err != nil {
			return nil, err
		}
	case network.Free:
		third := chord.Length() / 3
		if err := t.SetControls(geometry.Polar(third, heading), chord.Mul(-1.0/3)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// leavingAngle returns the direction of travel when running along t into v
// and continuing past it.
func leavingAngle(t *network.Track, v *network.Vertex) (float64, bool) {
	slot := t.SlotOf(v)
	if slot < 0 {
		return 0, false
	}
	end := float64(slot)
	inner := end + tangentStep
	if slot == 1 {
		inner = end - tangentStep
	}
	p, ok := t.PointAt(end)
	if !ok {
		return 0, false
	}
	q, _ := t.PointAt(inner)
	d := p.Sub(q)
	if geometry.Equal(d.Length(), 0) {
		return 0, false
	}
	return d.Angle(), true
}

// SplitTrack inserts a vertex into a track at fraction At. The track keeps
// its ID and runs from its first vertex to the new one; a new track of the
// same kind runs on to the far vertex. Track objects move to the half they
// lie on, rescaled to that half.
type SplitTrack struct {
	TrackID int64
	At      float64

	// Vertex is the inserted vertex, Track the second half.
	Vertex *network.Vertex
	Track  *network.Track
}

func (op *SplitTrack) Name() string { return "split-track" }

func (op *SplitTrack) Apply(u *UnitOfWork) error {
	if math.IsNaN(op.At) || op.At <= 0 || op.At >= 1 {
		return errors.New(errors.ErrCodeInvalidArgument, "split position %v must lie strictly between 0 and 1", op.At)
	}
	t, err := u.ImportTrack(op.TrackID)
	if err != nil {
		return err
	}
	first, err := u.Materialize(t.Vertex(0))
	if err != nil {
		return err
	}
	in := &Input{T1: t, V1: first}
	if err := ExtractFarVertex.Modify(u.Edit(), in); err != nil {
		return err
	}
	far := in.V2

	shape := t.Shape()
	if shape == nil {
		return errors.Consistency("track %d has an empty vertex slot", t.ID())
	}
	p := shape.PointAt(op.At)
	if p.Distance(first.Position()) < network.MinTrackLength || p.Distance(far.Position()) < network.MinTrackLength {
		return errors.Precondition("split point of track %d is closer than %v m to an end", t.ID(), network.MinTrackLength)
	}

	secondAngle := far.Position().Sub(p).Angle()
	var firstControls, secondControls [2]geometry.Point
	switch s := shape.(type) {
	case network.ArcShape:
		secondAngle = s.TangentAt(op.At)
	case network.CubicShape:
		firstControls, secondControls, p = splitCubic(s.Cubic, op.At)
	}
	objects := t.Objects()

	mid, err := u.Edit().NewVertex(p.X, p.Y)
	if err != nil {
		return err
	}
	if err := u.Edit().Link(t, 1, mid); err != nil {
		return err
	}
	nt, err := u.Edit().NewTrack(t.Kind(), mid, far)
	if err != nil {
		return err
	}
	switch t.Kind() {
	case network.Curved:
		if err := nt.SetAngle(secondAngle); err != nil {
			return err
		}
	case network.Free:
		if err := t.SetControls(firstControls[0], firstControls[1]); err != nil {
			return err
		}
		if err := nt.SetControls(secondControls[0], secondControls[1]); err != nil {
			return err
		}
	}

	t.ClearObjects()
	for _, o := range objects {
		target := t
		if o.Position < op.At {
			o.Position /= op.At
		} else {
			o.Position = (o.Position - op.At) / (1 - op.At)
			target = nt
		}
		o.Position = clamp01(o.Position)
		if err := target.AddObject(o); err != nil {
			return err
		}
	}

	op.Vertex, op.Track = mid, nt
	return nil
}

// splitCubic splits c at parameter s by de Casteljau and returns the control
// offsets of both halves and the split point.
func splitCubic(c geometry.Cubic, s float64) (first, second [2]geometry.Point, at geometry.Point) {
	p01 := c.P0.Lerp(c.P1, s)
	p12 := c.P1.Lerp(c.P2, s)
	p23 := c.P2.Lerp(c.P3, s)
	p012 := p01.Lerp(p12, s)
	p123 := p12.Lerp(p23, s)
	at = p012.Lerp(p123, s)
	first = [2]geometry.Point{p01.Sub(c.P0), p012.Sub(at)}
	second = [2]geometry.Point{p123.Sub(at), p23.Sub(c.P3)}
	return first, second, at
}

// JoinTracks removes a vertex joining two tracks and merges the tracks into
// one. The straight track, if any, survives and keeps its ID and direction;
// the merged track inherits its kind. Track objects of both halves are kept
// at their distance along the merged track.
type JoinTracks struct {
	VertexID int64

	Track *network.Track
}

func (op *JoinTracks) Name() string { return "join-tracks" }

func (op *JoinTracks) Apply(u *UnitOfWork) error {
	v, err := u.ImportVertex(op.VertexID)
	if err != nil {
		return err
	}
	if !v.HasAllTracks() {
		return errors.Precondition("vertex %d has %d tracks, want 2", v.ID(), v.Degree())
	}
	in := &Input{T1: v.Track(0), T2: v.Track(1), V1: v}
	if err := StraightFirst.Modify(u.Edit(), in); err != nil {
		return err
	}
	keep, drop := in.T1, in.T2

	// far ends of both tracks, as working records
	farKeep, err := u.Materialize(keep.Other(v))
	if err != nil {
		return err
	}
	farDrop, err := u.Materialize(drop.Other(v))
	if err != nil {
		return err
	}
	if farKeep == farDrop {
		return errors.Precondition("joining at vertex %d would close a loop", v.ID())
	}

	lenKeep, lenDrop := keep.Length(), drop.Length()
	total := lenKeep + lenDrop
	slot := keep.SlotOf(v)
	dropFromV := drop.SlotOf(v) == 0
	keepObjects, dropObjects := keep.Objects(), drop.Objects()

	// distances along the merged track, which keeps keep's direction
	var merged []network.TrackObject
	place := func(o network.TrackObject, d float64) {
		if total > 0 {
			o.Position = clamp01(d / total)
		}
		merged = append(merged, o)
	}
	for _, o := range keepObjects {
		if slot == 1 {
			place(o, o.Position*lenKeep)
		} else {
			place(o, lenDrop+o.Position*lenKeep)
		}
	}
	for _, o := range dropObjects {
		along := o.Position * lenDrop
		if !dropFromV {
			along = (1 - o.Position) * lenDrop
		}
		// along is measured from v into drop
		if slot == 1 {
			if !dropFromV {
				o.Orientation = flip(o.Orientation)
			}
			place(o, lenKeep+along)
		} else {
			if dropFromV {
				o.Orientation = flip(o.Orientation)
			}
			place(o, lenDrop-along)
		}
	}

	var angle float64
	var controls [2]geometry.Point
	k0, k1 := keep.Controls()
	d0, d1 := drop.Controls()
	dropFar := d0
	if dropFromV {
		dropFar = d1
	}
	if slot == 1 {
		angle = keep.Angle()
		controls = [2]geometry.Point{k0, dropFar}
	} else {
		// reversed arrival direction at the far end of drop
		if a, ok := leavingAngle(drop, farDrop); ok {
			angle = a + math.Pi
		}
		controls = [2]geometry.Point{dropFar, k1}
	}

	if err := u.Edit().RemoveTrack(drop); err != nil {
		return err
	}
	if err := u.Edit().Link(keep, slot, farDrop); err != nil {
		return err
	}
	if err := u.Edit().RemoveVertex(v); err != nil {
		return err
	}
	switch keep.Kind() {
	case network.Curved:
		if err := keep.SetAngle(angle); err != nil {
			return err
		}
	case network.Free:
		if err := keep.SetControls(controls[0], controls[1]); err != nil {
			return err
		}
	}
	keep.ClearObjects()
	for _, o := range merged {
		if err := keep.AddObject(o); err != nil {
			return err
		}
	}
	op.Track = keep
	return nil
}

func flip(o byte) byte {
	if o == 0 {
		return 1
	}
	return 0
}

func clamp01(f float64) float64 { return min(max(f, 0), 1) }
