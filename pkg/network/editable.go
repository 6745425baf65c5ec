package network

import (
	"github.com/trackyard/trackyard/pkg/errors"
	"github.com/trackyard/trackyard/pkg/world"
)

// EditableGraph is the working copy of one edit gesture. It holds elements
// created during the gesture (the new pools) and forked copies of
// authoritative elements (the existing pools), both in insertion order.
//
// An EditableGraph is bound to the Graph that created it and is committed at
// most once.
type EditableGraph struct {
	graph *Graph

	newVertices []*Vertex
	newTracks   []*Track

	existingVertices map[int64]*Vertex
	existingTracks   map[int64]*Track
	vertexOrder      []int64
	trackOrder       []int64

	ghosts map[int64]*Vertex

	// owned holds every working record, new or forked.
	ownedVertices map[*Vertex]struct{}
	ownedTracks   map[*Track]struct{}

	committed bool
}

func newEditableGraph(g *Graph) *EditableGraph {
	return &EditableGraph{
		graph:            g,
		existingVertices: make(map[int64]*Vertex),
		existingTracks:   make(map[int64]*Track),
		ghosts:           make(map[int64]*Vertex),
		ownedVertices:    make(map[*Vertex]struct{}),
		ownedTracks:      make(map[*Track]struct{}),
	}
}

// Graph returns the authoritative graph this edit is bound to.
func (eg *EditableGraph) Graph() *Graph { return eg.graph }

// World returns the world of the bound graph.
func (eg *EditableGraph) World() *world.World { return eg.graph.world }

// Contains reports whether v is a working record of this edit. Ghosts are
// not working records.
func (eg *EditableGraph) Contains(v *Vertex) bool {
	_, ok := eg.ownedVertices[v]
	return ok
}

// ContainsTrack reports whether t is a working record of this edit.
func (eg *EditableGraph) ContainsTrack(t *Track) bool {
	_, ok := eg.ownedTracks[t]
	return ok
}

// Lookup returns the working copy of the vertex with the given ID, if forked.
func (eg *EditableGraph) Lookup(id int64) (*Vertex, bool) {
	v, ok := eg.existingVertices[id]
	return v, ok
}

// LookupTrack returns the working copy of the track with the given ID, if
// forked.
func (eg *EditableGraph) LookupTrack(id int64) (*Track, bool) {
	t, ok := eg.existingTracks[id]
	return t, ok
}

// Vertices returns the new vertices followed by the forked ones, each in
// insertion order. Ghosts are not included.
func (eg *EditableGraph) Vertices() []*Vertex {
	out := make([]*Vertex, 0, len(eg.newVertices)+len(eg.vertexOrder))
	out = append(out, eg.newVertices...)
	for _, id := range eg.vertexOrder {
		out = append(out, eg.existingVertices[id])
	}
	return out
}

// Tracks returns the new tracks followed by the forked ones, each in
// insertion order.
func (eg *EditableGraph) Tracks() []*Track {
	out := make([]*Track, 0, len(eg.newTracks)+len(eg.trackOrder))
	out = append(out, eg.newTracks...)
	for _, id := range eg.trackOrder {
		out = append(out, eg.existingTracks[id])
	}
	return out
}

// Fork returns the working copy of v, creating it on first use. Every track
// touching v is forked as well; their far endpoints resolve to working copies
// when already forked and to ghosts otherwise. Forking is idempotent, and
// forking a working copy or a ghost of this edit returns the working copy.
func (eg *EditableGraph) Fork(v *Vertex) (*Vertex, error) {
	if err := eg.writable(); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "cannot fork a nil vertex")
	}
	if eg.Contains(v) {
		return v, nil
	}
	if v.ghost {
		if fv, ok := eg.existingVertices[v.origin.id]; ok {
			return fv, nil
		}
		if g, ok := eg.ghosts[v.origin.id]; !ok || g != v {
			return nil, errors.Consistency("ghost of vertex %d belongs to another edit", v.origin.id)
		}
		v = v.origin
	}
	if v.id == NoID || eg.graph.vertices[v.id] != v {
		return nil, errors.Consistency("vertex %d is not part of this graph", v.id)
	}
	if fv, ok := eg.existingVertices[v.id]; ok {
		return fv, nil
	}

	fv := v.Fork()
	eg.existingVertices[v.id] = fv
	eg.vertexOrder = append(eg.vertexOrder, v.id)
	eg.ownedVertices[fv] = struct{}{}
	eg.replaceGhost(v.id, fv)

	for slot, t := range v.tracks {
		if t == nil {
			continue
		}
		ft, err := eg.ForkTrack(t)
		if err != nil {
			return nil, err
		}
		fv.tracks[slot] = ft
	}
	return fv, nil
}

// ForkTrack returns the working copy of t, creating it on first use. Its
// endpoints resolve to working copies when forked and to ghosts otherwise.
func (eg *EditableGraph) ForkTrack(t *Track) (*Track, error) {
	if err := eg.writable(); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "cannot fork a nil track")
	}
	if eg.ContainsTrack(t) {
		return t, nil
	}
	if t.id == NoID || eg.graph.tracks[t.id] != t {
		return nil, errors.Consistency("track %d is not part of this graph", t.id)
	}
	if ft, ok := eg.existingTracks[t.id]; ok {
		return ft, nil
	}

	ft := t.Fork()
	eg.existingTracks[t.id] = ft
	eg.trackOrder = append(eg.trackOrder, t.id)
	eg.ownedTracks[ft] = struct{}{}
	for slot, v := range t.vertices {
		if v != nil {
			ft.vertices[slot] = eg.resolve(v)
		}
	}
	return ft, nil
}

// resolve maps an authoritative vertex to its working copy or ghost.
func (eg *EditableGraph) resolve(v *Vertex) *Vertex {
	if fv, ok := eg.existingVertices[v.id]; ok {
		return fv
	}
	if g, ok := eg.ghosts[v.id]; ok {
		return g
	}
	g := newGhost(v)
	eg.ghosts[v.id] = g
	return g
}

// replaceGhost swaps every reference to the ghost of id for fv.
func (eg *EditableGraph) replaceGhost(id int64, fv *Vertex) {
	g, ok := eg.ghosts[id]
	if !ok {
		return
	}
	delete(eg.ghosts, id)
	for _, t := range eg.Tracks() {
		for slot, v := range t.vertices {
			if v == g {
				t.vertices[slot] = fv
			}
		}
	}
}

// AddVertex registers a vertex created during this edit. Persisted vertices
// must be forked instead.
func (eg *EditableGraph) AddVertex(v *Vertex) error {
	if err := eg.writable(); err != nil {
		return err
	}
	switch {
	case v == nil:
		return errors.New(errors.ErrCodeInvalidArgument, "cannot add a nil vertex")
	case v.ghost:
		return errors.Consistency("cannot add a ghost of vertex %d", v.origin.id)
	case v.id != NoID:
		return errors.New(errors.ErrCodeInvalidArgument, "vertex %d is already persisted; fork it instead", v.id)
	case eg.Contains(v):
		return nil
	}
	eg.newVertices = append(eg.newVertices, v)
	eg.ownedVertices[v] = struct{}{}
	return nil
}

// AddTrack registers a track created during this edit. Both endpoints must be
// working records of this edit.
func (eg *EditableGraph) AddTrack(t *Track) error {
	if err := eg.writable(); err != nil {
		return err
	}
	switch {
	case t == nil:
		return errors.New(errors.ErrCodeInvalidArgument, "cannot add a nil track")
	case t.id != NoID:
		return errors.New(errors.ErrCodeInvalidArgument, "track %d is already persisted; fork it instead", t.id)
	case eg.ContainsTrack(t):
		return nil
	}
	for slot, v := range t.vertices {
		if v != nil && !eg.Contains(v) {
			return errors.Consistency("track endpoint %d (vertex %d) is not part of this edit", slot, v.ID())
		}
	}
	eg.newTracks = append(eg.newTracks, t)
	eg.ownedTracks[t] = struct{}{}
	return nil
}

// NewVertex creates and registers a vertex at the absolute position (x, y).
func (eg *EditableGraph) NewVertex(x, y float64) (*Vertex, error) {
	if err := eg.writable(); err != nil {
		return nil, err
	}
	v, err := NewVertex(eg.graph.world, x, y)
	if err != nil {
		return nil, err
	}
	return v, eg.AddVertex(v)
}

// NewTrack creates a track of the given kind from a to b, attaching it to the
// first free slot of each. Both vertices must be working records with a free
// slot.
func (eg *EditableGraph) NewTrack(kind Kind, a, b *Vertex) (*Track, error) {
	if err := eg.writable(); err != nil {
		return nil, err
	}
	if a == b {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "a track needs two distinct vertices")
	}
	for _, v := range []*Vertex{a, b} {
		if err := eg.owned(v); err != nil {
			return nil, err
		}
		if v.FreeSlot() < 0 {
			return nil, errors.Precondition("vertex %d has no free track slot", v.ID())
		}
	}
	t := newTrack(kind)
	if kind == Curved {
		t.angle = b.Position().Sub(a.Position()).Angle()
	}
	t.vertices = [2]*Vertex{a, b}
	a.setTrack(a.FreeSlot(), t)
	b.setTrack(b.FreeSlot(), t)
	return t, eg.AddTrack(t)
}

// Link attaches the given end of t to v, detaching the vertex that held it
// before. A ghost that loses the track is forked first.
func (eg *EditableGraph) Link(t *Track, slot int, v *Vertex) error {
	if err := eg.writable(); err != nil {
		return err
	}
	if !eg.ContainsTrack(t) {
		return errors.Consistency("track %d is not part of this edit", t.ID())
	}
	if slot < 0 || slot > 1 {
		return errors.New(errors.ErrCodeInvalidArgument, "invalid track slot %d", slot)
	}
	if err := eg.owned(v); err != nil {
		return err
	}
	if t.vertices[slot] == v {
		return nil
	}
	if t.vertices[1-slot] == v {
		return errors.New(errors.ErrCodeInvalidArgument, "track %d would connect vertex %d to itself", t.ID(), v.ID())
	}
	if v.SlotOf(t) < 0 && v.FreeSlot() < 0 {
		return errors.Precondition("vertex %d has no free track slot", v.ID())
	}

	if prev := t.vertices[slot]; prev != nil {
		pv, err := eg.materialize(prev)
		if err != nil {
			return err
		}
		pv.detach(t)
	}
	t.vertices[slot] = v
	if v.SlotOf(t) < 0 {
		v.setTrack(v.FreeSlot(), t)
	}
	return nil
}

// Unlink detaches t from v on both sides, leaving the track slot empty.
func (eg *EditableGraph) Unlink(t *Track, v *Vertex) error {
	if err := eg.writable(); err != nil {
		return err
	}
	if !eg.ContainsTrack(t) {
		return errors.Consistency("track %d is not part of this edit", t.ID())
	}
	slot := t.SlotOf(v)
	if slot < 0 {
		return errors.New(errors.ErrCodeInvalidArgument, "vertex %d is not an endpoint of track %d", v.ID(), t.ID())
	}
	wv, err := eg.materialize(t.vertices[slot])
	if err != nil {
		return err
	}
	wv.detach(t)
	t.vertices[slot] = nil
	return nil
}

// RemoveTrack marks t deleted and detaches it from both endpoints. The track
// keeps its vertex references so the commit can unhook it by ID.
func (eg *EditableGraph) RemoveTrack(t *Track) error {
	if err := eg.writable(); err != nil {
		return err
	}
	if !eg.ContainsTrack(t) {
		return errors.Consistency("track %d is not part of this edit", t.ID())
	}
	for slot, v := range t.vertices {
		if v == nil {
			continue
		}
		wv, err := eg.materialize(v)
		if err != nil {
			return err
		}
		wv.detach(t)
		t.vertices[slot] = wv
	}
	t.MarkAsDeleted()
	return nil
}

// RemoveVertex marks v deleted together with every track attached to it.
func (eg *EditableGraph) RemoveVertex(v *Vertex) error {
	if err := eg.writable(); err != nil {
		return err
	}
	if err := eg.owned(v); err != nil {
		return err
	}
	for _, t := range v.Tracks() {
		if err := eg.RemoveTrack(t); err != nil {
			return err
		}
	}
	return v.MarkAsDeleted()
}

// MoveByVector moves every given vertex by (dx, dy) meters, or none of them.
// It returns false when the move is rejected and an error when a vertex is
// not a working record of this edit.
func (eg *EditableGraph) MoveByVector(dx, dy float64, vs ...*Vertex) (bool, error) {
	if err := eg.writable(); err != nil {
		return false, err
	}
	seen := make(map[*Vertex]struct{}, len(vs))
	set := make([]*Vertex, 0, len(vs))
	for _, v := range vs {
		if err := eg.owned(v); err != nil {
			return false, err
		}
		if v.IsDeleted() {
			return false, errors.Precondition("vertex %d is deleted", v.ID())
		}
		if _, dup := seen[v]; !dup {
			seen[v] = struct{}{}
			set = append(set, v)
		}
	}

	for _, v := range set {
		if err := v.RegisterUpdate(eg.graph.world, dx, dy); err != nil {
			rollback(set)
			return false, err
		}
	}
	for _, v := range set {
		if !v.IsUpdatePossible() {
			rollback(set)
			return false, nil
		}
	}
	for _, v := range set {
		v.ApplyUpdate()
	}
	return true, nil
}

func rollback(vs []*Vertex) {
	for _, v := range vs {
		v.RollbackUpdate()
	}
}

// materialize returns the working record behind v, forking ghosts.
func (eg *EditableGraph) materialize(v *Vertex) (*Vertex, error) {
	if v.ghost {
		return eg.Fork(v)
	}
	if !eg.Contains(v) {
		return nil, errors.Consistency("vertex %d is not part of this edit", v.ID())
	}
	return v, nil
}

func (eg *EditableGraph) owned(v *Vertex) error {
	if v == nil {
		return errors.New(errors.ErrCodeInvalidArgument, "nil vertex")
	}
	if v.ghost {
		return errors.Consistency("vertex %d is a ghost; fork it first", v.ID())
	}
	if !eg.Contains(v) {
		return errors.Consistency("vertex %d is not part of this edit", v.ID())
	}
	return nil
}

func (eg *EditableGraph) writable() error {
	if eg.committed {
		return errors.Precondition("edit has already been committed")
	}
	return nil
}
