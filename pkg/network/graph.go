package network

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/trackyard/trackyard/pkg/errors"
	"github.com/trackyard/trackyard/pkg/geometry"
	"github.com/trackyard/trackyard/pkg/world"
)

// occupancyStep is the sampling distance used to find the segments a track
// crosses.
const occupancyStep = world.SegmentSize / 8

// Graph is the authoritative network. It owns the world and is changed only
// through SynchronizeWith.
type Graph struct {
	world        *world.World
	vertices     map[int64]*Vertex
	tracks       map[int64]*Track
	nextVertexID int64
	nextTrackID  int64
}

// Changes reports what a commit did, by ID. Added IDs are in allocation
// order; the other lists follow the order of the edit's pools.
type Changes struct {
	AddedVertices   []int64 `json:"added_vertices,omitempty"`
	UpdatedVertices []int64 `json:"updated_vertices,omitempty"`
	DeletedVertices []int64 `json:"deleted_vertices,omitempty"`
	AddedTracks     []int64 `json:"added_tracks,omitempty"`
	UpdatedTracks   []int64 `json:"updated_tracks,omitempty"`
	DeletedTracks   []int64 `json:"deleted_tracks,omitempty"`
}

// Empty reports whether the commit changed nothing.
func (c Changes) Empty() bool {
	return len(c.AddedVertices)+len(c.UpdatedVertices)+len(c.DeletedVertices)+
		len(c.AddedTracks)+len(c.UpdatedTracks)+len(c.DeletedTracks) == 0
}

func (c Changes) String() string {
	return fmt.Sprintf("vertices +%d ~%d -%d, tracks +%d ~%d -%d",
		len(c.AddedVertices), len(c.UpdatedVertices), len(c.DeletedVertices),
		len(c.AddedTracks), len(c.UpdatedTracks), len(c.DeletedTracks))
}

// New creates an empty graph over w. IDs start at 1.
func New(w *world.World) *Graph {
	return &Graph{
		world:        w,
		vertices:     make(map[int64]*Vertex),
		tracks:       make(map[int64]*Track),
		nextVertexID: 1,
		nextTrackID:  1,
	}
}

// World returns the world the graph lives in.
func (g *Graph) World() *world.World { return g.world }

// Edit opens a working copy for one edit gesture.
func (g *Graph) Edit() *EditableGraph { return newEditableGraph(g) }

// Vertex returns the vertex with the given ID, or nil.
func (g *Graph) Vertex(id int64) *Vertex { return g.vertices[id] }

// Track returns the track with the given ID, or nil.
func (g *Graph) Track(id int64) *Track { return g.tracks[id] }

// Vertices returns all vertices ordered by ID.
func (g *Graph) Vertices() []*Vertex {
	out := make([]*Vertex, 0, len(g.vertices))
	for _, id := range slices.Sorted(maps.Keys(g.vertices)) {
		out = append(out, g.vertices[id])
	}
	return out
}

// Tracks returns all tracks ordered by ID.
func (g *Graph) Tracks() []*Track {
	out := make([]*Track, 0, len(g.tracks))
	for _, id := range slices.Sorted(maps.Keys(g.tracks)) {
		out = append(out, g.tracks[id])
	}
	return out
}

// VertexCount returns the number of vertices.
func (g *Graph) VertexCount() int { return len(g.vertices) }

// TrackCount returns the number of tracks.
func (g *Graph) TrackCount() int { return len(g.tracks) }

// NextIDs returns the IDs the next commit will hand out first.
func (g *Graph) NextIDs() (vertex, track int64) { return g.nextVertexID, g.nextTrackID }

// VerticesIn returns the vertices inside the rectangle spanned by two
// corners, ordered by ID. The lookup goes through the segment index.
func (g *Graph) VerticesIn(x0, y0, x1, y1 float64) []*Vertex {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	var ids []int64
	for _, s := range g.world.SegmentsIn(x0, y0, x1, y1) {
		for _, id := range s.VertexIDs() {
			p := g.vertices[id].Position()
			if p.X >= x0 && p.X <= x1 && p.Y >= y0 && p.Y <= y1 {
				ids = append(ids, id)
			}
		}
	}
	slices.Sort(ids)
	out := make([]*Vertex, len(ids))
	for i, id := range ids {
		out[i] = g.vertices[id]
	}
	return out
}

// SynchronizeWith commits eg into the graph.
//
// Vertices are committed first, then tracks, each by the same rule: elements
// without an ID get the next ID and a fresh authoritative record, deleted
// elements are removed, and the rest are copied onto the existing record in
// place. Deleted tracks are unhooked from their authoritative endpoints. A
// final pass relinks every touched record by ID so that no working copy or
// ghost survives in the graph, and the segment index follows every moved
// vertex.
//
// The edit is checked before anything is changed; a rejected edit leaves the
// graph untouched. A missing ID during relinking is an invariant violation
// and panics.
func (g *Graph) SynchronizeWith(eg *EditableGraph) (Changes, error) {
	if err := g.checkEdit(eg); err != nil {
		return Changes{}, err
	}
	eg.committed = true

	var ch Changes
	var linkedVertices []*Vertex
	var linkedTracks []*Track

	for _, v := range eg.Vertices() {
		switch {
		case v.id == NoID && v.deleted:
			// created and dropped within the same edit
		case v.id == NoID:
			v.id = g.nextVertexID
			g.nextVertexID++
			g.vertices[v.id] = v.Fork()
			v.segment.Index(v.id)
			ch.AddedVertices = append(ch.AddedVertices, v.id)
			linkedVertices = append(linkedVertices, v)
		case v.deleted:
			auth := g.vertices[v.id]
			auth.segment.Unindex(v.id)
			delete(g.vertices, v.id)
			ch.DeletedVertices = append(ch.DeletedVertices, v.id)
		default:
			auth := g.vertices[v.id]
			if auth.segment != v.segment {
				auth.segment.Unindex(v.id)
				v.segment.Index(v.id)
			}
			auth.copyFrom(v)
			ch.UpdatedVertices = append(ch.UpdatedVertices, v.id)
			linkedVertices = append(linkedVertices, v)
		}
	}

	for _, t := range eg.Tracks() {
		switch {
		case t.id == NoID && t.deleted:
		case t.id == NoID:
			t.id = g.nextTrackID
			g.nextTrackID++
			g.tracks[t.id] = t.Fork()
			ch.AddedTracks = append(ch.AddedTracks, t.id)
			linkedTracks = append(linkedTracks, t)
		case t.deleted:
			auth := g.tracks[t.id]
			for _, v := range auth.vertices {
				if v != nil {
					v.detach(auth)
				}
			}
			delete(g.tracks, t.id)
			ch.DeletedTracks = append(ch.DeletedTracks, t.id)
		default:
			g.tracks[t.id].CopyFrom(t)
			ch.UpdatedTracks = append(ch.UpdatedTracks, t.id)
			linkedTracks = append(linkedTracks, t)
		}
	}

	for _, t := range linkedTracks {
		auth := g.tracks[t.id]
		for slot, v := range t.vertices {
			auth.vertices[slot] = g.mustVertex(v.ID())
		}
	}
	for _, v := range linkedVertices {
		auth := g.vertices[v.id]
		for slot, t := range v.tracks {
			if t == nil {
				auth.tracks[slot] = nil
				continue
			}
			auth.tracks[slot] = g.mustTrack(t.id)
		}
	}
	return ch, nil
}

func (g *Graph) mustVertex(id int64) *Vertex {
	v, ok := g.vertices[id]
	if !ok {
		panic(fmt.Sprintf("network: relink references missing vertex %d", id))
	}
	return v
}

func (g *Graph) mustTrack(id int64) *Track {
	t, ok := g.tracks[id]
	if !ok {
		panic(fmt.Sprintf("network: relink references missing track %d", id))
	}
	return t
}

// checkEdit verifies that committing eg cannot leave a dangling reference.
func (g *Graph) checkEdit(eg *EditableGraph) error {
	if eg == nil || eg.graph != g {
		return errors.Consistency("edit does not belong to this graph")
	}
	if eg.committed {
		return errors.Precondition("edit has already been committed")
	}
	for id := range eg.existingVertices {
		if _, ok := g.vertices[id]; !ok {
			return errors.Consistency("forked vertex %d no longer exists", id)
		}
	}
	for id := range eg.existingTracks {
		if _, ok := g.tracks[id]; !ok {
			return errors.Consistency("forked track %d no longer exists", id)
		}
	}

	for _, t := range eg.Tracks() {
		if t.deleted {
			continue
		}
		for slot, v := range t.vertices {
			switch {
			case v == nil:
				return errors.Consistency("track %d has no vertex in slot %d", t.id, slot)
			case v.ghost:
				if t.id == NoID {
					return errors.Consistency("new track ends at unforked vertex %d", v.ID())
				}
				if v.origin.SlotOf(g.tracks[t.id]) < 0 {
					return errors.Consistency("track %d moved away from unforked vertex %d", t.id, v.ID())
				}
			case !eg.Contains(v):
				return errors.Consistency("track %d references vertex %d outside this edit", t.id, v.ID())
			case v.deleted:
				return errors.Consistency("track %d references deleted vertex %d", t.id, v.ID())
			case v.SlotOf(t) < 0:
				return errors.Consistency("vertex %d does not reference track %d", v.ID(), t.id)
			}
		}
	}

	for _, v := range eg.Vertices() {
		for _, t := range v.tracks {
			if t == nil {
				continue
			}
			if !eg.ContainsTrack(t) {
				return errors.Consistency("vertex %d references track %d outside this edit", v.ID(), t.id)
			}
			switch {
			case t.deleted && !v.deleted:
				return errors.Consistency("vertex %d references deleted track %d", v.ID(), t.id)
			case v.deleted && !t.deleted:
				return errors.Consistency("deleted vertex %d still carries track %d", v.ID(), t.id)
			}
		}
	}
	return nil
}

// Validate checks the graph for broken back references, ghosts, objects out
// of range and segment index drift. It returns the first problem found.
func (g *Graph) Validate() error {
	for _, t := range g.Tracks() {
		for slot, v := range t.vertices {
			switch {
			case v == nil:
				return errors.Consistency("track %d has no vertex in slot %d", t.id, slot)
			case v.ghost:
				return errors.Consistency("track %d references a ghost of vertex %d", t.id, v.ID())
			case g.vertices[v.id] != v:
				return errors.Consistency("track %d references unknown vertex %d", t.id, v.id)
			case v.SlotOf(t) < 0:
				return errors.Consistency("vertex %d does not reference track %d", v.id, t.id)
			}
		}
		for _, o := range t.objects {
			if err := errors.ValidateFraction(o.Position); err != nil {
				return errors.Wrap(errors.ErrCodeGraphConsistency, err, "track %d object %q", t.id, o.Name)
			}
		}
	}
	for _, v := range g.Vertices() {
		if v.ghost {
			return errors.Consistency("ghost vertex %d in graph", v.id)
		}
		if !v.segment.Holds(v.id) {
			return errors.Consistency("vertex %d missing from segment (%d,%d)", v.id, v.segment.X(), v.segment.Y())
		}
		for _, t := range v.tracks {
			if t == nil {
				continue
			}
			if g.tracks[t.id] != t {
				return errors.Consistency("vertex %d references unknown track %d", v.id, t.id)
			}
			if t.SlotOf(v) < 0 {
				return errors.Consistency("track %d does not reference vertex %d", t.id, v.id)
			}
		}
	}
	return nil
}

// Occupancy returns a fresh [x][y] grid that is true for every segment
// holding a vertex or crossed by a track. It is recomputed from the graph on
// every call; track crossings are sampled every occupancyStep meters.
func (g *Graph) Occupancy() [][]bool {
	grid := g.world.NewGrid()
	mark := func(p geometry.Point) {
		if s := g.world.FindSegment(p.X, p.Y); s != nil {
			grid[s.X()][s.Y()] = true
		}
	}
	for _, v := range g.vertices {
		mark(v.Position())
	}
	for _, t := range g.tracks {
		s := t.Shape()
		if s == nil {
			continue
		}
		pts := Polyline(s, 1)
		for i := 1; i < len(pts); i++ {
			a, b := pts[i-1], pts[i]
			n := max(1, int(math.Ceil(a.Distance(b)/occupancyStep)))
			for k := 0; k <= n; k++ {
				mark(a.Lerp(b, float64(k)/float64(n)))
			}
		}
	}
	return grid
}
