// Package network holds the editable transportation-network graph.
//
// # Model
//
// A [Vertex] sits at a world position and connects up to two [Track] values.
// A Track joins exactly two vertices and has a geometric [Kind]: straight,
// curved (a circular arc defined by its tangent at the first vertex) or free
// (a cubic Bezier with two control offsets). Tracks carry an ordered list of
// [TrackObject] values such as stops, each positioned by a fraction in [0, 1]
// of the track length.
//
// # Editing
//
// The authoritative [Graph] is never mutated directly. An edit gesture opens
// an [EditableGraph] with [Graph.Edit], forks the elements it wants to change
// and creates new ones, then commits with [Graph.SynchronizeWith]:
//
//	eg := g.Edit()
//	v, _ := eg.Fork(g.Vertex(1))
//	ok, err := eg.MoveByVector(10, 0, v)
//	if err == nil && ok {
//	    changes, err := g.SynchronizeWith(eg)
//	}
//
// Forking a vertex also forks every track touching it. The far end of such a
// track becomes a ghost vertex: a read-only handle on the authoritative vertex
// that is replaced by a real working copy as soon as that vertex is forked
// too. Ghosts are never returned by [EditableGraph.Vertices] and are never
// committed.
//
// Dropping an EditableGraph discards the edit; it holds no resources.
//
// # Moves
//
// Vertex moves use a two-phase protocol: [Vertex.RegisterUpdate] records a
// tentative position, [Vertex.IsUpdatePossible] checks it, and
// [Vertex.ApplyUpdate] or [Vertex.RollbackUpdate] settles it. A move is legal
// when the target lies inside the world and every attached track keeps a
// chord of at least [MinTrackLength]. [EditableGraph.MoveByVector] runs the
// protocol over a set of vertices and moves all of them or none.
//
// # Identity
//
// Vertex and track IDs are allocated by the Graph on commit, starting at 1,
// in the order elements were added to the EditableGraph. IDs are never
// reused. Unpersisted elements carry [NoID].
//
// # Concurrency
//
// Nothing in this package is safe for concurrent use. Callers serialize all
// access to a Graph and must not open an edit while a commit is running.
package network
