// Package world partitions the network's plane into fixed-size square
// segments.
//
// # Segments
//
// A [Segment] covers [SegmentSize] × [SegmentSize] meters. Vertices are owned
// by a segment: a vertex position is its segment origin plus a local offset,
// so renumbering segments moves every vertex they own without touching the
// vertices themselves. Each segment keeps an index of the IDs of committed
// vertices it holds, used for visibility queries and to refuse shrinking a
// non-empty edge of the world.
//
// # Resizing
//
// A [World] is a grid indexed [x][y]. [World.Construct] resets it; the
// Extend* and Shrink* methods add or remove exactly one column or row on the
// given side. Existing segment values are never recreated, so extending and
// then shrinking the same side restores the original segment identities and
// coordinates.
//
// # Lookup
//
// [World.FindSegment] is O(1) and returns nil for coordinates outside the
// world. [World.Segment] does the same for grid indices.
//
// # Concurrency
//
// World instances are not safe for concurrent use; the owning graph
// serializes all access.
package world
