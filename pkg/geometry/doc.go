// Package geometry provides the numeric primitives behind track shapes.
//
// # Overview
//
// Everything here is a pure function over small value types: [Point],
// [Line] (general form Ax+By+C=0), [Circle], [Arc], [Cubic] and [Segment].
// Nothing allocates state or keeps caches, so the functions are safe to call
// from any goroutine.
//
// # Tolerance
//
// Floating point comparisons go through [Epsilon] via [Equal] instead of ==.
// Lines built by [ToGeneral], [LineThrough] and [ToOrthogonal] are normalized
// (A²+B² = 1) so that evaluating a point yields its signed distance in meters.
//
// # No-solution results
//
// Degenerate inputs are reported, not panicked on: [Intersection] returns
// false for parallel lines, [CircleLineIntersection] returns a count of 0 when
// the line misses the circle and 1 (with both points equal) when it is tangent,
// and [ArcFromTangent] returns false when the far point lies on the tangent
// line, which callers treat as "this track is straight".
package geometry
