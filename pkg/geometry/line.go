package geometry

import (
	"cmp"
	"math"
	"slices"
)

// Line is a line in general form: A*x + B*y + C = 0.
type Line struct {
	A, B, C float64
}

// Eval returns A*x + B*y + C. For a normalized line this is the signed
// distance of p from the line.
func (l Line) Eval(p Point) float64 { return l.A*p.X + l.B*p.Y + l.C }

// Contains reports whether p lies on the line within Epsilon.
func (l Line) Contains(p Point) bool { return Equal(l.normalize().Eval(p), 0) }

// Direction returns a unit vector along the line.
func (l Line) Direction() Point {
	n := l.normalize()
	return Point{X: n.B, Y: -n.A}
}

func (l Line) normalize() Line {
	h := math.Hypot(l.A, l.B)
	if h == 0 || Equal(h, 1) {
		return l
	}
	return Line{A: l.A / h, B: l.B / h, C: l.C / h}
}

// ToGeneral converts a point and a tangent angle (radians) into a normalized
// line passing through (x, y) in direction angle.
func ToGeneral(x, y, angle float64) Line {
	a := -math.Sin(angle)
	b := math.Cos(angle)
	return Line{A: a, B: b, C: -(a*x + b*y)}
}

// LineThrough returns the normalized line through p and q. It returns false
// when the points coincide.
func LineThrough(p, q Point) (Line, bool) {
	d := q.Sub(p)
	if Equal(d.Length(), 0) {
		return Line{}, false
	}
	return ToGeneral(p.X, p.Y, d.Angle()), true
}

// ToOrthogonal returns the normalized line perpendicular to l passing through
// (x, y).
func ToOrthogonal(l Line, x, y float64) Line {
	n := l.normalize()
	a, b := -n.B, n.A
	return Line{A: a, B: b, C: -(a*x + b*y)}
}

// Intersection returns the intersection point of two lines. It returns false
// when the lines are parallel (or coincident) within Epsilon; callers must
// branch on that instead of trusting the point.
func Intersection(l1, l2 Line) (Point, bool) {
	a, b := l1.normalize(), l2.normalize()
	det := a.A*b.B - b.A*a.B
	if Equal(det, 0) {
		return Point{}, false
	}
	return Point{
		X: (a.B*b.C - b.B*a.C) / det,
		Y: (b.A*a.C - a.A*b.C) / det,
	}, true
}

// OnWhichSide reports on which side of the directed line a→b the point p lies:
// +1 to the left (counter-clockwise), -1 to the right, 0 when collinear within
// Epsilon.
func OnWhichSide(a, b, p Point) int {
	ab := b.Sub(a)
	l := ab.Length()
	if Equal(l, 0) {
		return 0
	}
	// Signed distance of p from the line, so the tolerance is in meters.
	d := ab.Cross(p.Sub(a)) / l
	switch {
	case Equal(d, 0):
		return 0
	case d > 0:
		return 1
	default:
		return -1
	}
}

// Segment is a straight piece between two endpoints.
type Segment struct {
	P0, P1 Point
}

// ProjectOntoSegment returns the fraction in [0, 1] of the orthogonal
// projection of p onto s. Degenerate segments project to 0.
func ProjectOntoSegment(s Segment, p Point) float64 {
	ab := s.P1.Sub(s.P0)
	l2 := ab.Dot(ab)
	if Equal(l2, 0) {
		return 0
	}
	t := p.Sub(s.P0).Dot(ab) / l2
	return math.Max(0, math.Min(1, t))
}

// DistanceToSegment returns the distance from p to the closest point of s.
func DistanceToSegment(s Segment, p Point) float64 {
	t := ProjectOntoSegment(s, p)
	return p.Distance(s.P0.Lerp(s.P1, t))
}

// Reorder canonicalizes endpoint pairs in place so that comparisons do not
// depend on the order the endpoints were supplied in.
//
// Each segment's endpoints are ordered along its dominant axis (the axis of
// the larger extent, X on ties), breaking ties on the other axis. The segments
// themselves are then sorted lexicographically. Any permutation of the same
// input yields identical output.
func Reorder(segs []Segment) {
	for i, s := range segs {
		if endpointLess(s.P1, s.P0, dominantX(s)) {
			segs[i] = Segment{P0: s.P1, P1: s.P0}
		}
	}
	slices.SortFunc(segs, func(a, b Segment) int {
		return cmp.Or(
			cmp.Compare(a.P0.X, b.P0.X),
			cmp.Compare(a.P0.Y, b.P0.Y),
			cmp.Compare(a.P1.X, b.P1.X),
			cmp.Compare(a.P1.Y, b.P1.Y),
		)
	})
}

func dominantX(s Segment) bool {
	return math.Abs(s.P1.X-s.P0.X) >= math.Abs(s.P1.Y-s.P0.Y)
}

func endpointLess(p, q Point, byX bool) bool {
	if byX {
		return cmp.Or(cmp.Compare(p.X, q.X), cmp.Compare(p.Y, q.Y)) < 0
	}
	return cmp.Or(cmp.Compare(p.Y, q.Y), cmp.Compare(p.X, q.X)) < 0
}
