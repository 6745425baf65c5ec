package geometry

import "math"

// Circle is given by its center and its squared radius.
type Circle struct {
	Center Point
	R2     float64
}

// CircleLineIntersection intersects a circle with a line.
//
// The count n is 0 when the line misses the circle (both points are the zero
// value), 1 when the line is tangent (p1 == p2, the touching point) and 2
// otherwise, in which case p1 precedes p2 along the line's direction.
func CircleLineIntersection(c Circle, l Line) (p1, p2 Point, n int) {
	nl := l.normalize()
	d := nl.Eval(c.Center)
	h2 := c.R2 - d*d
	tol := Epsilon * math.Max(1, c.R2)
	if h2 < -tol {
		return Point{}, Point{}, 0
	}
	foot := c.Center.Sub(Point{X: nl.A, Y: nl.B}.Mul(d))
	if h2 <= tol {
		return foot, foot, 1
	}
	h := math.Sqrt(h2)
	dir := Point{X: nl.B, Y: -nl.A}
	return foot.Sub(dir.Mul(h)), foot.Add(dir.Mul(h)), 2
}

// Arc is a circular arc. Angles are in radians; a positive Sweep runs
// counter-clockwise from Start.
type Arc struct {
	Center Point
	Radius float64
	Start  float64
	Sweep  float64
}

// ArcFromTangent returns the arc that leaves p0 in direction angle and ends at
// p1. It returns false when p1 lies on the tangent line through p0 (including
// p1 == p0); such a track is straight.
func ArcFromTangent(p0 Point, angle float64, p1 Point) (Arc, bool) {
	chord, ok := LineThrough(p0, p1)
	if !ok {
		return Arc{}, false
	}
	side := OnWhichSide(p0, p0.Add(Polar(1, angle)), p1)
	if side == 0 {
		return Arc{}, false
	}

	normal := ToOrthogonal(ToGeneral(p0.X, p0.Y, angle), p0.X, p0.Y)
	mid := p0.Lerp(p1, 0.5)
	bisector := ToOrthogonal(chord, mid.X, mid.Y)
	center, ok := Intersection(normal, bisector)
	if !ok {
		return Arc{}, false
	}

	start := p0.Sub(center).Angle()
	end := p1.Sub(center).Angle()
	sweep := normAngle(end - start)
	if side < 0 {
		sweep = -normAngle(start - end)
	}
	return Arc{Center: center, Radius: center.Distance(p0), Start: start, Sweep: sweep}, true
}

// PointAt returns the point at fraction t of the sweep.
func (a Arc) PointAt(t float64) Point {
	return a.Center.Add(Polar(a.Radius, a.Start+a.Sweep*t))
}

// TangentAt returns the direction of travel at fraction t.
func (a Arc) TangentAt(t float64) float64 {
	if a.Sweep < 0 {
		return a.Start + a.Sweep*t - math.Pi/2
	}
	return a.Start + a.Sweep*t + math.Pi/2
}

// Length returns the arc length.
func (a Arc) Length() float64 { return a.Radius * math.Abs(a.Sweep) }

// Project returns the fraction of the point on the arc closest to p. Points
// outside the swept angle snap to the nearer endpoint.
func (a Arc) Project(p Point) float64 {
	if Equal(a.Sweep, 0) {
		return 0
	}
	ang := p.Sub(a.Center).Angle()
	var rel float64
	if a.Sweep > 0 {
		rel = normAngle(ang - a.Start)
	} else {
		rel = normAngle(a.Start - ang)
	}
	span := math.Abs(a.Sweep)
	if rel <= span {
		return rel / span
	}
	if p.Distance(a.PointAt(0)) <= p.Distance(a.PointAt(1)) {
		return 0
	}
	return 1
}

// normAngle maps a into [0, 2π).
func normAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
