package geometry

import "math"

// maxFlattenDepth bounds the subdivision recursion for pathological inputs.
const maxFlattenDepth = 16

// Cubic is a cubic Bezier curve with endpoints P0, P3 and control points P1, P2.
type Cubic struct {
	P0, P1, P2, P3 Point
}

// PointAt evaluates the curve at parameter t in [0, 1].
func (c Cubic) PointAt(t float64) Point {
	mt := 1 - t
	a := mt * mt * mt
	b := 3 * mt * mt * t
	d := 3 * mt * t * t
	e := t * t * t
	return Point{
		X: a*c.P0.X + b*c.P1.X + d*c.P2.X + e*c.P3.X,
		Y: a*c.P0.Y + b*c.P1.Y + d*c.P2.Y + e*c.P3.Y,
	}
}

// Flatten approximates the curve by a polyline whose points stay within
// tolerance of the curve. The first point is P0 and the last is P3.
func (c Cubic) Flatten(tolerance float64) []Point {
	points := []Point{c.P0}
	flattenCubic(c.P0, c.P1, c.P2, c.P3, tolerance, 0, &points)
	return points
}

func flattenCubic(p0, p1, p2, p3 Point, tolerance float64, depth int, points *[]Point) {
	chord := Segment{P0: p0, P1: p3}
	dist := math.Max(DistanceToSegment(chord, p1), DistanceToSegment(chord, p2))
	if dist < tolerance || depth >= maxFlattenDepth {
		*points = append(*points, p3)
		return
	}

	// de Casteljau split at t = 0.5
	q0 := p0.Lerp(p1, 0.5)
	q1 := p1.Lerp(p2, 0.5)
	q2 := p2.Lerp(p3, 0.5)
	r0 := q0.Lerp(q1, 0.5)
	r1 := q1.Lerp(q2, 0.5)
	s := r0.Lerp(r1, 0.5)

	flattenCubic(p0, q0, r0, s, tolerance, depth+1, points)
	flattenCubic(s, r1, q2, p3, tolerance, depth+1, points)
}

// Length approximates the curve length from a fine flattening.
func (c Cubic) Length() float64 {
	pts := c.Flatten(0.01)
	var l float64
	for i := 1; i < len(pts); i++ {
		l += pts[i-1].Distance(pts[i])
	}
	return l
}

// Project returns the parameter of the point on the curve closest to p.
func (c Cubic) Project(p Point) float64 {
	const samples = 64
	best, bestD := 0.0, math.Inf(1)
	for i := 0; i <= samples; i++ {
		t := float64(i) / samples
		if d := p.Distance(c.PointAt(t)); d < bestD {
			best, bestD = t, d
		}
	}
	step := 1.0 / samples
	for step > Epsilon {
		step /= 2
		for _, t := range [2]float64{best - step, best + step} {
			if t < 0 || t > 1 {
				continue
			}
			if d := p.Distance(c.PointAt(t)); d < bestD {
				best, bestD = t, d
			}
		}
	}
	return best
}
