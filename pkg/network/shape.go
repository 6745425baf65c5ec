package network

import (
	"math"

	"github.com/trackyard/trackyard/pkg/geometry"
)

// Shape is the geometry of a track. The set of implementations is closed:
// StraightShape, ArcShape and CubicShape.
type Shape interface {
	// PointAt returns the point at parameter t in [0, 1].
	PointAt(t float64) geometry.Point
	// Length returns the arc length in meters.
	Length() float64
	// Project returns the parameter of the point closest to p.
	Project(p geometry.Point) float64

	isShape()
}

// StraightShape is a line segment.
type StraightShape struct {
	geometry.Segment
}

// ArcShape is a circular arc.
type ArcShape struct {
	geometry.Arc
}

// CubicShape is a cubic Bezier curve.
type CubicShape struct {
	geometry.Cubic
}

func (StraightShape) isShape() {}
func (ArcShape) isShape()      {}
func (CubicShape) isShape()    {}

// PointAt returns the point at fraction t between P0 and P1.
func (s StraightShape) PointAt(t float64) geometry.Point {
	return s.P0.Lerp(s.P1, t)
}

// Length returns the segment length.
func (s StraightShape) Length() float64 {
	return s.P0.Distance(s.P1)
}

// Project returns the fraction of the orthogonal projection of p.
func (s StraightShape) Project(p geometry.Point) float64 {
	return geometry.ProjectOntoSegment(s.Segment, p)
}

// Polyline approximates a shape with points no further than tolerance meters
// from the true curve.
func Polyline(s Shape, tolerance float64) []geometry.Point {
	switch s := s.(type) {
	case StraightShape:
		return []geometry.Point{s.P0, s.P1}
	case ArcShape:
		return arcPolyline(s.Arc, tolerance)
	case CubicShape:
		return s.Flatten(tolerance)
	}
	return nil
}

func arcPolyline(a geometry.Arc, tolerance float64) []geometry.Point {
	n := 2
	// Sagitta of a chord spanning angle θ is r(1-cos(θ/2)).
	for n < 512 && a.Radius*(1-math.Cos(math.Abs(a.Sweep)/float64(2*n))) > tolerance {
		n *= 2
	}
	pts := make([]geometry.Point, n+1)
	for i := range pts {
		pts[i] = a.PointAt(float64(i) / float64(n))
	}
	return pts
}
