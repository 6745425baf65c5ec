package geometry

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// Epsilon is the absolute tolerance used for every geometric comparison.
const Epsilon = 1e-9

// Equal reports whether a and b are within Epsilon of each other.
func Equal(a, b float64) bool { return scalar.EqualWithinAbs(a, b, Epsilon) }

// Point is a position in world meters.
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) Add(q Point) Point        { return Point{X: p.X + q.X, Y: p.Y + q.Y} }
func (p Point) Sub(q Point) Point        { return Point{X: p.X - q.X, Y: p.Y - q.Y} }
func (p Point) Mul(s float64) Point      { return Point{X: p.X * s, Y: p.Y * s} }
func (p Point) Dot(q Point) float64      { return p.X*q.X + p.Y*q.Y }
func (p Point) Cross(q Point) float64    { return p.X*q.Y - p.Y*q.X }
func (p Point) Length() float64          { return math.Hypot(p.X, p.Y) }
func (p Point) Distance(q Point) float64 { return p.Sub(q).Length() }

// Lerp interpolates linearly from p (t=0) to q (t=1).
func (p Point) Lerp(q Point, t float64) Point {
	return Point{X: p.X + (q.X-p.X)*t, Y: p.Y + (q.Y-p.Y)*t}
}

// Equal reports whether both coordinates are within Epsilon.
func (p Point) Equal(q Point) bool { return Equal(p.X, q.X) && Equal(p.Y, q.Y) }

// Angle returns the direction of p seen as a vector, in radians.
func (p Point) Angle() float64 { return math.Atan2(p.Y, p.X) }

// Polar returns the point at distance r from the origin in direction angle.
func Polar(r, angle float64) Point {
	return Point{X: r * math.Cos(angle), Y: r * math.Sin(angle)}
}
