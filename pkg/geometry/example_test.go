package geometry_test

import (
	"fmt"
	"math"

	"github.com/trackyard/trackyard/pkg/geometry"
)

func ExampleCircleLineIntersection() {
	c := geometry.Circle{Center: geometry.Pt(0, 0), R2: 25}
	line := geometry.ToGeneral(0, 3, 0)

	p1, p2, n := geometry.CircleLineIntersection(c, line)
	fmt.Println("points:", n)
	fmt.Printf("%.1f %.1f\n", p1.X, p2.X)
	// Output:
	// points: 2
	// -4.0 4.0
}

func ExampleArcFromTangent() {
	arc, ok := geometry.ArcFromTangent(geometry.Pt(0, 0), 0, geometry.Pt(100, 100))
	fmt.Println("curved:", ok)
	fmt.Printf("radius %.0f, sweep %.0f°\n", arc.Radius, arc.Sweep*180/math.Pi)
	// Output:
	// curved: true
	// radius 100, sweep 90°
}
