package geometry

import (
	"math"
	"testing"
)

func TestToGeneral(t *testing.T) {
	tests := []struct {
		name  string
		x, y  float64
		angle float64
	}{
		{"horizontal", 3, 4, 0},
		{"vertical", -2, 7, math.Pi / 2},
		{"diagonal", 10, 10, math.Pi / 4},
		{"backwards", 1, 1, 3 * math.Pi / 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := ToGeneral(tt.x, tt.y, tt.angle)
			if !Equal(math.Hypot(l.A, l.B), 1) {
				t.Errorf("line not normalized: %+v", l)
			}
			if !l.Contains(Pt(tt.x, tt.y)) {
				t.Errorf("line %+v does not contain origin point", l)
			}
			far := Pt(tt.x, tt.y).Add(Polar(25, tt.angle))
			if !l.Contains(far) {
				t.Errorf("line %+v does not contain %v along its direction", l, far)
			}
		})
	}
}

func TestToOrthogonal(t *testing.T) {
	l := ToGeneral(0, 0, math.Pi/6)
	o := ToOrthogonal(l, 5, -3)

	if !o.Contains(Pt(5, -3)) {
		t.Errorf("orthogonal line %+v does not pass through (5,-3)", o)
	}
	if dot := l.A*o.A + l.B*o.B; !Equal(dot, 0) {
		t.Errorf("normals not perpendicular, dot = %v", dot)
	}
}

func TestIntersection(t *testing.T) {
	xAxis := ToGeneral(0, 0, 0)
	diag := ToGeneral(1, 1, math.Pi/4)

	p, ok := Intersection(xAxis, diag)
	if !ok {
		t.Fatal("Intersection() ok = false, want true")
	}
	if !p.Equal(Pt(0, 0)) {
		t.Errorf("Intersection() = %v, want (0,0)", p)
	}

	if _, ok := Intersection(xAxis, ToGeneral(0, 5, 0)); ok {
		t.Error("parallel lines: ok = true, want false")
	}
	if _, ok := Intersection(xAxis, ToGeneral(4, 0, math.Pi)); ok {
		t.Error("coincident lines: ok = true, want false")
	}
}

func TestOnWhichSide(t *testing.T) {
	a, b := Pt(0, 0), Pt(10, 0)
	tests := []struct {
		name string
		p    Point
		want int
	}{
		{"left", Pt(5, 1), 1},
		{"right", Pt(5, -1), -1},
		{"collinear", Pt(20, 0), 0},
		{"within tolerance", Pt(5, 1e-12), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OnWhichSide(a, b, tt.p); got != tt.want {
				t.Errorf("OnWhichSide(%v) = %d, want %d", tt.p, got, tt.want)
			}
		})
	}
}

func TestReorderPermutationInvariant(t *testing.T) {
	s1 := Segment{P0: Pt(10, 2), P1: Pt(0, 1)}  // X dominant
	s2 := Segment{P0: Pt(3, 9), P1: Pt(4, -20)} // Y dominant

	flip := func(s Segment) Segment { return Segment{P0: s.P1, P1: s.P0} }

	var want []Segment
	for i := 0; i < 8; i++ {
		a, b := s1, s2
		if i&1 != 0 {
			a = flip(a)
		}
		if i&2 != 0 {
			b = flip(b)
		}
		in := []Segment{a, b}
		if i&4 != 0 {
			in = []Segment{b, a}
		}
		Reorder(in)
		if want == nil {
			want = in
			continue
		}
		for j := range in {
			if in[j] != want[j] {
				t.Fatalf("permutation %d: got %v, want %v", i, in, want)
			}
		}
	}

	if want[0].P0 != Pt(0, 1) || want[0].P1 != Pt(10, 2) {
		t.Errorf("X-dominant segment not ordered by X: %v", want[0])
	}
	if want[1].P0 != Pt(4, -20) || want[1].P1 != Pt(3, 9) {
		t.Errorf("Y-dominant segment not ordered by Y: %v", want[1])
	}
}

func TestProjectOntoSegment(t *testing.T) {
	s := Segment{P0: Pt(0, 0), P1: Pt(10, 0)}
	tests := []struct {
		p    Point
		want float64
	}{
		{Pt(5, 3), 0.5},
		{Pt(-4, 1), 0},
		{Pt(14, -1), 1},
		{Pt(2.5, 0), 0.25},
	}
	for _, tt := range tests {
		if got := ProjectOntoSegment(s, tt.p); !Equal(got, tt.want) {
			t.Errorf("ProjectOntoSegment(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if d := DistanceToSegment(s, Pt(5, 3)); !Equal(d, 3) {
		t.Errorf("DistanceToSegment() = %v, want 3", d)
	}
}
