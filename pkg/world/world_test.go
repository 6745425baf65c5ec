package world

import (
	"testing"

	"github.com/trackyard/trackyard/pkg/errors"
)

func mustWorld(t *testing.T, x, y int) *World {
	t.Helper()
	w, err := New(x, y)
	if err != nil {
		t.Fatalf("New(%d, %d) error: %v", x, y, err)
	}
	return w
}

func TestConstruct(t *testing.T) {
	w := mustWorld(t, 3, 2)
	if x, y := w.Dimensions(); x != 3 || y != 2 {
		t.Errorf("Dimensions() = %d,%d, want 3,2", x, y)
	}
	for i := range 3 {
		for j := range 2 {
			s := w.Segment(i, j)
			if s == nil || s.X() != i || s.Y() != j {
				t.Errorf("Segment(%d,%d) = %+v", i, j, s)
			}
		}
	}

	if _, err := New(-1, 2); !errors.Is(err, errors.ErrCodePrecondition) {
		t.Errorf("New(-1, 2) error = %v, want PRECONDITION", err)
	}

	empty := mustWorld(t, 0, 0)
	if got := len(empty.All()); got != 0 {
		t.Errorf("All() on empty world = %d segments, want 0", got)
	}
}

func TestFindSegment(t *testing.T) {
	w := mustWorld(t, 2, 2)

	tests := []struct {
		name   string
		x, y   float64
		wantOK bool
		wantI  int
		wantJ  int
	}{
		{"origin", 0, 0, true, 0, 0},
		{"interior", 500, 1500, true, 0, 1},
		{"boundary belongs to next", 1000, 0, true, 1, 0},
		{"far corner", 1999.9, 1999.9, true, 1, 1},
		{"past east edge", 2000, 10, false, 0, 0},
		{"negative", -0.1, 10, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := w.FindSegment(tt.x, tt.y)
			if (s != nil) != tt.wantOK {
				t.Fatalf("FindSegment(%v, %v) = %v, want found=%v", tt.x, tt.y, s, tt.wantOK)
			}
			if s != nil && (s.X() != tt.wantI || s.Y() != tt.wantJ) {
				t.Errorf("FindSegment(%v, %v) = (%d,%d), want (%d,%d)", tt.x, tt.y, s.X(), s.Y(), tt.wantI, tt.wantJ)
			}
		})
	}
}

func TestExtendShrinkRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		extend func(*World) error
		shrink func(*World) error
	}{
		{"west", func(w *World) error { return w.ExtendHorizontally(West) }, func(w *World) error { return w.ShrinkHorizontally(West) }},
		{"east", func(w *World) error { return w.ExtendHorizontally(East) }, func(w *World) error { return w.ShrinkHorizontally(East) }},
		{"north", func(w *World) error { return w.ExtendVertically(North) }, func(w *World) error { return w.ShrinkVertically(North) }},
		{"south", func(w *World) error { return w.ExtendVertically(South) }, func(w *World) error { return w.ShrinkVertically(South) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := mustWorld(t, 2, 2)
			before := w.All()
			w.Segment(0, 0).Index(7)

			if err := tt.extend(w); err != nil {
				t.Fatalf("extend: %v", err)
			}
			if err := tt.shrink(w); err != nil {
				t.Fatalf("shrink: %v", err)
			}

			after := w.All()
			if len(after) != len(before) {
				t.Fatalf("segment count = %d, want %d", len(after), len(before))
			}
			for i := range before {
				if before[i] != after[i] {
					t.Errorf("segment %d identity changed", i)
				}
			}
			if s := w.Segment(0, 0); s.X() != 0 || s.Y() != 0 || !s.Holds(7) {
				t.Errorf("Segment(0,0) = (%d,%d) holds=%v", s.X(), s.Y(), s.Holds(7))
			}
		})
	}
}

func TestExtendWestRenumbers(t *testing.T) {
	w := mustWorld(t, 1, 1)
	s := w.Segment(0, 0)

	if err := w.ExtendHorizontally(West); err != nil {
		t.Fatal(err)
	}
	if s.X() != 1 {
		t.Errorf("old segment X() = %d, want 1", s.X())
	}
	if ox, _ := s.Origin(); ox != SegmentSize {
		t.Errorf("old segment origin x = %v, want %v", ox, SegmentSize)
	}
	if w.FindSegment(1500, 10) != s {
		t.Error("FindSegment did not return the shifted segment")
	}

	if err := w.ExtendVertically(North); err != nil {
		t.Fatal(err)
	}
	if s.Y() != 1 {
		t.Errorf("old segment Y() = %d, want 1", s.Y())
	}
}

func TestShrinkRefusesOccupied(t *testing.T) {
	w := mustWorld(t, 2, 2)
	w.Segment(1, 1).Index(3)

	if err := w.ShrinkHorizontally(East); !errors.Is(err, errors.ErrCodePrecondition) {
		t.Errorf("ShrinkHorizontally(East) error = %v, want PRECONDITION", err)
	}
	if err := w.ShrinkVertically(South); !errors.Is(err, errors.ErrCodePrecondition) {
		t.Errorf("ShrinkVertically(South) error = %v, want PRECONDITION", err)
	}
	if err := w.ShrinkHorizontally(West); err != nil {
		t.Errorf("ShrinkHorizontally(West) error = %v", err)
	}
	if x, y := w.Dimensions(); x != 1 || y != 2 {
		t.Errorf("Dimensions() = %d,%d, want 1,2", x, y)
	}
	if err := w.ExtendHorizontally(North); !errors.Is(err, errors.ErrCodePrecondition) {
		t.Errorf("ExtendHorizontally(North) error = %v, want PRECONDITION", err)
	}
}

func TestSegmentsIn(t *testing.T) {
	w := mustWorld(t, 4, 4)

	got := w.SegmentsIn(1500, 2500, 500, 1200)
	if len(got) != 4 {
		t.Fatalf("SegmentsIn() = %d segments, want 4", len(got))
	}
	if got[0].X() != 0 || got[0].Y() != 1 {
		t.Errorf("first segment = (%d,%d), want (0,1)", got[0].X(), got[0].Y())
	}

	if got := w.SegmentsIn(-5000, -5000, 99999, 99999); len(got) != 16 {
		t.Errorf("clamped SegmentsIn() = %d segments, want 16", len(got))
	}
}

func TestSetBackground(t *testing.T) {
	w := mustWorld(t, 1, 1)
	if err := w.SetBackground(0, 0, "maps/a.png"); err != nil {
		t.Fatal(err)
	}
	if got := w.Segment(0, 0).Background(); got != "maps/a.png" {
		t.Errorf("Background() = %q", got)
	}
	if err := w.SetBackground(3, 0, "x.png"); !errors.Is(err, errors.ErrCodeInvalidArgument) {
		t.Errorf("SetBackground out of range error = %v", err)
	}
}

func TestParseDirection(t *testing.T) {
	for _, d := range []Direction{West, East, North, South} {
		got, err := ParseDirection(d.String())
		if err != nil || got != d {
			t.Errorf("ParseDirection(%q) = %v, %v", d.String(), got, err)
		}
	}
	if _, err := ParseDirection("up"); err == nil {
		t.Error("ParseDirection(\"up\") expected error")
	}
}

func TestLayoutRestore(t *testing.T) {
	w := mustWorld(t, 2, 1)
	before := w.All()
	w.Segment(1, 0).Index(3)
	if err := w.SetBackground(0, 0, "yard.png"); err != nil {
		t.Fatal(err)
	}
	saved := w.Layout()

	if err := w.ExtendHorizontally(West); err != nil {
		t.Fatal(err)
	}
	if err := w.ExtendVertically(South); err != nil {
		t.Fatal(err)
	}
	if err := w.ShrinkHorizontally(West); err != nil {
		t.Fatal(err)
	}
	w.Restore(saved)

	if x, y := w.Dimensions(); x != 2 || y != 1 {
		t.Fatalf("Dimensions = %dx%d, want 2x1", x, y)
	}
	for i, s := range w.All() {
		if s != before[i] {
			t.Errorf("segment %d identity changed", i)
		}
	}
	if s := w.Segment(1, 0); s.X() != 1 || s.Y() != 0 || !s.Holds(3) {
		t.Errorf("Segment(1,0) = (%d,%d) holds=%v", s.X(), s.Y(), s.Holds(3))
	}
	if bg := w.Segment(0, 0).Background(); bg != "yard.png" {
		t.Errorf("background = %q", bg)
	}
}
