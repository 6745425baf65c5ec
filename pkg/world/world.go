package world

import (
	"math"
	"slices"

	"github.com/trackyard/trackyard/pkg/errors"
)

// Direction names the side of the world grid that is extended or shrunk.
type Direction int

const (
	West Direction = iota
	East
	North
	South
)

func (d Direction) String() string {
	switch d {
	case West:
		return "west"
	case East:
		return "east"
	case North:
		return "north"
	case South:
		return "south"
	}
	return "unknown"
}

// ParseDirection parses a direction name as produced by String.
func ParseDirection(s string) (Direction, error) {
	for _, d := range []Direction{West, East, North, South} {
		if d.String() == s {
			return d, nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidArgument, "unknown direction %q", s)
}

// World is a resizable 2-D grid of segments indexed [x][y]. North is the
// y = 0 side.
//
// The zero value is an empty 0×0 world.
type World struct {
	segments [][]*Segment
	height   int
}

// New creates a world of x by y empty segments.
func New(x, y int) (*World, error) {
	w := &World{}
	if err := w.Construct(x, y); err != nil {
		return nil, err
	}
	return w, nil
}

// Construct resets the grid to x*y fresh, empty segments.
func (w *World) Construct(x, y int) error {
	if x < 0 || y < 0 {
		return errors.Precondition("world dimensions must not be negative: %dx%d", x, y)
	}
	w.segments = make([][]*Segment, x)
	for i := range w.segments {
		col := make([]*Segment, y)
		for j := range col {
			col[j] = newSegment(i, j)
		}
		w.segments[i] = col
	}
	w.height = y
	return nil
}

// Dimensions returns the grid size in segments.
func (w *World) Dimensions() (int, int) { return len(w.segments), w.height }

// Size returns the extent of the world in meters.
func (w *World) Size() (float64, float64) {
	x, y := w.Dimensions()
	return float64(x) * SegmentSize, float64(y) * SegmentSize
}

// Segment returns the segment at grid position (i, j), or nil out of bounds.
func (w *World) Segment(i, j int) *Segment {
	if i < 0 || j < 0 || i >= len(w.segments) || j >= w.height {
		return nil
	}
	return w.segments[i][j]
}

// FindSegment returns the segment containing the absolute position (x, y) in
// meters, or nil when the position is outside the world.
func (w *World) FindSegment(x, y float64) *Segment {
	if math.IsNaN(x) || math.IsNaN(y) || x < 0 || y < 0 {
		return nil
	}
	i := math.Floor(x / SegmentSize)
	j := math.Floor(y / SegmentSize)
	if i >= float64(len(w.segments)) || j >= float64(w.height) {
		return nil
	}
	return w.segments[int(i)][int(j)]
}

// SegmentsIn returns the segments overlapping the rectangle spanned by the two
// corners, column by column.
func (w *World) SegmentsIn(x0, y0, x1, y1 float64) []*Segment {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	w2, h2 := w.Dimensions()
	i0 := max(0, int(math.Floor(x0/SegmentSize)))
	j0 := max(0, int(math.Floor(y0/SegmentSize)))
	i1 := min(w2-1, int(math.Floor(x1/SegmentSize)))
	j1 := min(h2-1, int(math.Floor(y1/SegmentSize)))

	var out []*Segment
	for i := i0; i <= i1; i++ {
		for j := j0; j <= j1; j++ {
			out = append(out, w.segments[i][j])
		}
	}
	return out
}

// All returns every segment, column by column.
func (w *World) All() []*Segment {
	out := make([]*Segment, 0, len(w.segments)*w.height)
	for _, col := range w.segments {
		out = append(out, col...)
	}
	return out
}

// NewGrid allocates a boolean grid sized like the world, [x][y].
func (w *World) NewGrid() [][]bool {
	grid := make([][]bool, len(w.segments))
	for i := range grid {
		grid[i] = make([]bool, w.height)
	}
	return grid
}

// SetBackground assigns a background bitmap path to a segment.
func (w *World) SetBackground(i, j int, path string) error {
	s := w.Segment(i, j)
	if s == nil {
		return errors.New(errors.ErrCodeInvalidArgument, "segment (%d,%d) outside %dx%d world", i, j, len(w.segments), w.height)
	}
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	s.background = path
	return nil
}

// ExtendHorizontally adds one column of empty segments on the west or east
// side.
func (w *World) ExtendHorizontally(d Direction) error {
	col := make([]*Segment, w.height)
	for j := range col {
		col[j] = newSegment(0, j)
	}
	switch d {
	case West:
		w.segments = slices.Insert(w.segments, 0, col)
	case East:
		w.segments = append(w.segments, col)
	default:
		return errors.Precondition("cannot extend horizontally towards %s", d)
	}
	w.renumber()
	return nil
}

// ExtendVertically adds one row of empty segments on the north or south side.
func (w *World) ExtendVertically(d Direction) error {
	if d != North && d != South {
		return errors.Precondition("cannot extend vertically towards %s", d)
	}
	for i, col := range w.segments {
		s := newSegment(i, 0)
		if d == North {
			w.segments[i] = slices.Insert(col, 0, s)
		} else {
			w.segments[i] = append(col, s)
		}
	}
	w.height++
	w.renumber()
	return nil
}

// ShrinkHorizontally removes the west or east column. It refuses when a
// segment in that column still holds vertices.
func (w *World) ShrinkHorizontally(d Direction) error {
	if d != West && d != East {
		return errors.Precondition("cannot shrink horizontally towards %s", d)
	}
	if len(w.segments) == 0 {
		return errors.Precondition("world has no column to remove")
	}
	idx := 0
	if d == East {
		idx = len(w.segments) - 1
	}
	for _, s := range w.segments[idx] {
		if !s.IsEmpty() {
			return errors.Precondition("segment (%d,%d) still holds %d vertices", s.x, s.y, len(s.vertices))
		}
	}
	w.segments = slices.Delete(w.segments, idx, idx+1)
	w.renumber()
	return nil
}

// ShrinkVertically removes the north or south row. It refuses when a segment
// in that row still holds vertices.
func (w *World) ShrinkVertically(d Direction) error {
	if d != North && d != South {
		return errors.Precondition("cannot shrink vertically towards %s", d)
	}
	if w.height == 0 {
		return errors.Precondition("world has no row to remove")
	}
	idx := 0
	if d == South {
		idx = w.height - 1
	}
	for _, col := range w.segments {
		if s := col[idx]; !s.IsEmpty() {
			return errors.Precondition("segment (%d,%d) still holds %d vertices", s.x, s.y, len(s.vertices))
		}
	}
	for i, col := range w.segments {
		w.segments[i] = slices.Delete(col, idx, idx+1)
	}
	w.height--
	w.renumber()
	return nil
}

// renumber rewrites segment coordinates from their grid position in a single
// pass.
func (w *World) renumber() {
	for i, col := range w.segments {
		for j, s := range col {
			s.x, s.y = i, j
		}
	}
}

// Layout is a saved arrangement of a world's segments. It references the
// segments themselves, so membership and backgrounds survive a restore.
type Layout struct {
	segments [][]*Segment
	height   int
}

// Layout saves the current arrangement of segments.
func (w *World) Layout() Layout {
	segs := make([][]*Segment, len(w.segments))
	for i, col := range w.segments {
		segs[i] = slices.Clone(col)
	}
	return Layout{segments: segs, height: w.height}
}

// Restore puts back an arrangement saved by Layout, undoing any extend or
// shrink since.
func (w *World) Restore(l Layout) {
	w.segments = make([][]*Segment, len(l.segments))
	for i, col := range l.segments {
		w.segments[i] = slices.Clone(col)
	}
	w.height = l.height
	w.renumber()
}
