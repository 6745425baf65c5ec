package transform

import (
	"context"
	"math"
	"slices"
	"testing"

	"github.com/trackyard/trackyard/pkg/errors"
	"github.com/trackyard/trackyard/pkg/geometry"
	"github.com/trackyard/trackyard/pkg/network"
	"github.com/trackyard/trackyard/pkg/world"
)

func newGraph(t *testing.T, x, y int) *network.Graph {
	t.Helper()
	w, err := world.New(x, y)
	if err != nil {
		t.Fatal(err)
	}
	return network.New(w)
}

// seedLine commits vertices at pts chained by tracks of the given kind.
func seedLine(t *testing.T, g *network.Graph, kind network.Kind, pts ...geometry.Point) {
	t.Helper()
	eg := g.Edit()
	var prev *network.Vertex
	for _, p := range pts {
		v, err := eg.NewVertex(p.X, p.Y)
		if err != nil {
			t.Fatal(err)
		}
		if prev != nil {
			if _, err := eg.NewTrack(kind, prev, v); err != nil {
				t.Fatal(err)
			}
		}
		prev = v
	}
	if _, err := g.SynchronizeWith(eg); err != nil {
		t.Fatal(err)
	}
}

func endpoints(tr *network.Track) [2]int64 {
	return [2]int64{tr.Vertex(0).ID(), tr.Vertex(1).ID()}
}

func apply(t *testing.T, g *network.Graph, ops ...Operation) network.Changes {
	t.Helper()
	ctx := context.Background()
	u := NewUnitOfWork(g)
	if err := u.Apply(ctx, ops...); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	ch, err := u.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate() after commit: %v", err)
	}
	return ch
}

func TestSplitScenario(t *testing.T) {
	g := newGraph(t, 1, 1)
	seedLine(t, g, network.Straight, geometry.Pt(100, 100), geometry.Pt(500, 100))

	eg := g.Edit()
	v1, err := eg.Fork(g.Vertex(1))
	if err != nil {
		t.Fatal(err)
	}
	in := &Input{V1: v1}
	if err := Combine(ExtractTrack, ExtractOpenVertex).Modify(eg, in); err != nil {
		t.Fatalf("modifier chain: %v", err)
	}

	w2, ok := eg.Lookup(2)
	if !ok || in.V2 != w2 || in.V2.IsGhost() {
		t.Fatalf("V2 = %+v, want the working copy of vertex 2", in.V2)
	}
	if in.T1 != v1.Track(0) || in.T2 != nil {
		t.Fatalf("T1, T2 = %v, %v, want track 1 and nil", in.T1, in.T2)
	}

	mid, err := eg.NewVertex(300, 100)
	if err != nil {
		t.Fatal(err)
	}
	if err := eg.Link(in.T1, in.T1.SlotOf(in.V2), mid); err != nil {
		t.Fatal(err)
	}
	second, err := eg.NewTrack(network.Straight, mid, in.V2)
	if err != nil {
		t.Fatal(err)
	}
	for _, tr := range []*network.Track{in.T1, second} {
		if tr.SlotOf(mid) < 0 {
			t.Errorf("track %d does not reach the midpoint", tr.ID())
		}
	}

	ch, err := g.SynchronizeWith(eg)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Validate(); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ch.AddedTracks, []int64{2}) || !slices.Equal(ch.UpdatedTracks, []int64{1}) {
		t.Errorf("changes = %+v, want track 2 added and track 1 updated", ch)
	}
	if got := endpoints(g.Track(1)); got != [2]int64{1, 3} {
		t.Errorf("track 1 endpoints = %v, want [1 3]", got)
	}
	if got := endpoints(g.Track(2)); got != [2]int64{3, 2} {
		t.Errorf("track 2 endpoints = %v, want [3 2]", got)
	}
}

func TestCombineRestoresInput(t *testing.T) {
	g := newGraph(t, 1, 1)
	seedLine(t, g, network.Straight, geometry.Pt(100, 100), geometry.Pt(500, 100))
	eg := g.Edit()
	v1, _ := eg.Fork(g.Vertex(1))

	in := &Input{V1: v1}
	failing := ModifierFunc(func(*network.EditableGraph, *Input) error {
		return errors.Precondition("boom")
	})
	err := Combine(ExtractTrack, SwapVertices, failing).Modify(eg, in)
	if !errors.Is(err, errors.ErrCodePrecondition) {
		t.Fatalf("error = %v, want PRECONDITION", err)
	}
	if in.V1 != v1 || in.V2 != nil || in.T1 != nil || in.T2 != nil {
		t.Errorf("input not restored: %+v", in)
	}
}

func TestModifierPreconditions(t *testing.T) {
	g := newGraph(t, 1, 1)
	seedLine(t, g, network.Straight, geometry.Pt(100, 100), geometry.Pt(300, 100), geometry.Pt(500, 100))
	eg := g.Edit()
	junction, _ := eg.Fork(g.Vertex(2))

	tests := []struct {
		name string
		mod  Modifier
		in   *Input
	}{
		{"extract track without vertex", ExtractTrack, &Input{}},
		{"extract track from junction", ExtractTrack, &Input{V1: junction}},
		{"open vertex without track", ExtractOpenVertex, &Input{}},
		{"far vertex without vertex", ExtractFarVertex, &Input{T1: junction.Track(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.mod.Modify(eg, tt.in); !errors.Is(err, errors.ErrCodePrecondition) {
				t.Errorf("error = %v, want PRECONDITION", err)
			}
		})
	}
}

func TestSwapsAndStraightFirst(t *testing.T) {
	g := newGraph(t, 1, 1)
	eg := g.Edit()
	a, _ := eg.NewVertex(100, 100)
	b, _ := eg.NewVertex(300, 100)
	c, _ := eg.NewVertex(500, 300)
	curved, _ := eg.NewTrack(network.Curved, a, b)
	straight, _ := eg.NewTrack(network.Straight, b, c)

	in := &Input{T1: curved, T2: straight, V1: a, V2: c}
	if err := StraightFirst.Modify(eg, in); err != nil {
		t.Fatal(err)
	}
	if in.T1 != straight || in.T2 != curved {
		t.Error("StraightFirst did not move the straight track into T1")
	}
	if err := StraightFirst.Modify(eg, in); err != nil || in.T1 != straight {
		t.Error("StraightFirst is not stable once normalized")
	}
	if err := SwapVertices.Modify(eg, in); err != nil || in.V1 != c || in.V2 != a {
		t.Error("SwapVertices did not exchange the vertex slots")
	}
	if err := SwapTracks.Modify(eg, in); err != nil || in.T1 != curved {
		t.Error("SwapTracks did not exchange the track slots")
	}
}

func TestSplitTrackRedistributesStops(t *testing.T) {
	g := newGraph(t, 1, 1)
	seedLine(t, g, network.Straight, geometry.Pt(100, 100), geometry.Pt(500, 100))
	apply(t, g,
		&AttachStop{TrackID: 1, Stop: network.TrackObject{Name: "A", Position: 0.25}},
		&AttachStop{TrackID: 1, Stop: network.TrackObject{Name: "B", Position: 0.75, Orientation: 1}},
	)

	split := &SplitTrack{TrackID: 1, At: 0.5}
	ch := apply(t, g, split)

	if !slices.Equal(ch.AddedVertices, []int64{3}) || !slices.Equal(ch.AddedTracks, []int64{2}) {
		t.Fatalf("changes = %+v", ch)
	}
	if !g.Vertex(3).Position().Equal(geometry.Pt(300, 100)) {
		t.Errorf("midpoint = %v, want (300,100)", g.Vertex(3).Position())
	}
	first, second := g.Track(1).Objects(), g.Track(2).Objects()
	if len(first) != 1 || first[0].Name != "A" || !geometry.Equal(first[0].Position, 0.5) {
		t.Errorf("track 1 objects = %+v, want A at 0.5", first)
	}
	if len(second) != 1 || second[0].Name != "B" || !geometry.Equal(second[0].Position, 0.5) || second[0].Orientation != 1 {
		t.Errorf("track 2 objects = %+v, want B at 0.5 facing 1", second)
	}
}

func TestSplitCurvedTrack(t *testing.T) {
	g := newGraph(t, 3, 3)
	eg := g.Edit()
	a, _ := eg.NewVertex(1000, 1000)
	b, _ := eg.NewVertex(1100, 1100)
	tr, _ := eg.NewTrack(network.Curved, a, b)
	if err := tr.SetAngle(0); err != nil {
		t.Fatal(err)
	}
	if _, err := g.SynchronizeWith(eg); err != nil {
		t.Fatal(err)
	}

	quarter := math.Pi * 100 / 2
	if got := g.Track(1).Length(); math.Abs(got-quarter) > 1e-6 {
		t.Fatalf("arc length = %v, want %v", got, quarter)
	}

	split := &SplitTrack{TrackID: 1, At: 0.5}
	apply(t, g, split)

	if got := g.Track(2).Angle(); math.Abs(got-math.Pi/4) > 1e-9 {
		t.Errorf("second half tangent = %v, want π/4", got)
	}
	total := g.Track(1).Length() + g.Track(2).Length()
	if math.Abs(total-quarter) > 1e-6 {
		t.Errorf("split lengths sum to %v, want %v", total, quarter)
	}
	for _, id := range []int64{1, 2} {
		if _, ok := g.Track(id).Shape().(network.ArcShape); !ok {
			t.Errorf("track %d shape = %T, want ArcShape", id, g.Track(id).Shape())
		}
	}
}

func TestSplitFreeTrackKeepsCurve(t *testing.T) {
	g := newGraph(t, 1, 1)
	eg := g.Edit()
	a, _ := eg.NewVertex(100, 100)
	b, _ := eg.NewVertex(700, 100)
	tr, _ := eg.NewTrack(network.Free, a, b)
	if err := tr.SetControls(geometry.Pt(100, 300), geometry.Pt(-100, 300)); err != nil {
		t.Fatal(err)
	}
	if _, err := g.SynchronizeWith(eg); err != nil {
		t.Fatal(err)
	}
	before := g.Track(1).Shape()

	apply(t, g, &SplitTrack{TrackID: 1, At: 0.3})

	for _, f := range []float64{0.1, 0.2} {
		want := before.PointAt(f)
		got := g.Track(1).Shape().PointAt(f / 0.3)
		if got.Distance(want) > 1e-6 {
			t.Errorf("first half at %v = %v, want %v", f, got, want)
		}
	}
	want := before.PointAt(0.65)
	got := g.Track(2).Shape().PointAt(0.5)
	if got.Distance(want) > 1e-6 {
		t.Errorf("second half midpoint = %v, want %v", got, want)
	}
}

func TestSplitTrackRejects(t *testing.T) {
	g := newGraph(t, 1, 1)
	seedLine(t, g, network.Straight, geometry.Pt(100, 100), geometry.Pt(500, 100))

	tests := []struct {
		name string
		op   *SplitTrack
		code errors.Code
	}{
		{"at start", &SplitTrack{TrackID: 1, At: 0}, errors.ErrCodeInvalidArgument},
		{"nan", &SplitTrack{TrackID: 1, At: math.NaN()}, errors.ErrCodeInvalidArgument},
		{"too close to end", &SplitTrack{TrackID: 1, At: 0.999}, errors.ErrCodePrecondition},
		{"unknown track", &SplitTrack{TrackID: 9, At: 0.5}, errors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUnitOfWork(g)
			defer u.Discard()
			if err := u.Apply(context.Background(), tt.op); !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestExtendTrackContinuesTangent(t *testing.T) {
	g := newGraph(t, 1, 1)
	seedLine(t, g, network.Straight, geometry.Pt(100, 100), geometry.Pt(500, 100))

	ext := &ExtendTrack{VertexID: 2, X: 700, Y: 300, Kind: network.Curved}
	apply(t, g, ext)

	tr := g.Track(ext.Track.ID())
	if !geometry.Equal(tr.Angle(), 0) {
		t.Errorf("extension angle = %v, want 0", tr.Angle())
	}
	if _, ok := tr.Shape().(network.ArcShape); !ok {
		t.Errorf("extension shape = %T, want ArcShape", tr.Shape())
	}
	if !g.Vertex(2).HasAllTracks() {
		t.Error("extended vertex should carry two tracks")
	}

	u := NewUnitOfWork(g)
	defer u.Discard()
	err := u.Apply(context.Background(), &ExtendTrack{VertexID: 2, X: 800, Y: 800})
	if !errors.Is(err, errors.ErrCodePrecondition) {
		t.Errorf("extending a junction error = %v, want PRECONDITION", err)
	}
}

func TestConnectAndDelete(t *testing.T) {
	g := newGraph(t, 1, 1)
	apply(t, g, &AddVertex{X: 100, Y: 100}, &AddVertex{X: 400, Y: 500})

	conn := &ConnectVertices{A: 1, B: 2, Kind: network.Free}
	apply(t, g, conn)
	if got := endpoints(g.Track(1)); got != [2]int64{1, 2} {
		t.Fatalf("track 1 endpoints = %v", got)
	}
	if _, ok := g.Track(1).Shape().(network.CubicShape); !ok {
		t.Errorf("shape = %T, want CubicShape", g.Track(1).Shape())
	}

	apply(t, g, &DeleteTrack{ID: 1})
	if g.TrackCount() != 0 || !g.Vertex(1).HasNoTracks() {
		t.Error("DeleteTrack left the track behind")
	}

	apply(t, g, &DeleteVertex{ID: 2})
	if g.VertexCount() != 1 || g.Vertex(2) != nil {
		t.Errorf("VertexCount() = %d, want 1", g.VertexCount())
	}
}

func TestMoveRejectedIsNotAnError(t *testing.T) {
	g := newGraph(t, 1, 1)
	seedLine(t, g, network.Straight, geometry.Pt(100, 100), geometry.Pt(500, 100))

	u := NewUnitOfWork(g)
	move := &MoveVertices{IDs: []int64{1}, DX: -200}
	if err := u.Apply(context.Background(), move); err != nil {
		t.Fatal(err)
	}
	if move.Moved || u.Rejected() != 1 {
		t.Errorf("Moved = %v, Rejected() = %d, want false, 1", move.Moved, u.Rejected())
	}

	move = &MoveVertices{IDs: []int64{1, 2}, DX: 50, DY: 25}
	if err := u.Apply(context.Background(), move); err != nil || !move.Moved {
		t.Fatalf("second move = %v, %v", move.Moved, err)
	}
	if _, err := u.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !g.Vertex(1).Position().Equal(geometry.Pt(150, 125)) {
		t.Errorf("vertex 1 at %v, want (150,125)", g.Vertex(1).Position())
	}
}

func TestRemoveStop(t *testing.T) {
	g := newGraph(t, 1, 1)
	seedLine(t, g, network.Straight, geometry.Pt(100, 100), geometry.Pt(500, 100))
	apply(t, g, &AttachStop{TrackID: 1, Stop: network.TrackObject{Name: "Main St", Position: 0.4}})
	apply(t, g, &RemoveStop{TrackID: 1, StopName: "Main St"})

	if n := len(g.Track(1).Objects()); n != 0 {
		t.Errorf("objects = %d, want 0", n)
	}

	u := NewUnitOfWork(g)
	defer u.Discard()
	if err := u.Apply(context.Background(), &RemoveStop{TrackID: 1, StopName: "Main St"}); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("removing a missing stop error = %v, want NOT_FOUND", err)
	}
	if err := u.Apply(context.Background(), &AttachStop{TrackID: 1, Stop: network.TrackObject{Position: 1.5}}); !errors.Is(err, errors.ErrCodeInvalidArgument) {
		t.Errorf("attaching outside [0,1] error = %v, want INVALID_ARGUMENT", err)
	}
}

func TestJoinTracks(t *testing.T) {
	g := newGraph(t, 1, 1)
	seedLine(t, g, network.Straight, geometry.Pt(100, 100), geometry.Pt(300, 100), geometry.Pt(700, 100))
	apply(t, g,
		&AttachStop{TrackID: 1, Stop: network.TrackObject{Name: "A", Position: 0.5}},
		&AttachStop{TrackID: 2, Stop: network.TrackObject{Name: "B", Position: 0.5}},
	)

	join := &JoinTracks{VertexID: 2}
	ch := apply(t, g, join)

	if !slices.Equal(ch.DeletedVertices, []int64{2}) || !slices.Equal(ch.DeletedTracks, []int64{2}) {
		t.Fatalf("changes = %+v", ch)
	}
	tr := g.Track(1)
	if got := endpoints(tr); got != [2]int64{1, 3} {
		t.Errorf("merged endpoints = %v, want [1 3]", got)
	}
	if !geometry.Equal(tr.Length(), 600) {
		t.Errorf("merged length = %v, want 600", tr.Length())
	}
	objs := tr.Objects()
	if len(objs) != 2 || !geometry.Equal(objs[0].Position, 1.0/6) || !geometry.Equal(objs[1].Position, 2.0/3) {
		t.Errorf("merged objects = %+v, want A at 1/6 and B at 2/3", objs)
	}
}

func TestUnitOfWorkMemoizes(t *testing.T) {
	g := newGraph(t, 1, 1)
	seedLine(t, g, network.Straight, geometry.Pt(100, 100), geometry.Pt(500, 100))

	u := NewUnitOfWork(g)
	v, err := u.ImportVertex(1)
	if err != nil {
		t.Fatal(err)
	}
	again, _ := u.ImportVertex(1)
	if v != again {
		t.Error("ImportVertex() returned a different record for the same ID")
	}
	tr, _ := u.ImportTrack(1)
	if tr != v.Track(0) {
		t.Error("ImportTrack() did not reuse the track forked with its vertex")
	}
	ghost := tr.Other(v)
	w2, err := u.Materialize(ghost)
	if err != nil || w2.IsGhost() {
		t.Fatalf("Materialize(ghost) = %v, %v", w2, err)
	}
	if again, _ := u.ImportVertex(2); again != w2 {
		t.Error("ImportVertex() after Materialize returned a different record")
	}
	if _, err := u.ImportVertex(42); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("ImportVertex(42) error = %v, want NOT_FOUND", err)
	}

	if _, err := u.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := u.ImportTrack(7); !errors.Is(err, errors.ErrCodePrecondition) {
		t.Errorf("import after commit error = %v, want PRECONDITION", err)
	}
	if err := u.Apply(context.Background(), &AddVertex{X: 1, Y: 1}); !errors.Is(err, errors.ErrCodePrecondition) {
		t.Errorf("apply after commit error = %v, want PRECONDITION", err)
	}
}

func TestCommitHonorsContext(t *testing.T) {
	g := newGraph(t, 1, 1)
	u := NewUnitOfWork(g)
	if err := u.Apply(context.Background(), &AddVertex{X: 10, Y: 10}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := u.Commit(ctx); err == nil {
		t.Fatal("Commit() with cancelled context should fail")
	}
	if g.VertexCount() != 0 {
		t.Error("cancelled commit changed the graph")
	}
}
