package scene

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/trackyard/trackyard/pkg/geometry"
	"github.com/trackyard/trackyard/pkg/network"
	"github.com/trackyard/trackyard/pkg/world"
)

// newTestGraph commits a 2x1 world with a straight track from (100,100) to
// (300,100) carrying one stop, and a quarter arc on to (500,300).
func newTestGraph(t *testing.T) *network.Graph {
	t.Helper()
	w, err := world.New(2, 1)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	g := network.New(w)
	eg := g.Edit()
	a, _ := eg.NewVertex(100, 100)
	b, _ := eg.NewVertex(300, 100)
	c, _ := eg.NewVertex(500, 300)
	straight, err := eg.NewTrack(network.Straight, a, b)
	if err != nil {
		t.Fatalf("NewTrack: %v", err)
	}
	if err := straight.AddObject(network.TrackObject{Name: "Central", Position: 0.5}); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	curved, err := eg.NewTrack(network.Curved, b, c)
	if err != nil {
		t.Fatalf("NewTrack: %v", err)
	}
	if err := curved.SetAngle(0); err != nil {
		t.Fatalf("SetAngle: %v", err)
	}
	if _, err := g.SynchronizeWith(eg); err != nil {
		t.Fatalf("SynchronizeWith: %v", err)
	}
	return g
}

func TestCamera(t *testing.T) {
	cam := NewCamera(2, 800, 600)
	s := cam.Snapshot()
	if got := s.World2Pix(geometry.Pt(100, 50)); got.X != 50 || got.Y != 25 {
		t.Errorf("World2Pix = %v, want (50,25)", got)
	}
	if got := s.Pix2World(50, 25); !got.Equal(geometry.Pt(100, 50)) {
		t.Errorf("Pix2World = %v, want (100,50)", got)
	}

	anchor := s.Pix2World(400, 300)
	cam.Zoom(0.5, 400, 300)
	z := cam.Snapshot()
	if z.Scale != 1 {
		t.Errorf("Scale after zoom = %v, want 1", z.Scale)
	}
	if got := z.Pix2World(400, 300); !got.Equal(anchor) {
		t.Errorf("zoom moved anchor: %v, want %v", got, anchor)
	}

	cam.SetScale(1e9)
	if got := cam.Snapshot().Scale; got != maxScale {
		t.Errorf("Scale = %v, want clamp to %v", got, maxScale)
	}
	cam.SetScale(-1)
	if got := cam.Snapshot().Scale; got != 1 {
		t.Errorf("Scale = %v, want 1 for invalid input", got)
	}

	cam.Fit(4000, 1000)
	x0, y0, x1, _ := cam.Snapshot().Visible()
	if x0 != 0 || y0 != 0 || x1 != 4000 {
		t.Errorf("Visible after Fit = (%v,%v,%v), want (0,0,4000)", x0, y0, x1)
	}

	cam.CenterOn(geometry.Pt(1000, 1000))
	if got := cam.Snapshot().World2Pix(geometry.Pt(1000, 1000)); got.X != 400 || got.Y != 300 {
		t.Errorf("CenterOn: point at %v, want (400,300)", got)
	}
}

func TestFactoryBuild(t *testing.T) {
	g := newTestGraph(t)
	sc := NewFactory().Build(context.Background(), g)

	if len(sc.Painters) != 5 {
		t.Fatalf("len(Painters) = %d, want 5", len(sc.Painters))
	}
	if _, ok := sc.Painters[0].(*StraightPainter); !ok {
		t.Errorf("Painters[0] = %T, want *StraightPainter", sc.Painters[0])
	}
	arc, ok := sc.Painters[1].(*ArcPainter)
	if !ok {
		t.Fatalf("Painters[1] = %T, want *ArcPainter", sc.Painters[1])
	}
	if math.Abs(arc.Length-100*math.Pi) > 1e-6 {
		t.Errorf("arc length = %v, want %v", arc.Length, 100*math.Pi)
	}
	if len(sc.Tracks()) != 2 {
		t.Errorf("len(Tracks()) = %d, want 2", len(sc.Tracks()))
	}
	if sc.Width != 2000 || sc.Height != 1000 {
		t.Errorf("size = %vx%v, want 2000x1000", sc.Width, sc.Height)
	}
	if len(sc.Occupancy) != 2 || !sc.Occupancy[0][0] {
		t.Errorf("Occupancy = %v, want segment (0,0) occupied", sc.Occupancy)
	}
	sc.Occupancy[1][0] = !sc.Occupancy[1][0]
	if g.Occupancy()[1][0] == sc.Occupancy[1][0] {
		t.Error("scene occupancy aliases the graph")
	}
}

func TestFactoryWarnings(t *testing.T) {
	g := newTestGraph(t)
	if err := g.World().SetBackground(0, 0, "bg/0_0.png"); err != nil {
		t.Fatal(err)
	}
	if err := g.World().SetBackground(1, 0, "bg/1_0.png"); err != nil {
		t.Fatal(err)
	}
	assets := fstest.MapFS{"bg/0_0.png": {Data: []byte("png")}}

	sc := NewFactory(WithAssets(assets)).Build(context.Background(), g)
	if len(sc.Backgrounds) != 1 || sc.Backgrounds[0].Path != "bg/0_0.png" {
		t.Errorf("Backgrounds = %+v, want only bg/0_0.png", sc.Backgrounds)
	}
	if len(sc.Warnings) != 1 || !strings.Contains(sc.Warnings[0], "bg/1_0.png") {
		t.Errorf("Warnings = %v, want one for bg/1_0.png", sc.Warnings)
	}
}

func TestFactoryOpenTrack(t *testing.T) {
	g := newTestGraph(t)
	eg := g.Edit()
	a, _ := eg.NewVertex(700, 700)
	b, _ := eg.NewVertex(900, 700)
	tr, err := eg.NewTrack(network.Straight, a, b)
	if err != nil {
		t.Fatal(err)
	}
	if err := eg.Unlink(tr, b); err != nil {
		t.Fatal(err)
	}

	sc := NewFactory().Build(context.Background(), eg)
	if len(sc.Warnings) != 1 || !strings.Contains(sc.Warnings[0], "open end") {
		t.Errorf("Warnings = %v, want one open end", sc.Warnings)
	}
	if sc.Occupancy != nil {
		t.Error("editable source should not carry occupancy")
	}
}

func TestSceneDraw(t *testing.T) {
	sc := NewFactory().Build(context.Background(), newTestGraph(t))
	cam := NewCamera(1, 1000, 600).Snapshot()

	var rec Recorder
	sc.Draw(cam, &rec, false)
	tests := []struct {
		op   string
		want int
	}{
		{"line", 1},
		{"arc", 1},
		{"circle", 4},
		{"text", 1},
		{"cubic", 0},
	}
	for _, tt := range tests {
		if got := rec.Count(tt.op); got != tt.want {
			t.Errorf("Count(%q) = %d, want %d", tt.op, got, tt.want)
		}
	}

	var edit Recorder
	sc.Draw(cam, &edit, true)
	if edit.Count("text") <= rec.Count("text") {
		t.Error("editable drawing should label vertices")
	}

	far := NewCamera(1, 100, 100)
	far.Pan(5000, 5000)
	var none Recorder
	sc.Draw(far.Snapshot(), &none, false)
	if len(none.Primitives) != 0 {
		t.Errorf("drew %d primitives outside the view", len(none.Primitives))
	}
}

func TestSceneHitTest(t *testing.T) {
	sc := NewFactory().Build(context.Background(), newTestGraph(t))
	cam := NewCamera(1, 1000, 600).Snapshot()

	tests := []struct {
		name   string
		px, py int
		want   string
		pos    float64
	}{
		{"track middle", 200, 100, "*scene.StraightPainter", 0.5},
		{"near track", 150, 103, "*scene.StraightPainter", 0.25},
		{"vertex on top", 100, 100, "*scene.VertexPainter", 0},
		{"miss", 200, 150, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := sc.HitTest(cam, tt.px, tt.py)
			if tt.want == "" {
				if ok {
					t.Fatalf("HitTest hit %T, want miss", p)
				}
				return
			}
			if !ok {
				t.Fatal("HitTest missed")
			}
			if got := typeName(p); got != tt.want {
				t.Fatalf("HitTest = %s, want %s", got, tt.want)
			}
			f, ok := p.ComputePosition(cam, MouseSnapshot{X: tt.px, Y: tt.py})
			if !ok || math.Abs(f-tt.pos) > 1e-9 {
				t.Errorf("ComputePosition = %v, %v, want %v", f, ok, tt.pos)
			}
		})
	}
}

func typeName(p Painter) string {
	switch p.(type) {
	case *StraightPainter:
		return "*scene.StraightPainter"
	case *ArcPainter:
		return "*scene.ArcPainter"
	case *CubicPainter:
		return "*scene.CubicPainter"
	case *VertexPainter:
		return "*scene.VertexPainter"
	}
	return "unknown"
}

func TestRenderSVG(t *testing.T) {
	sc := NewFactory().Build(context.Background(), newTestGraph(t))
	cam := NewCamera(1, 1000, 600).Snapshot()
	svg := string(RenderSVG(sc, cam, WithGrid(), WithTitle("a & b")))

	for _, want := range []string{
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 1000 600"`,
		`<title>a &amp; b</title>`,
		`class="grid"`,
		`<line x1="100" y1="100" x2="300" y2="100"`,
		` A 200.0 200.0 0 0 1 500.0 300.0"`,
		`>Central</text>`,
		"</svg>\n",
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
}

func TestRenderJSON(t *testing.T) {
	sc := NewFactory().Build(context.Background(), newTestGraph(t))
	data, err := RenderJSON(sc, 1, WithPrimitives(NewCamera(1, 1000, 600).Snapshot(), false))
	if err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}
	var out struct {
		Vertices []struct {
			ID     int64 `json:"id"`
			Degree int   `json:"degree"`
		} `json:"vertices"`
		Tracks []struct {
			Kind    string `json:"kind"`
			Path    []geometry.Point
			Objects []network.TrackObject `json:"objects"`
		} `json:"tracks"`
		Primitives []Primitive `json:"primitives"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(out.Vertices) != 3 || out.Vertices[1].Degree != 2 {
		t.Errorf("vertices = %+v", out.Vertices)
	}
	if len(out.Tracks) != 2 || out.Tracks[1].Kind != "curved" {
		t.Fatalf("tracks = %+v", out.Tracks)
	}
	if len(out.Tracks[0].Path) != 2 || len(out.Tracks[1].Path) < 3 {
		t.Errorf("path lengths = %d, %d", len(out.Tracks[0].Path), len(out.Tracks[1].Path))
	}
	if len(out.Tracks[0].Objects) != 1 || out.Tracks[0].Objects[0].Name != "Central" {
		t.Errorf("objects = %+v", out.Tracks[0].Objects)
	}
	if len(out.Primitives) == 0 {
		t.Error("missing primitives")
	}
}

func TestToDOT(t *testing.T) {
	g := newTestGraph(t)
	dot := ToDOT(g, DOTOptions{Positions: true, Stops: true})
	for _, want := range []string{
		"graph G {",
		"v1 [label=\"1\", fillcolor=\"#ffcc80\", pos=\"1.00,-1.00!\"];",
		"v2 [label=\"2\", pos=\"3.00,-1.00!\"];",
		`v1 -- v2 [label="straight 200m\nCentral"];`,
		"v2 -- v3",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q in\n%s", want, dot)
		}
	}
}

func TestToDOTEditable(t *testing.T) {
	g := newTestGraph(t)
	eg := g.Edit()
	c, err := eg.Fork(g.Vertex(3))
	if err != nil {
		t.Fatal(err)
	}
	d, _ := eg.NewVertex(700, 300)
	e, _ := eg.NewVertex(900, 300)
	if _, err := eg.NewTrack(network.Straight, c, d); err != nil {
		t.Fatal(err)
	}
	if _, err := eg.NewTrack(network.Straight, d, e); err != nil {
		t.Fatal(err)
	}

	dot := ToDOT(eg, DOTOptions{})
	for _, want := range []string{
		`n1 [label="new"];`,
		`n2 [label="new", fillcolor="#ffcc80"];`,
		"v3 -- n1",
		"n1 -- n2",
		"v2 -- v3",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q in\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "v-1") {
		t.Errorf("uncommitted vertex named by NoID:\n%s", dot)
	}
}
