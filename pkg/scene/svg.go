package scene

import (
	"bytes"
	"fmt"
	"html"
	"image"
	"math"
	"strings"

	"github.com/trackyard/trackyard/pkg/world"
)

const svgCSS = `
    .track { fill: none; stroke-linecap: round; }
    .track:hover { stroke-width: 4; }
    .label { font-family: sans-serif; font-size: 11px; }
    .grid { stroke: #cfd8dc; stroke-width: 1; fill: none; }`

type SVGOption func(*svgRenderer)

type svgRenderer struct {
	editable bool
	grid     bool
	title    string
}

func WithEditable() SVGOption          { return func(r *svgRenderer) { r.editable = true } }
func WithGrid() SVGOption              { return func(r *svgRenderer) { r.grid = true } }
func WithTitle(title string) SVGOption { return func(r *svgRenderer) { r.title = title } }

// RenderSVG draws the scene as seen through cam into a standalone SVG
// document.
func RenderSVG(sc *Scene, cam CameraSnapshot, opts ...SVGOption) []byte {
	r := svgRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`+"\n",
		cam.Width, cam.Height, cam.Width, cam.Height)
	if r.title != "" {
		fmt.Fprintf(&buf, "  <title>%s</title>\n", html.EscapeString(r.title))
	}
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", svgCSS)

	if r.grid {
		renderGrid(&buf, sc, cam)
	}
	sc.Draw(cam, &svgSurface{buf: &buf}, r.editable)

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func renderGrid(buf *bytes.Buffer, sc *Scene, cam CameraSnapshot) {
	for x := 0.0; x <= sc.Width; x += world.SegmentSize {
		fmt.Fprintf(buf, `  <line class="grid" x1="%d" y1="%d" x2="%d" y2="%d"/>`+"\n",
			cam.World2PixX(x), cam.World2PixY(0), cam.World2PixX(x), cam.World2PixY(sc.Height))
	}
	for y := 0.0; y <= sc.Height; y += world.SegmentSize {
		fmt.Fprintf(buf, `  <line class="grid" x1="%d" y1="%d" x2="%d" y2="%d"/>`+"\n",
			cam.World2PixX(0), cam.World2PixY(y), cam.World2PixX(sc.Width), cam.World2PixY(y))
	}
}

// svgSurface writes primitives as SVG elements.
type svgSurface struct {
	buf *bytes.Buffer
}

func (s *svgSurface) Line(from, to image.Point, st Style) {
	fmt.Fprintf(s.buf, `  <line x1="%d" y1="%d" x2="%d" y2="%d"%s/>`+"\n", from.X, from.Y, to.X, to.Y, attrs(st))
}

func (s *svgSurface) Arc(center image.Point, radius, start, sweep float64, st Style) {
	x0 := float64(center.X) + radius*math.Cos(start)
	y0 := float64(center.Y) + radius*math.Sin(start)
	x1 := float64(center.X) + radius*math.Cos(start+sweep)
	y1 := float64(center.Y) + radius*math.Sin(start+sweep)
	large, dir := 0, 0
	if math.Abs(sweep) > math.Pi {
		large = 1
	}
	if sweep > 0 {
		dir = 1
	}
	fmt.Fprintf(s.buf, `  <path d="M %.1f %.1f A %.1f %.1f 0 %d %d %.1f %.1f"%s/>`+"\n",
		x0, y0, radius, radius, large, dir, x1, y1, attrs(st))
}

func (s *svgSurface) Cubic(p0, p1, p2, p3 image.Point, st Style) {
	fmt.Fprintf(s.buf, `  <path d="M %d %d C %d %d, %d %d, %d %d"%s/>`+"\n",
		p0.X, p0.Y, p1.X, p1.Y, p2.X, p2.Y, p3.X, p3.Y, attrs(st))
}

func (s *svgSurface) Circle(center image.Point, radius float64, st Style) {
	fmt.Fprintf(s.buf, `  <circle cx="%d" cy="%d" r="%.1f"%s/>`+"\n", center.X, center.Y, radius, attrs(st))
}

func (s *svgSurface) Text(at image.Point, text string, st Style) {
	fmt.Fprintf(s.buf, `  <text x="%d" y="%d"%s>%s</text>`+"\n", at.X, at.Y, attrs(st), html.EscapeString(text))
}

func (s *svgSurface) Image(bounds image.Rectangle, path string) {
	fmt.Fprintf(s.buf, `  <image href="%s" x="%d" y="%d" width="%d" height="%d" preserveAspectRatio="none"/>`+"\n",
		html.EscapeString(path), bounds.Min.X, bounds.Min.Y, bounds.Dx(), bounds.Dy())
}

func attrs(st Style) string {
	var b strings.Builder
	if st.Class != "" {
		fmt.Fprintf(&b, ` class="%s"`, st.Class)
	}
	if st.Stroke != "" {
		fmt.Fprintf(&b, ` stroke="%s"`, st.Stroke)
	}
	fill := st.Fill
	if fill == "" {
		fill = "none"
	}
	fmt.Fprintf(&b, ` fill="%s"`, fill)
	if st.Width > 0 {
		fmt.Fprintf(&b, ` stroke-width="%g"`, st.Width)
	}
	if st.Dashed {
		b.WriteString(` stroke-dasharray="4 3"`)
	}
	return b.String()
}
