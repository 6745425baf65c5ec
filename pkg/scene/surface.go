package scene

import "image"

// Style describes how a primitive is stroked and filled. Colors are CSS
// color strings; an empty Fill means no fill.
type Style struct {
	Stroke string  `json:"stroke,omitempty"`
	Fill   string  `json:"fill,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Dashed bool    `json:"dashed,omitempty"`
	Class  string  `json:"class,omitempty"`
}

// Surface receives drawing primitives in pixel coordinates.
type Surface interface {
	Line(from, to image.Point, st Style)
	// Arc draws a circular arc. Angles are in radians, measured with pixel y
	// pointing down; a positive sweep turns from +x towards +y.
	Arc(center image.Point, radius float64, start, sweep float64, st Style)
	Cubic(p0, p1, p2, p3 image.Point, st Style)
	Circle(center image.Point, radius float64, st Style)
	Text(at image.Point, text string, st Style)
	Image(bounds image.Rectangle, path string)
}

// Primitive is one recorded drawing call.
type Primitive struct {
	Op     string        `json:"op"`
	Points []image.Point `json:"points,omitempty"`
	Radius float64       `json:"radius,omitempty"`
	Start  float64       `json:"start,omitempty"`
	Sweep  float64       `json:"sweep,omitempty"`
	Text   string        `json:"text,omitempty"`
	Path   string        `json:"path,omitempty"`
	Style  Style         `json:"style"`
}

// Recorder is a Surface that keeps every primitive in call order.
type Recorder struct {
	Primitives []Primitive
}

func (r *Recorder) add(p Primitive) { r.Primitives = append(r.Primitives, p) }

func (r *Recorder) Line(from, to image.Point, st Style) {
	r.add(Primitive{Op: "line", Points: []image.Point{from, to}, Style: st})
}

func (r *Recorder) Arc(center image.Point, radius, start, sweep float64, st Style) {
	r.add(Primitive{Op: "arc", Points: []image.Point{center}, Radius: radius, Start: start, Sweep: sweep, Style: st})
}

func (r *Recorder) Cubic(p0, p1, p2, p3 image.Point, st Style) {
	r.add(Primitive{Op: "cubic", Points: []image.Point{p0, p1, p2, p3}, Style: st})
}

func (r *Recorder) Circle(center image.Point, radius float64, st Style) {
	r.add(Primitive{Op: "circle", Points: []image.Point{center}, Radius: radius, Style: st})
}

func (r *Recorder) Text(at image.Point, text string, st Style) {
	r.add(Primitive{Op: "text", Points: []image.Point{at}, Text: text, Style: st})
}

func (r *Recorder) Image(bounds image.Rectangle, path string) {
	r.add(Primitive{Op: "image", Points: []image.Point{bounds.Min, bounds.Max}, Path: path})
}

// Count returns how many primitives with the given op were recorded.
func (r *Recorder) Count(op string) int {
	n := 0
	for _, p := range r.Primitives {
		if p.Op == op {
			n++
		}
	}
	return n
}
