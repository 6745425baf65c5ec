package scene

import (
	"image"
	"math"

	"github.com/trackyard/trackyard/pkg/geometry"
)

const (
	minScale = 0.01
	maxScale = 1000
)

// CameraModel is the mutable viewport state. Scale is in meters per pixel;
// the offset is the world position shown at pixel (0, 0). World y grows
// towards the bottom of the screen, like pixel y.
type CameraModel struct {
	scale            float64
	offsetX, offsetY float64
	width, height    int
}

// NewCamera creates a camera with the given scale and viewport size in
// pixels, looking at the world origin.
func NewCamera(scale float64, width, height int) *CameraModel {
	c := &CameraModel{width: width, height: height}
	c.SetScale(scale)
	return c
}

// SetScale sets meters per pixel, clamped to a sane range.
func (c *CameraModel) SetScale(scale float64) {
	if math.IsNaN(scale) || scale <= 0 {
		scale = 1
	}
	c.scale = min(max(scale, minScale), maxScale)
}

// Resize changes the viewport size in pixels.
func (c *CameraModel) Resize(width, height int) {
	c.width, c.height = max(width, 0), max(height, 0)
}

// Pan moves the view by (dx, dy) meters.
func (c *CameraModel) Pan(dx, dy float64) {
	c.offsetX += dx
	c.offsetY += dy
}

// PanPixels moves the view by a pixel delta, as when dragging the map.
func (c *CameraModel) PanPixels(dx, dy int) {
	c.Pan(-float64(dx)*c.scale, -float64(dy)*c.scale)
}

// CenterOn moves the view so that p is in the middle of the viewport.
func (c *CameraModel) CenterOn(p geometry.Point) {
	c.offsetX = p.X - float64(c.width)/2*c.scale
	c.offsetY = p.Y - float64(c.height)/2*c.scale
}

// Zoom multiplies the scale by factor, keeping the world point under pixel
// (px, py) in place.
func (c *CameraModel) Zoom(factor float64, px, py int) {
	anchor := c.Snapshot().Pix2World(px, py)
	c.SetScale(c.scale * factor)
	c.offsetX = anchor.X - float64(px)*c.scale
	c.offsetY = anchor.Y - float64(py)*c.scale
}

// Fit sets scale and offset so that the rectangle of width w and height h
// meters at the origin fills the viewport.
func (c *CameraModel) Fit(w, h float64) {
	if c.width == 0 || c.height == 0 || w <= 0 || h <= 0 {
		return
	}
	c.SetScale(max(w/float64(c.width), h/float64(c.height)))
	c.offsetX, c.offsetY = 0, 0
}

// Snapshot returns an immutable copy of the camera state.
func (c *CameraModel) Snapshot() CameraSnapshot {
	return CameraSnapshot{
		Scale:   c.scale,
		OffsetX: c.offsetX,
		OffsetY: c.offsetY,
		Width:   c.width,
		Height:  c.height,
	}
}

// CameraSnapshot is a frozen camera. All mapping functions are pure.
type CameraSnapshot struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
}

// World2PixX maps a world x coordinate in meters to a pixel column.
func (s CameraSnapshot) World2PixX(x float64) int {
	return int(math.Round((x - s.OffsetX) / s.Scale))
}

// World2PixY maps a world y coordinate in meters to a pixel row.
func (s CameraSnapshot) World2PixY(y float64) int {
	return int(math.Round((y - s.OffsetY) / s.Scale))
}

// World2Pix maps a world position to pixels.
func (s CameraSnapshot) World2Pix(p geometry.Point) image.Point {
	return image.Pt(s.World2PixX(p.X), s.World2PixY(p.Y))
}

// Pix2World maps a pixel to the world position at its corner.
func (s CameraSnapshot) Pix2World(px, py int) geometry.Point {
	return geometry.Pt(float64(px)*s.Scale+s.OffsetX, float64(py)*s.Scale+s.OffsetY)
}

// Meters2Pix converts a length in meters to pixels.
func (s CameraSnapshot) Meters2Pix(m float64) float64 { return m / s.Scale }

// Visible returns the world rectangle covered by the viewport.
func (s CameraSnapshot) Visible() (x0, y0, x1, y1 float64) {
	p0 := s.Pix2World(0, 0)
	p1 := s.Pix2World(s.Width, s.Height)
	return p0.X, p0.Y, p1.X, p1.Y
}

// MouseSnapshot is the pointer state at one instant.
type MouseSnapshot struct {
	X, Y int
}
