package scene

import (
	"encoding/json"

	"github.com/trackyard/trackyard/pkg/geometry"
	"github.com/trackyard/trackyard/pkg/network"
)

type sceneJSON struct {
	Width       float64         `json:"width"`
	Height      float64         `json:"height"`
	Vertices    []vertexJSON    `json:"vertices"`
	Tracks      []trackJSON     `json:"tracks"`
	Backgrounds []Background    `json:"backgrounds,omitempty"`
	Occupancy   [][]bool        `json:"occupancy,omitempty"`
	Warnings    []string        `json:"warnings,omitempty"`
	Primitives  []Primitive     `json:"primitives,omitempty"`
	Camera      *CameraSnapshot `json:"camera,omitempty"`
}

type vertexJSON struct {
	ID     int64          `json:"id"`
	At     geometry.Point `json:"at"`
	Degree int            `json:"degree"`
}

type trackJSON struct {
	ID      int64                 `json:"id"`
	Kind    string                `json:"kind"`
	From    int64                 `json:"from"`
	To      int64                 `json:"to"`
	Length  float64               `json:"length"`
	Path    []geometry.Point      `json:"path"`
	Objects []network.TrackObject `json:"objects,omitempty"`
}

type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	cam      *CameraSnapshot
	editable bool
}

// WithPrimitives adds the drawing calls a camera would produce.
func WithPrimitives(cam CameraSnapshot, editable bool) JSONOption {
	return func(r *jsonRenderer) { r.cam, r.editable = &cam, editable }
}

// RenderJSON serializes the scene. Track paths are polylines flattened to
// within tolerance meters.
func RenderJSON(sc *Scene, tolerance float64, opts ...JSONOption) ([]byte, error) {
	var r jsonRenderer
	for _, opt := range opts {
		opt(&r)
	}

	out := sceneJSON{
		Width:       sc.Width,
		Height:      sc.Height,
		Vertices:    []vertexJSON{},
		Tracks:      []trackJSON{},
		Backgrounds: sc.Backgrounds,
		Occupancy:   sc.Occupancy,
		Warnings:    sc.Warnings,
	}
	for _, p := range sc.Painters {
		switch p := p.(type) {
		case *VertexPainter:
			out.Vertices = append(out.Vertices, vertexJSON{ID: p.ID, At: p.Position, Degree: p.Degree})
		case interface{ Info() TrackInfo }:
			info, shape := p.Info(), p.(interface{ Shape() network.Shape }).Shape()
			out.Tracks = append(out.Tracks, trackJSON{
				ID:      info.ID,
				Kind:    info.Kind.String(),
				From:    info.From,
				To:      info.To,
				Length:  info.Length,
				Path:    network.Polyline(shape, tolerance),
				Objects: info.Objects,
			})
		}
	}
	if r.cam != nil {
		var rec Recorder
		sc.Draw(*r.cam, &rec, r.editable)
		out.Primitives = rec.Primitives
		out.Camera = r.cam
	}
	return json.MarshalIndent(out, "", "  ")
}
