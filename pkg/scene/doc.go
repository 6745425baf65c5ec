// Package scene turns network state into drawable primitives.
//
// The package is a read-only consumer of the network: a [Factory] walks a
// [Source] (a committed graph or an editable graph), copies what it needs
// into [Painter] values and returns an immutable [Scene]. Painters draw onto
// a [Surface] through a [CameraSnapshot], a frozen copy of the mutable
// [CameraModel]. Nothing in a Scene points back into the graph, so a scene
// can be handed to another goroutine for rendering.
//
// # Painters
//
// Each track kind has its own painter: [StraightPainter], [ArcPainter] and
// [CubicPainter]. Vertices are drawn by [VertexPainter]. Painters also
// answer hit tests and map a mouse position to a fraction along a track.
//
// # Warnings
//
// Problems that should not stop rendering, such as a missing background
// bitmap, are collected in [Scene.Warnings].
//
// # Output
//
// [Recorder] records primitives in memory. [RenderSVG] and [RenderJSON]
// serialize a scene, and [ToDOT] with [RenderDOT] draws the network topology
// through Graphviz.
//
//	sc := scene.NewFactory().Build(ctx, g)
//	cam := scene.NewCamera(2, 800, 600).Snapshot()
//	svg := scene.RenderSVG(sc, cam, scene.WithGrid())
package scene
