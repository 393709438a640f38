// Package viz is the control plane of a backend-agnostic visualization
// engine. It turns raw numeric series into a renderable scene description:
// the data pipeline converts arrays into typed buffers with adaptive
// level-of-detail, the scene graph owns visual elements and their lifecycle,
// and render preparation resolves shaders per node and hands a fully
// resolved frame to a rendering backend.
//
// # Architecture
//
// The library is organized into:
//   - Root package: shared primitives (Mat4, Color, errors, logging)
//   - pipeline: per-plot-kind array processing (line, scatter, bar, histogram)
//   - lod: pure level-of-detail reductions
//   - buffer: registry owning named vertex/index/attribute buffers
//   - scene: node graph with immutable snapshots
//   - shader: WGSL template resolution with material overrides
//   - render: snapshot to Frame preparation
//   - backend: rendering backend interface, registry, software backend
//   - plot: high-level engine facade tying everything together
//
// # Data flow
//
//	raw arrays -> pipeline (-> lod -> buffer) -> scene -> Snapshot
//	           -> render.Prepare (-> shader, -> buffer transfer) -> Frame -> backend
//
// # Quick Start
//
//	eng, _ := plot.New(plot.WithBackend("software"), plot.WithAutoInit())
//	eng.Line([]float32{0, 1, 2, 3}, []float32{0, 1, 0, 1}, nil)
//	eng.Render()
//	eng.Save("out.png")
//
// Backends never see plotting semantics: they consume render.Frame, a flat,
// serializable description of nodes, shaders, camera, and lighting.
package viz
