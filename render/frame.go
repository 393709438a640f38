// Package render turns scene snapshots into backend-ready frames. Prepare
// resolves a shader for every visible node, marks the node's buffers for
// transfer, and assembles a Frame that any backend can consume without
// knowing plotting semantics. No graphics API is touched here.
package render

import (
	viz "github.com/gogpu/viz"
	"github.com/gogpu/viz/pipeline"
	"github.com/gogpu/viz/scene"
	"github.com/gogpu/viz/shader"
)

// FrameNode is one renderable node inside a Frame.
type FrameNode struct {
	ID        scene.ID                  `json:"id"`
	Kind      scene.Kind                `json:"kind"`
	Geometry  scene.GeometryKind        `json:"geometry,omitempty"`
	Payload   pipeline.Payload          `json:"payload"`
	Material  scene.Material            `json:"material,omitempty"`
	Transform viz.Mat4                  `json:"transform"`
	Shader    *shader.ProgramDescriptor `json:"shader"`
}

// Frame is the fully resolved, backend-agnostic description of one view.
// Nodes are ordered in the snapshot's draw order.
type Frame struct {
	Nodes    []FrameNode    `json:"nodes"`
	Camera   scene.Camera   `json:"camera"`
	Lighting scene.Lighting `json:"lighting"`
	Viewport [2]int         `json:"viewport"`
}
