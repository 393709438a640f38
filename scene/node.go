// Package scene implements the scene graph: a tree of container, geometry,
// and widget nodes stored as an arena keyed by node id. Nodes hold transform,
// visibility, and material state; geometry nodes additionally reference the
// buffers produced by the data pipeline. Snapshot produces an immutable,
// point-in-time copy of the graph for render preparation.
package scene

import (
	viz "github.com/gogpu/viz"
	"github.com/gogpu/viz/buffer"
	"github.com/gogpu/viz/pipeline"
)

// ID identifies a node within one Graph. IDs are assigned monotonically and
// never reused, even after the node is removed.
type ID string

// Kind classifies a node.
type Kind int

const (
	// KindContainer groups child nodes without geometry of its own.
	KindContainer Kind = iota
	// KindGeometry carries a renderable buffer payload.
	KindGeometry
	// KindWidget is a dashboard element without direct geometry.
	KindWidget
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindGeometry:
		return "geometry"
	case KindWidget:
		return "widget"
	}
	return "unknown"
}

// GeometryKind names the plot kind a geometry node was built from. The shader
// resolver selects its base template by this name.
type GeometryKind string

const (
	GeometryLine      GeometryKind = "line"
	GeometryScatter   GeometryKind = "scatter"
	GeometryBar       GeometryKind = "bar"
	GeometryHistogram GeometryKind = "histogram"
)

// Material holds key-value style attributes (color, opacity, point_size)
// influencing shader resolution for a node.
type Material map[string]any

// Camera describes the view settings carried into snapshots and frames.
type Camera struct {
	Position [3]float32 `json:"position"`
	Target   [3]float32 `json:"target"`
	Up       [3]float32 `json:"up"`
	FOV      float32    `json:"fov"`
}

// DefaultCamera returns a camera looking down -Z at the origin.
func DefaultCamera() Camera {
	return Camera{
		Position: [3]float32{0, 0, 5},
		Target:   [3]float32{0, 0, 0},
		Up:       [3]float32{0, 1, 0},
		FOV:      45,
	}
}

// Lighting describes the light settings carried into snapshots and frames.
type Lighting struct {
	Ambient   viz.Color  `json:"ambient"`
	Direction [3]float32 `json:"direction"`
	Intensity float32    `json:"intensity"`
}

// DefaultLighting returns a neutral ambient light.
func DefaultLighting() Lighting {
	return Lighting{
		Ambient:   viz.RGB(1, 1, 1),
		Direction: [3]float32{0, 0, -1},
		Intensity: 1,
	}
}

// node is the arena record. Children are ordered ids; the parent is an id,
// never a pointer, so records carry no references into each other.
type node struct {
	id       ID
	kind     Kind
	geometry GeometryKind
	payload  pipeline.Payload
	material Material
	visible  bool
	xform    viz.Mat4
	parent   ID
	children []ID
}

func newNode(id ID, kind Kind) *node {
	return &node{
		id:      id,
		kind:    kind,
		visible: true,
		xform:   viz.Identity(),
	}
}

// cloneMaterial deep-copies a material map. Slice-valued properties such as
// color arrays are cloned so a snapshot never aliases caller storage.
func cloneMaterial(m Material) Material {
	if m == nil {
		return nil
	}
	out := make(Material, len(m))
	for k, v := range m {
		switch vv := v.(type) {
		case []float32:
			c := make([]float32, len(vv))
			copy(c, vv)
			out[k] = c
		case []float64:
			c := make([]float64, len(vv))
			copy(c, vv)
			out[k] = c
		default:
			out[k] = v
		}
	}
	return out
}

// clonePayload deep-copies a payload. Handles are values, but their shape
// slices are cloned so the copy is fully detached.
func clonePayload(p pipeline.Payload) pipeline.Payload {
	out := pipeline.Payload{Primitive: p.Primitive, Count: p.Count}
	if p.Buffers != nil {
		out.Buffers = make(map[string]buffer.Handle, len(p.Buffers))
		for k, h := range p.Buffers {
			if h.Shape != nil {
				shape := make([]int, len(h.Shape))
				copy(shape, h.Shape)
				h.Shape = shape
			}
			out.Buffers[k] = h
		}
	}
	return out
}
