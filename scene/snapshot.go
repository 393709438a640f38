package scene

import (
	viz "github.com/gogpu/viz"
	"github.com/gogpu/viz/pipeline"
)

// NodeView is the immutable, flattened view of one node inside a Snapshot.
// It carries no references into live graph state.
type NodeView struct {
	ID        ID               `json:"id"`
	Kind      Kind             `json:"kind"`
	Geometry  GeometryKind     `json:"geometry,omitempty"`
	Payload   pipeline.Payload `json:"payload"`
	Material  Material         `json:"material,omitempty"`
	Visible   bool             `json:"visible"`
	Transform viz.Mat4         `json:"transform"`
	Parent    ID               `json:"parent"`
	Children  []ID             `json:"children,omitempty"`
}

// Snapshot is a consistent point-in-time copy of the graph, excluding the
// root. Mutating the live graph after Snapshot returns never changes a
// snapshot's contents.
type Snapshot struct {
	Nodes    map[ID]NodeView `json:"nodes"`
	Order    []ID            `json:"order"`
	Camera   Camera          `json:"camera"`
	Lighting Lighting        `json:"lighting"`
}

// Snapshot deep-copies the visible structural state of every node except the
// root. Order lists node ids in depth-first insertion order, which render
// preparation uses as the frame's draw order.
func (g *Graph) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := Snapshot{
		Nodes:    make(map[ID]NodeView, len(g.nodes)-1),
		Order:    make([]ID, 0, len(g.nodes)-1),
		Camera:   g.camera,
		Lighting: g.lighting,
	}
	g.walk(rootID, &snap)
	return snap
}

// walk must be called with g.mu held for reading.
func (g *Graph) walk(id ID, snap *Snapshot) {
	n := g.nodes[id]
	if id != rootID {
		children := make([]ID, len(n.children))
		copy(children, n.children)
		parent := n.parent
		if parent == rootID {
			parent = ""
		}
		snap.Nodes[id] = NodeView{
			ID:        id,
			Kind:      n.kind,
			Geometry:  n.geometry,
			Payload:   clonePayload(n.payload),
			Material:  cloneMaterial(n.material),
			Visible:   n.visible,
			Transform: n.xform,
			Parent:    parent,
			Children:  children,
		}
		snap.Order = append(snap.Order, id)
	}
	for _, c := range n.children {
		g.walk(c, snap)
	}
}
