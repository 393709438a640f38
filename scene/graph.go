package scene

import (
	"fmt"
	"strconv"
	"sync"

	viz "github.com/gogpu/viz"
	"github.com/gogpu/viz/buffer"
	"github.com/gogpu/viz/pipeline"
)

// rootID is the implicit root container. It is never returned from Add
// operations, cannot be removed, and is excluded from snapshots.
const rootID ID = "root"

// Graph is the scene graph. The zero value is not usable; construct with
// NewGraph. All methods are safe for concurrent use.
type Graph struct {
	mu       sync.RWMutex
	nodes    map[ID]*node
	seq      uint64
	camera   Camera
	lighting Lighting
}

// NewGraph returns an empty graph containing only the root container.
func NewGraph() *Graph {
	g := &Graph{
		nodes:    make(map[ID]*node),
		camera:   DefaultCamera(),
		lighting: DefaultLighting(),
	}
	g.nodes[rootID] = newNode(rootID, KindContainer)
	return g
}

// NodeOption customizes node insertion.
type NodeOption func(*insertOptions)

type insertOptions struct {
	parent ID
	id     ID
}

// WithParent attaches the new node under the given container instead of the
// root. Insertion fails with ErrUnknownReference if the parent does not exist.
func WithParent(parent ID) NodeOption {
	return func(o *insertOptions) { o.parent = parent }
}

// WithID attaches the new node at an id previously obtained from ReserveID.
// Insertion fails with ErrInvalidOperation if the id is already in use.
func WithID(id ID) NodeOption {
	return func(o *insertOptions) { o.id = id }
}

// ReserveID returns a fresh node id with the given prefix without inserting a
// node. Callers that must name buffers before the node exists reserve the id
// first, build the payload, then attach with WithID. Reserved ids are never
// handed out again.
func (g *Graph) ReserveID(prefix string) ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nextID(prefix)
}

// nextID must be called with g.mu held.
func (g *Graph) nextID(prefix string) ID {
	g.seq++
	return ID(prefix + "-" + strconv.FormatUint(g.seq, 10))
}

// AddGeometry inserts a geometry node carrying the given payload and material
// and returns its id. The node is appended to the root's children unless
// WithParent is given.
func (g *Graph) AddGeometry(kind GeometryKind, payload pipeline.Payload, material Material, opts ...NodeOption) (ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, parent, err := g.resolveInsert(string(kind), opts)
	if err != nil {
		return "", err
	}

	n := newNode(id, KindGeometry)
	n.geometry = kind
	n.payload = clonePayload(payload)
	n.material = cloneMaterial(material)
	g.attach(n, parent)

	viz.Logger().Debug("scene: geometry added",
		"id", string(id), "kind", string(kind), "count", payload.Count)
	return id, nil
}

// AddContainer inserts an empty container node and returns its id.
func (g *Graph) AddContainer(opts ...NodeOption) (ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, parent, err := g.resolveInsert("container", opts)
	if err != nil {
		return "", err
	}
	g.attach(newNode(id, KindContainer), parent)
	return id, nil
}

// AddWidget inserts a widget node carrying configuration properties, used by
// dashboard containers.
func (g *Graph) AddWidget(properties Material, opts ...NodeOption) (ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, parent, err := g.resolveInsert("widget", opts)
	if err != nil {
		return "", err
	}
	n := newNode(id, KindWidget)
	n.material = cloneMaterial(properties)
	g.attach(n, parent)
	return id, nil
}

// resolveInsert validates options and yields the id and parent for a new
// node. Must be called with g.mu held.
func (g *Graph) resolveInsert(prefix string, opts []NodeOption) (ID, ID, error) {
	o := insertOptions{parent: rootID}
	for _, opt := range opts {
		opt(&o)
	}
	if _, ok := g.nodes[o.parent]; !ok {
		return "", "", fmt.Errorf("scene: parent %q: %w", o.parent, viz.ErrUnknownReference)
	}
	id := o.id
	if id == "" {
		id = g.nextID(prefix)
	} else if _, ok := g.nodes[id]; ok {
		return "", "", fmt.Errorf("scene: id %q already in use: %w", id, viz.ErrInvalidOperation)
	}
	return id, o.parent, nil
}

// attach must be called with g.mu held and id not present.
func (g *Graph) attach(n *node, parent ID) {
	n.parent = parent
	g.nodes[n.id] = n
	p := g.nodes[parent]
	p.children = append(p.children, n.id)
}

// Update carries the fields merged into a node by UpdateNode. Nil pointer and
// nil map fields leave the existing state untouched.
type Update struct {
	Buffers   map[string]buffer.Handle
	Primitive *pipeline.Primitive
	Count     *int
	Material  Material
	Visible   *bool
	Transform *viz.Mat4
}

// UpdateNode merges the update into the node's payload and material without
// resetting unspecified fields. It reports false if the id is unknown, so
// updates racing a removal stay non-fatal.
func (g *Graph) UpdateNode(id ID, u Update) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok || id == rootID {
		return false
	}
	if u.Buffers != nil {
		if n.payload.Buffers == nil {
			n.payload.Buffers = make(map[string]buffer.Handle, len(u.Buffers))
		}
		for k, h := range u.Buffers {
			n.payload.Buffers[k] = h
		}
	}
	if u.Primitive != nil {
		n.payload.Primitive = *u.Primitive
	}
	if u.Count != nil {
		n.payload.Count = *u.Count
	}
	if u.Material != nil {
		if n.material == nil {
			n.material = make(Material, len(u.Material))
		}
		for k, v := range cloneMaterial(u.Material) {
			n.material[k] = v
		}
	}
	if u.Visible != nil {
		n.visible = *u.Visible
	}
	if u.Transform != nil {
		n.xform = *u.Transform
	}
	return true
}

// RemoveNode detaches the node from its parent and deletes it, together with
// its entire subtree, from the graph. It reports false without error if the
// id is unknown. Removing the root fails with ErrInvalidOperation. Buffers
// referenced by removed nodes stay registered; releasing them is the caller's
// decision, so frames prepared from earlier snapshots keep rendering.
func (g *Graph) RemoveNode(id ID) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if id == rootID {
		return false, fmt.Errorf("scene: cannot remove root: %w", viz.ErrInvalidOperation)
	}
	n, ok := g.nodes[id]
	if !ok {
		return false, nil
	}

	p := g.nodes[n.parent]
	for i, c := range p.children {
		if c == id {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	g.deleteSubtree(id)
	return true, nil
}

// deleteSubtree must be called with g.mu held.
func (g *Graph) deleteSubtree(id ID) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	for _, c := range n.children {
		g.deleteSubtree(c)
	}
	delete(g.nodes, id)
}

// Has reports whether a node with the given id exists.
func (g *Graph) Has(id ID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok && id != rootID
}

// Len returns the number of nodes, excluding the root.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes) - 1
}

// SetCamera replaces the graph's camera settings.
func (g *Graph) SetCamera(c Camera) {
	g.mu.Lock()
	g.camera = c
	g.mu.Unlock()
}

// Camera returns the current camera settings.
func (g *Graph) Camera() Camera {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.camera
}

// SetLighting replaces the graph's lighting settings.
func (g *Graph) SetLighting(l Lighting) {
	g.mu.Lock()
	g.lighting = l
	g.mu.Unlock()
}

// Lighting returns the current lighting settings.
func (g *Graph) Lighting() Lighting {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lighting
}
