package scene

import (
	"errors"
	"testing"

	viz "github.com/gogpu/viz"
	"github.com/gogpu/viz/buffer"
	"github.com/gogpu/viz/lod"
	"github.com/gogpu/viz/pipeline"
)

func linePayload(t *testing.T, reg *buffer.Registry, owner string) pipeline.Payload {
	t.Helper()
	p := pipeline.New(reg, lod.DefaultConfig())
	payload, err := p.Line(owner, []float32{0, 1, 2, 3}, []float32{0, 1, 0, 1})
	if err != nil {
		t.Fatalf("Line: %v", err)
	}
	return payload
}

func TestAddGeometryAssignsFreshIDs(t *testing.T) {
	g := NewGraph()
	reg := buffer.NewRegistry()

	a, err := g.AddGeometry(GeometryLine, linePayload(t, reg, "a"), nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := g.AddGeometry(GeometryLine, linePayload(t, reg, "b"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatalf("duplicate id %q", a)
	}
	if !g.Has(a) || !g.Has(b) {
		t.Error("inserted nodes not found")
	}
	if g.Len() != 2 {
		t.Errorf("Len = %d, want 2", g.Len())
	}
}

func TestIDsNeverReused(t *testing.T) {
	g := NewGraph()
	reg := buffer.NewRegistry()

	a, _ := g.AddGeometry(GeometryScatter, linePayload(t, reg, "a"), nil)
	if ok, err := g.RemoveNode(a); !ok || err != nil {
		t.Fatalf("RemoveNode = %v, %v", ok, err)
	}
	b, _ := g.AddGeometry(GeometryScatter, linePayload(t, reg, "b"), nil)
	if a == b {
		t.Errorf("id %q reused after removal", a)
	}
}

func TestReserveIDThenAttach(t *testing.T) {
	g := NewGraph()
	reg := buffer.NewRegistry()

	id := g.ReserveID("line")
	payload := linePayload(t, reg, string(id))
	got, err := g.AddGeometry(GeometryLine, payload, nil, WithID(id))
	if err != nil {
		t.Fatal(err)
	}
	if got != id {
		t.Errorf("attached at %q, want reserved %q", got, id)
	}

	// Attaching twice at the same id must fail.
	if _, err := g.AddGeometry(GeometryLine, payload, nil, WithID(id)); !errors.Is(err, viz.ErrInvalidOperation) {
		t.Errorf("duplicate attach err = %v, want ErrInvalidOperation", err)
	}
}

func TestWithParent(t *testing.T) {
	g := NewGraph()
	reg := buffer.NewRegistry()

	dash, err := g.AddContainer()
	if err != nil {
		t.Fatal(err)
	}
	child, err := g.AddGeometry(GeometryBar, linePayload(t, reg, "c"), nil, WithParent(dash))
	if err != nil {
		t.Fatal(err)
	}

	snap := g.Snapshot()
	if snap.Nodes[child].Parent != dash {
		t.Errorf("parent = %q, want %q", snap.Nodes[child].Parent, dash)
	}
	if len(snap.Nodes[dash].Children) != 1 || snap.Nodes[dash].Children[0] != child {
		t.Errorf("container children = %v, want [%s]", snap.Nodes[dash].Children, child)
	}

	if _, err := g.AddContainer(WithParent("no-such-node")); !errors.Is(err, viz.ErrUnknownReference) {
		t.Errorf("unknown parent err = %v, want ErrUnknownReference", err)
	}
}

func TestUpdateNodeMerges(t *testing.T) {
	g := NewGraph()
	reg := buffer.NewRegistry()

	id, _ := g.AddGeometry(GeometryLine, linePayload(t, reg, "n"), Material{"color": []float32{1, 0, 0, 1}})

	hidden := false
	xf := viz.Translate(1, 2, 3)
	if ok := g.UpdateNode(id, Update{
		Material:  Material{"opacity": float32(0.5)},
		Visible:   &hidden,
		Transform: &xf,
	}); !ok {
		t.Fatal("UpdateNode returned false for known node")
	}

	snap := g.Snapshot()
	view := snap.Nodes[id]
	if view.Visible {
		t.Error("visible not updated")
	}
	if view.Transform != xf {
		t.Error("transform not updated")
	}
	// Merge keeps unspecified fields.
	if _, ok := view.Material["color"]; !ok {
		t.Error("merge dropped existing material key")
	}
	if view.Material["opacity"] != float32(0.5) {
		t.Errorf("opacity = %v, want 0.5", view.Material["opacity"])
	}

	if g.UpdateNode("no-such-node", Update{Visible: &hidden}) {
		t.Error("UpdateNode returned true for unknown node")
	}
}

func TestRemoveNode(t *testing.T) {
	g := NewGraph()
	reg := buffer.NewRegistry()

	id, _ := g.AddGeometry(GeometryLine, linePayload(t, reg, "n"), nil)
	if ok, err := g.RemoveNode(id); !ok || err != nil {
		t.Fatalf("RemoveNode = %v, %v", ok, err)
	}

	snap := g.Snapshot()
	if _, ok := snap.Nodes[id]; ok {
		t.Error("snapshot still contains removed node")
	}
	for _, oid := range snap.Order {
		if oid == id {
			t.Error("snapshot order still lists removed node")
		}
	}

	if ok, err := g.RemoveNode(id); ok || err != nil {
		t.Errorf("second removal = %v, %v, want false, nil", ok, err)
	}
	if _, err := g.RemoveNode("root"); !errors.Is(err, viz.ErrInvalidOperation) {
		t.Errorf("root removal err = %v, want ErrInvalidOperation", err)
	}
}

func TestRemoveSubtree(t *testing.T) {
	g := NewGraph()
	reg := buffer.NewRegistry()

	dash, _ := g.AddContainer()
	child, _ := g.AddGeometry(GeometryScatter, linePayload(t, reg, "c"), nil, WithParent(dash))

	if ok, err := g.RemoveNode(dash); !ok || err != nil {
		t.Fatalf("RemoveNode = %v, %v", ok, err)
	}
	if g.Has(child) {
		t.Error("descendant survived subtree removal")
	}
	if g.Len() != 0 {
		t.Errorf("Len = %d, want 0", g.Len())
	}
}

func TestSnapshotIsolation(t *testing.T) {
	g := NewGraph()
	reg := buffer.NewRegistry()

	id, _ := g.AddGeometry(GeometryLine, linePayload(t, reg, "n"), Material{"color": []float32{1, 0, 0, 1}})
	snap := g.Snapshot()

	// Mutate and remove after the snapshot was taken.
	hidden := false
	g.UpdateNode(id, Update{Visible: &hidden, Material: Material{"color": []float32{0, 0, 0, 0}}})
	if ok, err := g.RemoveNode(id); !ok || err != nil {
		t.Fatalf("RemoveNode = %v, %v", ok, err)
	}

	view, ok := snap.Nodes[id]
	if !ok {
		t.Fatal("snapshot lost node removed after the fact")
	}
	if !view.Visible {
		t.Error("snapshot observed a later visibility change")
	}
	color := view.Material["color"].([]float32)
	if color[0] != 1 {
		t.Error("snapshot observed a later material change")
	}

	// Buffers referenced by the snapshot stay registered after node removal.
	for _, h := range view.Payload.Buffers {
		if _, ok := reg.Lookup(h.Name); !ok {
			t.Errorf("buffer %q released by node removal", h.Name)
		}
	}
}

func TestSnapshotExcludesRoot(t *testing.T) {
	g := NewGraph()
	snap := g.Snapshot()
	if len(snap.Nodes) != 0 || len(snap.Order) != 0 {
		t.Errorf("empty graph snapshot has %d nodes, want 0", len(snap.Nodes))
	}
	if _, ok := snap.Nodes["root"]; ok {
		t.Error("snapshot contains root")
	}
}

func TestSnapshotOrderIsDepthFirst(t *testing.T) {
	g := NewGraph()
	reg := buffer.NewRegistry()

	a, _ := g.AddContainer()
	b, _ := g.AddGeometry(GeometryLine, linePayload(t, reg, "b"), nil, WithParent(a))
	c, _ := g.AddGeometry(GeometryLine, linePayload(t, reg, "c"), nil)

	want := []ID{a, b, c}
	snap := g.Snapshot()
	if len(snap.Order) != len(want) {
		t.Fatalf("order = %v, want %v", snap.Order, want)
	}
	for i := range want {
		if snap.Order[i] != want[i] {
			t.Fatalf("order = %v, want %v", snap.Order, want)
		}
	}
}

func TestCameraLightingCarriedIntoSnapshot(t *testing.T) {
	g := NewGraph()
	cam := Camera{Position: [3]float32{1, 2, 3}, FOV: 60}
	g.SetCamera(cam)
	light := Lighting{Intensity: 0.25}
	g.SetLighting(light)

	snap := g.Snapshot()
	if snap.Camera != cam {
		t.Errorf("camera = %+v, want %+v", snap.Camera, cam)
	}
	if snap.Lighting != light {
		t.Errorf("lighting = %+v, want %+v", snap.Lighting, light)
	}
}
