package render

import (
	"fmt"

	viz "github.com/gogpu/viz"
	"github.com/gogpu/viz/buffer"
	"github.com/gogpu/viz/scene"
	"github.com/gogpu/viz/shader"
)

// Preparer assembles frames from scene snapshots. It owns the shader resolver
// cache; the buffer registry is shared with the pipeline that produced the
// snapshot's buffers.
type Preparer struct {
	registry *buffer.Registry
	resolver *shader.Resolver
	viewport [2]int
}

// NewPreparer returns a preparer with a fresh shader resolver and the given
// viewport size in pixels.
func NewPreparer(registry *buffer.Registry, width, height int) *Preparer {
	return &Preparer{
		registry: registry,
		resolver: shader.NewResolver(),
		viewport: [2]int{width, height},
	}
}

// Resolver exposes the preparer's shader resolver, so callers can install
// custom templates.
func (p *Preparer) Resolver() *shader.Resolver {
	return p.resolver
}

// SetViewport changes the viewport size stamped into prepared frames.
func (p *Preparer) SetViewport(width, height int) {
	p.viewport = [2]int{width, height}
}

// Prepare walks the snapshot in draw order and produces a frame. Invisible
// nodes are excluded entirely, together with their subtrees. Every buffer
// referenced by an included node is marked for transfer; a payload naming a
// buffer missing from the registry fails the whole call with
// ErrUnknownReference. Container nodes contribute structure only and do not
// appear in the frame.
func (p *Preparer) Prepare(snap scene.Snapshot) (Frame, error) {
	frame := Frame{
		Camera:   snap.Camera,
		Lighting: snap.Lighting,
		Viewport: p.viewport,
	}

	hidden := make(map[scene.ID]bool)
	for _, id := range snap.Order {
		view := snap.Nodes[id]
		if !view.Visible || hidden[view.Parent] {
			// Order is depth-first, so children always follow their
			// parent; marking here hides the whole subtree.
			hidden[id] = true
			continue
		}
		if view.Kind == scene.KindContainer {
			continue
		}

		for _, h := range view.Payload.Buffers {
			if err := p.registry.MarkForTransfer(h.Name); err != nil {
				return Frame{}, fmt.Errorf("render: node %q: %w", id, err)
			}
		}

		frame.Nodes = append(frame.Nodes, FrameNode{
			ID:        view.ID,
			Kind:      view.Kind,
			Geometry:  view.Geometry,
			Payload:   view.Payload,
			Material:  view.Material,
			Transform: view.Transform,
			Shader:    p.resolver.Resolve(shaderKind(view), map[string]any(view.Material)),
		})
	}

	viz.Logger().Debug("render: frame prepared",
		"nodes", len(frame.Nodes), "viewport", p.viewport)
	return frame, nil
}

// shaderKind selects the resolver key for a node. Geometry nodes resolve by
// plot kind; widgets use the widget template.
func shaderKind(view scene.NodeView) string {
	if view.Kind == scene.KindWidget {
		return "widget"
	}
	return string(view.Geometry)
}
