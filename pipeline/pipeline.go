// Package pipeline converts raw numeric series into GPU-ready buffers.
// One entry point exists per plot kind (line, scatter, bar, histogram); all
// validate shape compatibility before any buffer is created and fail fast,
// leaving no partial buffers registered on mismatch.
//
// Buffer names are namespaced by the owning node's id ("<node>.vertices"),
// so concurrently-live geometries of the same kind never alias each other's
// storage.
package pipeline

import (
	"fmt"

	"github.com/gogpu/gputypes"

	viz "github.com/gogpu/viz"
	"github.com/gogpu/viz/buffer"
	"github.com/gogpu/viz/lod"
)

// Primitive identifies how a payload's vertices are assembled for drawing.
type Primitive int

// Primitives.
const (
	LineStrip Primitive = iota
	Points
	Triangles
)

// String returns the primitive name.
func (p Primitive) String() string {
	switch p {
	case LineStrip:
		return "line_strip"
	case Points:
		return "points"
	case Triangles:
		return "triangles"
	default:
		return fmt.Sprintf("Primitive(%d)", int(p))
	}
}

// Topology maps the primitive to its GPU topology.
func (p Primitive) Topology() gputypes.PrimitiveTopology {
	switch p {
	case LineStrip:
		return gputypes.PrimitiveTopologyLineStrip
	case Points:
		return gputypes.PrimitiveTopologyPointList
	default:
		return gputypes.PrimitiveTopologyTriangleList
	}
}

// Semantic buffer names within a payload.
const (
	SemanticVertices = "vertices"
	SemanticIndices  = "indices"
	SemanticSizes    = "sizes"
	SemanticColors   = "colors"
)

// Payload is the result of processing one input series: the registered
// buffers keyed by semantic name, the draw primitive, and the element count
// (indices for indexed primitives, points otherwise).
type Payload struct {
	Buffers   map[string]buffer.Handle `json:"buffers"`
	Primitive Primitive                `json:"primitive"`
	Count     int                      `json:"count"`
}

// Default scatter appearance used when the caller provides no overrides.
var (
	defaultPointSize  = float32(10)
	defaultPointColor = [4]float32{0.2, 0.6, 1.0, 1.0}
)

// barWidth is the fixed relative width of a bar, centered on its x position.
const barWidth = 0.8

// Pipeline processes input series into registered buffers. The LOD
// configuration is captured per call, never re-read mid-operation.
type Pipeline struct {
	registry *buffer.Registry
	lod      lod.Config
}

// New creates a pipeline registering buffers into registry, reducing
// geometry per cfg.
func New(registry *buffer.Registry, cfg lod.Config) *Pipeline {
	return &Pipeline{registry: registry, lod: cfg}
}

// Registry returns the registry this pipeline registers buffers into.
func (p *Pipeline) Registry() *buffer.Registry { return p.registry }

// Line processes x/y series into a line-strip payload owned by node owner.
// Vertices are (x_i, y_i, 0) with a contiguous index sequence; above the
// configured threshold the line is simplified, retaining both endpoints.
// Requires len(x) == len(y) >= 2.
func (p *Pipeline) Line(owner string, x, y []float32) (Payload, error) {
	if len(x) != len(y) {
		return Payload{}, fmt.Errorf("pipeline: line: x has %d points, y has %d: %w", len(x), len(y), viz.ErrInvalidInput)
	}
	if len(x) < 2 {
		return Payload{}, fmt.Errorf("pipeline: line: %d points, need at least 2: %w", len(x), viz.ErrInvalidInput)
	}

	n := len(x)
	verts := make([]float32, 0, n*3)
	for i := 0; i < n; i++ {
		verts = append(verts, x[i], y[i], 0)
	}

	var indices []uint32
	if p.lod.LineSimplifyAbove > 0 && n > p.lod.LineSimplifyAbove {
		verts, indices = lod.SimplifyLine(verts, p.lod.LineBudget())
		viz.Logger().Debug("line simplified", "owner", owner, "from", n, "to", len(indices))
	} else {
		indices = monotonic(n)
	}

	return p.registerIndexed(owner, verts, indices, LineStrip)
}

// ScatterOptions carries the optional per-point attributes of a scatter.
type ScatterOptions struct {
	// Colors holds per-point colors: n grayscale values, n*3 RGB values,
	// or n*4 RGBA values. Grayscale replicates across RGB with full alpha;
	// RGB gains full alpha; RGBA passes through. Empty means the uniform
	// default color.
	Colors []float32

	// Sizes holds one size per point. Empty means Size (or the default).
	Sizes []float32

	// Size is a scalar size broadcast to all points when Sizes is empty.
	// Zero means the default size.
	Size float32
}

// Scatter processes x/y series into a points payload owned by node owner.
// Above the configured threshold points are subsampled with a uniform
// stride, applying the identical index set to vertices, sizes, and colors.
// Requires len(x) == len(y); attribute arrays, when given, must match.
func (p *Pipeline) Scatter(owner string, x, y []float32, opts ScatterOptions) (Payload, error) {
	if len(x) != len(y) {
		return Payload{}, fmt.Errorf("pipeline: scatter: x has %d points, y has %d: %w", len(x), len(y), viz.ErrInvalidInput)
	}
	n := len(x)
	if n == 0 {
		return Payload{}, fmt.Errorf("pipeline: scatter: no points: %w", viz.ErrInvalidInput)
	}

	sizes, err := scatterSizes(n, opts)
	if err != nil {
		return Payload{}, err
	}
	colors, err := normalizeColors(n, opts.Colors)
	if err != nil {
		return Payload{}, err
	}

	verts := make([]float32, 0, n*3)
	for i := 0; i < n; i++ {
		verts = append(verts, x[i], y[i], 0)
	}

	if p.lod.ScatterSampleAbove > 0 && n > p.lod.ScatterSampleAbove {
		idx := lod.SampleIndices(n, p.lod.ScatterBudget())
		verts = lod.Gather(verts, 3, idx)
		sizes = lod.Gather(sizes, 1, idx)
		colors = lod.Gather(colors, 4, idx)
		viz.Logger().Debug("scatter sampled", "owner", owner, "from", n, "to", len(idx))
	}

	m := len(verts) / 3
	hVerts, err := p.registry.RegisterFloat32(owner+"."+SemanticVertices, buffer.KindVertex, []int{m, 3}, verts)
	if err != nil {
		return Payload{}, err
	}
	hSizes, err := p.registry.RegisterFloat32(owner+"."+SemanticSizes, buffer.KindAttribute, []int{m}, sizes)
	if err != nil {
		p.rollback(owner, SemanticVertices)
		return Payload{}, err
	}
	hColors, err := p.registry.RegisterFloat32(owner+"."+SemanticColors, buffer.KindAttribute, []int{m, 4}, colors)
	if err != nil {
		p.rollback(owner, SemanticVertices, SemanticSizes)
		return Payload{}, err
	}

	return Payload{
		Buffers: map[string]buffer.Handle{
			SemanticVertices: hVerts,
			SemanticSizes:    hSizes,
			SemanticColors:   hColors,
		},
		Primitive: Points,
		Count:     m,
	}, nil
}

// Bar processes bar positions and heights into a triangles payload owned by
// node owner. Each bar emits 4 vertices (a rectangle of relative width 0.8
// centered at x_i, spanning 0..height_i) and 6 indices with consistent
// winding: BL,BR,TR / BL,TR,TL. Requires equal, non-empty lengths.
func (p *Pipeline) Bar(owner string, x, heights []float32) (Payload, error) {
	if len(x) != len(heights) {
		return Payload{}, fmt.Errorf("pipeline: bar: x has %d bars, heights has %d: %w", len(x), len(heights), viz.ErrInvalidInput)
	}
	n := len(x)
	if n == 0 {
		return Payload{}, fmt.Errorf("pipeline: bar: no bars: %w", viz.ErrInvalidInput)
	}

	verts := make([]float32, 0, n*4*3)
	indices := make([]uint32, 0, n*6)
	for i := 0; i < n; i++ {
		cx, h := x[i], heights[i]
		half := float32(barWidth / 2)
		base := uint32(i * 4)

		verts = append(verts,
			cx-half, 0, 0, // bottom left
			cx+half, 0, 0, // bottom right
			cx+half, h, 0, // top right
			cx-half, h, 0, // top left
		)
		indices = append(indices,
			base, base+1, base+2,
			base, base+2, base+3,
		)
	}

	return p.registerIndexed(owner, verts, indices, Triangles)
}

// Histogram bins data into bins fixed-width buckets spanning [min, max] and
// renders the counts as bars centered on each bin. Requires non-empty data
// and at least one bin. Constant data collapses to a single unit-width bin
// centered on the value.
func (p *Pipeline) Histogram(owner string, data []float32, bins int) (Payload, error) {
	if bins <= 0 {
		return Payload{}, fmt.Errorf("pipeline: histogram: %d bins: %w", bins, viz.ErrInvalidInput)
	}
	if len(data) == 0 {
		return Payload{}, fmt.Errorf("pipeline: histogram: no data: %w", viz.ErrInvalidInput)
	}

	centers, counts := histogram(data, bins)
	return p.Bar(owner, centers, counts)
}

// registerIndexed registers a vertices+indices pair, releasing the vertex
// buffer if index registration fails so no partial state survives.
func (p *Pipeline) registerIndexed(owner string, verts []float32, indices []uint32, prim Primitive) (Payload, error) {
	m := len(verts) / 3
	hVerts, err := p.registry.RegisterFloat32(owner+"."+SemanticVertices, buffer.KindVertex, []int{m, 3}, verts)
	if err != nil {
		return Payload{}, err
	}
	hIdx, err := p.registry.RegisterUint32(owner+"."+SemanticIndices, buffer.KindIndex, []int{len(indices)}, indices)
	if err != nil {
		p.rollback(owner, SemanticVertices)
		return Payload{}, err
	}

	return Payload{
		Buffers: map[string]buffer.Handle{
			SemanticVertices: hVerts,
			SemanticIndices:  hIdx,
		},
		Primitive: prim,
		Count:     len(indices),
	}, nil
}

func (p *Pipeline) rollback(owner string, semantics ...string) {
	for _, s := range semantics {
		p.registry.Release(owner + "." + s)
	}
}

// scatterSizes resolves the per-point size array: explicit array, scalar
// broadcast, or the uniform default.
func scatterSizes(n int, opts ScatterOptions) ([]float32, error) {
	if len(opts.Sizes) > 0 {
		if len(opts.Sizes) != n {
			return nil, fmt.Errorf("pipeline: scatter: %d sizes for %d points: %w", len(opts.Sizes), n, viz.ErrInvalidInput)
		}
		out := make([]float32, n)
		copy(out, opts.Sizes)
		return out, nil
	}
	size := opts.Size
	if size <= 0 {
		size = defaultPointSize
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = size
	}
	return out, nil
}

// normalizeColors expands a color array to 4-channel RGBA. Grayscale values
// replicate across RGB with full alpha, RGB triples gain full alpha, RGBA
// passes through unchanged. An empty input yields the uniform default.
func normalizeColors(n int, colors []float32) ([]float32, error) {
	out := make([]float32, 0, n*4)
	switch len(colors) {
	case 0:
		for i := 0; i < n; i++ {
			out = append(out, defaultPointColor[0], defaultPointColor[1], defaultPointColor[2], defaultPointColor[3])
		}
	case n:
		for i := 0; i < n; i++ {
			v := colors[i]
			out = append(out, v, v, v, 1)
		}
	case n * 3:
		for i := 0; i < n; i++ {
			out = append(out, colors[i*3], colors[i*3+1], colors[i*3+2], 1)
		}
	case n * 4:
		out = append(out, colors...)
	default:
		return nil, fmt.Errorf("pipeline: scatter: %d color values for %d points: %w", len(colors), n, viz.ErrInvalidInput)
	}
	return out, nil
}

func monotonic(n int) []uint32 {
	idx := make([]uint32, n)
	for i := range idx {
		idx[i] = uint32(i)
	}
	return idx
}
