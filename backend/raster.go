package backend

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/chewxy/math32"

	"github.com/gogpu/viz/buffer"
	"github.com/gogpu/viz/pipeline"
	"github.com/gogpu/viz/render"
)

// rasterizer draws prepared frames into an RGBA image on the CPU. Geometry is
// fit into the viewport with a uniform margin; the y axis points up in data
// space and down in image space.
type rasterizer struct {
	registry *buffer.Registry
	img      *image.RGBA
}

const rasterMargin = 0.05

func newRasterizer(registry *buffer.Registry, width, height int) *rasterizer {
	r := &rasterizer{registry: registry}
	r.resize(width, height)
	return r
}

func (r *rasterizer) resize(width, height int) {
	r.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

func (r *rasterizer) rasterize(frame *render.Frame) error {
	draw.Draw(r.img, r.img.Bounds(), image.White, image.Point{}, draw.Src)

	proj, err := r.projection(frame)
	if err != nil {
		return err
	}
	for _, node := range frame.Nodes {
		if err := r.drawNode(node, proj); err != nil {
			return err
		}
	}
	return nil
}

// projection computes the data-to-pixel mapping covering every vertex in the
// frame.
func (r *rasterizer) projection(frame *render.Frame) (viewMap, error) {
	minX, minY := float32(math32.MaxFloat32), float32(math32.MaxFloat32)
	maxX, maxY := float32(-math32.MaxFloat32), float32(-math32.MaxFloat32)
	seen := false

	for _, node := range frame.Nodes {
		verts, err := r.vertices(node)
		if err != nil {
			return viewMap{}, err
		}
		for i := 0; i+2 < len(verts); i += 3 {
			x, y := verts[i], verts[i+1]
			minX = math32.Min(minX, x)
			maxX = math32.Max(maxX, x)
			minY = math32.Min(minY, y)
			maxY = math32.Max(maxY, y)
			seen = true
		}
	}
	if !seen {
		minX, minY, maxX, maxY = 0, 0, 1, 1
	}
	if maxX == minX {
		maxX = minX + 1
	}
	if maxY == minY {
		maxY = minY + 1
	}

	b := r.img.Bounds()
	mx := float32(b.Dx()) * rasterMargin
	my := float32(b.Dy()) * rasterMargin
	return viewMap{
		minX: minX, minY: minY,
		scaleX: (float32(b.Dx()) - 2*mx) / (maxX - minX),
		scaleY: (float32(b.Dy()) - 2*my) / (maxY - minY),
		offX:   mx,
		offY:   my,
		height: float32(b.Dy()),
	}, nil
}

type viewMap struct {
	minX, minY     float32
	scaleX, scaleY float32
	offX, offY     float32
	height         float32
}

func (v viewMap) apply(x, y float32) (int, int) {
	px := v.offX + (x-v.minX)*v.scaleX
	py := v.height - (v.offY + (y-v.minY)*v.scaleY)
	return int(px), int(py)
}

func (r *rasterizer) vertices(node render.FrameNode) ([]float32, error) {
	h, ok := node.Payload.Buffers[pipeline.SemanticVertices]
	if !ok {
		return nil, nil
	}
	return r.registry.Float32Data(h.Name)
}

func (r *rasterizer) drawNode(node render.FrameNode, proj viewMap) error {
	verts, err := r.vertices(node)
	if err != nil || len(verts) == 0 {
		return err
	}

	base := nodeColor(node)
	switch node.Payload.Primitive {
	case pipeline.LineStrip:
		return r.drawLineStrip(node, verts, proj, base)
	case pipeline.Points:
		return r.drawPoints(node, verts, proj, base)
	case pipeline.Triangles:
		return r.drawTriangles(node, verts, proj, base)
	}
	return nil
}

// nodeColor mirrors the fragment stage: the template's base color multiplied
// by the material color and opacity overrides, when present.
func nodeColor(node render.FrameNode) color.NRGBA {
	base := [4]float32{0.2, 0.6, 1.0, 1.0}
	if node.Payload.Primitive == pipeline.Triangles {
		base = [4]float32{0.8, 0.4, 0.2, 1.0}
	}
	if node.Shader != nil {
		if c, ok := node.Shader.Overrides["color"].([4]float32); ok {
			for i := range base {
				base[i] *= c[i]
			}
		}
		if o, ok := node.Shader.Overrides["opacity"].(float32); ok {
			base[3] *= o
		}
	}
	return toNRGBA(base)
}

func toNRGBA(c [4]float32) color.NRGBA {
	clamp := func(v float32) uint8 {
		if v <= 0 {
			return 0
		}
		if v >= 1 {
			return 255
		}
		return uint8(v*255 + 0.5)
	}
	return color.NRGBA{R: clamp(c[0]), G: clamp(c[1]), B: clamp(c[2]), A: clamp(c[3])}
}

func (r *rasterizer) drawLineStrip(node render.FrameNode, verts []float32, proj viewMap, c color.NRGBA) error {
	idx, err := r.indices(node)
	if err != nil {
		return err
	}
	for i := 0; i+1 < len(idx); i++ {
		x0, y0 := proj.apply(verts[idx[i]*3], verts[idx[i]*3+1])
		x1, y1 := proj.apply(verts[idx[i+1]*3], verts[idx[i+1]*3+1])
		r.line(x0, y0, x1, y1, c)
	}
	return nil
}

func (r *rasterizer) drawPoints(node render.FrameNode, verts []float32, proj viewMap, base color.NRGBA) error {
	n := len(verts) / 3

	var sizes, colors []float32
	if h, ok := node.Payload.Buffers[pipeline.SemanticSizes]; ok {
		s, err := r.registry.Float32Data(h.Name)
		if err != nil {
			return err
		}
		sizes = s
	}
	if h, ok := node.Payload.Buffers[pipeline.SemanticColors]; ok {
		c, err := r.registry.Float32Data(h.Name)
		if err != nil {
			return err
		}
		colors = c
	}

	for i := 0; i < n; i++ {
		px, py := proj.apply(verts[i*3], verts[i*3+1])
		size := 2
		if i < len(sizes) {
			size = int(sizes[i]/2 + 0.5)
			if size < 1 {
				size = 1
			}
		}
		c := base
		if (i+1)*4 <= len(colors) {
			c = toNRGBA([4]float32{colors[i*4], colors[i*4+1], colors[i*4+2], colors[i*4+3]})
		}
		r.square(px, py, size, c)
	}
	return nil
}

func (r *rasterizer) drawTriangles(node render.FrameNode, verts []float32, proj viewMap, c color.NRGBA) error {
	idx, err := r.indices(node)
	if err != nil {
		return err
	}
	for i := 0; i+2 < len(idx); i += 3 {
		x0, y0 := proj.apply(verts[idx[i]*3], verts[idx[i]*3+1])
		x1, y1 := proj.apply(verts[idx[i+1]*3], verts[idx[i+1]*3+1])
		x2, y2 := proj.apply(verts[idx[i+2]*3], verts[idx[i+2]*3+1])
		r.fillTriangle(x0, y0, x1, y1, x2, y2, c)
	}
	return nil
}

func (r *rasterizer) indices(node render.FrameNode) ([]uint32, error) {
	h, ok := node.Payload.Buffers[pipeline.SemanticIndices]
	if !ok {
		// Non-indexed: draw vertices in order.
		n := node.Payload.Count
		idx := make([]uint32, n)
		for i := range idx {
			idx[i] = uint32(i)
		}
		return idx, nil
	}
	return r.registry.Uint32Data(h.Name)
}

// line draws with the integer midpoint algorithm.
func (r *rasterizer) line(x0, y0, x1, y1 int, c color.NRGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		r.set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (r *rasterizer) square(cx, cy, half int, c color.NRGBA) {
	for y := cy - half; y <= cy+half; y++ {
		for x := cx - half; x <= cx+half; x++ {
			r.set(x, y, c)
		}
	}
}

func (r *rasterizer) fillTriangle(x0, y0, x1, y1, x2, y2 int, c color.NRGBA) {
	minX := min3(x0, x1, x2)
	maxX := max3(x0, x1, x2)
	minY := min3(y0, y1, y2)
	maxY := max3(y0, y1, y2)

	edge := func(ax, ay, bx, by, px, py int) int {
		return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
	}
	area := edge(x0, y0, x1, y1, x2, y2)
	if area == 0 {
		return
	}
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			w0 := edge(x1, y1, x2, y2, x, y)
			w1 := edge(x2, y2, x0, y0, x, y)
			w2 := edge(x0, y0, x1, y1, x, y)
			if area > 0 {
				if w0 >= 0 && w1 >= 0 && w2 >= 0 {
					r.set(x, y, c)
				}
			} else if w0 <= 0 && w1 <= 0 && w2 <= 0 {
				r.set(x, y, c)
			}
		}
	}
}

func (r *rasterizer) set(x, y int, c color.NRGBA) {
	if image.Pt(x, y).In(r.img.Bounds()) {
		r.img.Set(x, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func max3(a, b, c int) int {
	if b > a {
		a = b
	}
	if c > a {
		a = c
	}
	return a
}
