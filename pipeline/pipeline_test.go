package pipeline

import (
	"errors"
	"testing"

	viz "github.com/gogpu/viz"
	"github.com/gogpu/viz/buffer"
	"github.com/gogpu/viz/lod"
)

func newPipeline() (*Pipeline, *buffer.Registry) {
	reg := buffer.NewRegistry()
	return New(reg, lod.DefaultConfig()), reg
}

func TestLineBasic(t *testing.T) {
	p, reg := newPipeline()
	payload, err := p.Line("line-1", []float32{0, 1, 2, 3}, []float32{0, 1, 0, 1})
	if err != nil {
		t.Fatalf("Line: %v", err)
	}
	if payload.Primitive != LineStrip {
		t.Errorf("Primitive = %v, want line_strip", payload.Primitive)
	}
	if payload.Count != 4 {
		t.Errorf("Count = %d, want 4", payload.Count)
	}

	verts, err := reg.Float32Data("line-1.vertices")
	if err != nil {
		t.Fatalf("vertices not registered: %v", err)
	}
	if len(verts) != 12 {
		t.Fatalf("vertex floats = %d, want 12", len(verts))
	}
	// (x_i, y_i, 0) layout.
	if verts[3] != 1 || verts[4] != 1 || verts[5] != 0 {
		t.Errorf("vertex 1 = %v, want (1,1,0)", verts[3:6])
	}

	idx, err := reg.Uint32Data("line-1.indices")
	if err != nil {
		t.Fatalf("indices not registered: %v", err)
	}
	for i, v := range idx {
		if v != uint32(i) {
			t.Fatalf("idx[%d] = %d, want contiguous 0..m-1", i, v)
		}
	}
}

func TestLineValidation(t *testing.T) {
	p, reg := newPipeline()
	tests := []struct {
		name string
		x, y []float32
	}{
		{"length mismatch", []float32{0, 1, 2}, []float32{0, 1}},
		{"single point", []float32{0}, []float32{0}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Line("n", tt.x, tt.y)
			if !errors.Is(err, viz.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
	if reg.Len() != 0 {
		t.Errorf("registry holds %d buffers after failed calls, want 0", reg.Len())
	}
}

func TestLineSimplification(t *testing.T) {
	const n = 50000
	x := make([]float32, n)
	y := make([]float32, n)
	for i := range x {
		x[i] = float32(i)
		y[i] = float32(i % 13)
	}

	reg := buffer.NewRegistry()
	p := New(reg, lod.Config{LineSimplifyAbove: 10000, ScatterSampleAbove: 50000})
	payload, err := p.Line("big", x, y)
	if err != nil {
		t.Fatalf("Line: %v", err)
	}
	if payload.Count > 10001 {
		t.Errorf("Count = %d, want <= 10001", payload.Count)
	}
	if payload.Count < 2 {
		t.Errorf("Count = %d, want >= 2", payload.Count)
	}

	verts, _ := reg.Float32Data("big.vertices")
	m := len(verts) / 3
	if verts[0] != 0 {
		t.Error("first original point lost")
	}
	if verts[(m-1)*3] != float32(n-1) {
		t.Errorf("last original point lost: got x=%v, want %v", verts[(m-1)*3], float32(n-1))
	}
	if payload.Count != m {
		t.Errorf("Count = %d, want index count matching %d vertices", payload.Count, m)
	}
}

func TestScatterDefaults(t *testing.T) {
	p, reg := newPipeline()
	payload, err := p.Scatter("s", []float32{0, 1, 2}, []float32{3, 4, 5}, ScatterOptions{})
	if err != nil {
		t.Fatalf("Scatter: %v", err)
	}
	if payload.Primitive != Points {
		t.Errorf("Primitive = %v, want points", payload.Primitive)
	}
	if payload.Count != 3 {
		t.Errorf("Count = %d, want 3", payload.Count)
	}

	sizes, _ := reg.Float32Data("s.sizes")
	for _, v := range sizes {
		if v != 10 {
			t.Fatalf("default size = %v, want 10", v)
		}
	}
	colors, _ := reg.Float32Data("s.colors")
	if len(colors) != 12 {
		t.Fatalf("color floats = %d, want 12 (RGBA)", len(colors))
	}
	if colors[3] != 1 {
		t.Errorf("default alpha = %v, want 1", colors[3])
	}
}

func TestScatterScalarSizeBroadcast(t *testing.T) {
	p, reg := newPipeline()
	if _, err := p.Scatter("s", []float32{0, 1}, []float32{0, 1}, ScatterOptions{Size: 4}); err != nil {
		t.Fatal(err)
	}
	sizes, _ := reg.Float32Data("s.sizes")
	if len(sizes) != 2 || sizes[0] != 4 || sizes[1] != 4 {
		t.Errorf("sizes = %v, want [4 4]", sizes)
	}
}

func TestScatterColorNormalization(t *testing.T) {
	tests := []struct {
		name   string
		colors []float32
		want   []float32 // first point's RGBA
	}{
		{"grayscale", []float32{0.5, 0.25}, []float32{0.5, 0.5, 0.5, 1}},
		{"rgb", []float32{1, 0, 0, 0, 1, 0}, []float32{1, 0, 0, 1}},
		{"rgba", []float32{1, 0, 0, 0.5, 0, 1, 0, 0.5}, []float32{1, 0, 0, 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, reg := newPipeline()
			if _, err := p.Scatter("s", []float32{0, 1}, []float32{0, 1}, ScatterOptions{Colors: tt.colors}); err != nil {
				t.Fatalf("Scatter: %v", err)
			}
			colors, _ := reg.Float32Data("s.colors")
			if len(colors) != 8 {
				t.Fatalf("color floats = %d, want 8", len(colors))
			}
			for i, want := range tt.want {
				if colors[i] != want {
					t.Errorf("colors[%d] = %v, want %v", i, colors[i], want)
				}
			}
		})
	}
}

func TestScatterValidation(t *testing.T) {
	p, reg := newPipeline()
	if _, err := p.Scatter("s", []float32{0, 1}, []float32{0}, ScatterOptions{}); !errors.Is(err, viz.ErrInvalidInput) {
		t.Errorf("length mismatch err = %v, want ErrInvalidInput", err)
	}
	if _, err := p.Scatter("s", []float32{0, 1}, []float32{0, 1}, ScatterOptions{Sizes: []float32{1}}); !errors.Is(err, viz.ErrInvalidInput) {
		t.Errorf("sizes mismatch err = %v, want ErrInvalidInput", err)
	}
	if _, err := p.Scatter("s", []float32{0, 1}, []float32{0, 1}, ScatterOptions{Colors: []float32{1, 2, 3, 4, 5}}); !errors.Is(err, viz.ErrInvalidInput) {
		t.Errorf("colors mismatch err = %v, want ErrInvalidInput", err)
	}
	if reg.Len() != 0 {
		t.Errorf("registry holds %d buffers after failed calls, want 0", reg.Len())
	}
}

func TestScatterSubsamplingConsistent(t *testing.T) {
	// Tag each point's x, size, and red channel with the original index;
	// the subsampled triple must agree point-for-point.
	const n = 1000
	x := make([]float32, n)
	y := make([]float32, n)
	sizes := make([]float32, n)
	colors := make([]float32, n*4)
	for i := 0; i < n; i++ {
		x[i] = float32(i)
		sizes[i] = float32(i)
		colors[i*4] = float32(i)
		colors[i*4+3] = 1
	}

	reg := buffer.NewRegistry()
	p := New(reg, lod.Config{ScatterSampleAbove: 100})
	payload, err := p.Scatter("s", x, y, ScatterOptions{Sizes: sizes, Colors: colors})
	if err != nil {
		t.Fatalf("Scatter: %v", err)
	}
	if payload.Count > 101 {
		t.Errorf("Count = %d, want <= 101", payload.Count)
	}

	gv, _ := reg.Float32Data("s.vertices")
	gs, _ := reg.Float32Data("s.sizes")
	gc, _ := reg.Float32Data("s.colors")
	for k := 0; k < payload.Count; k++ {
		tag := gv[k*3]
		if gs[k] != tag || gc[k*4] != tag {
			t.Fatalf("point %d: vertex tag %v, size tag %v, color tag %v — index sets differ",
				k, tag, gs[k], gc[k*4])
		}
	}
}

func TestBarGeometry(t *testing.T) {
	p, reg := newPipeline()
	const n = 5
	x := []float32{0, 1, 2, 3, 4}
	h := []float32{1, 2, 3, 2, 1}
	payload, err := p.Bar("b", x, h)
	if err != nil {
		t.Fatalf("Bar: %v", err)
	}
	if payload.Primitive != Triangles {
		t.Errorf("Primitive = %v, want triangles", payload.Primitive)
	}
	if payload.Count != 6*n {
		t.Errorf("Count = %d, want %d", payload.Count, 6*n)
	}

	verts, _ := reg.Float32Data("b.vertices")
	idx, _ := reg.Uint32Data("b.indices")
	if len(verts)/3 != 4*n {
		t.Fatalf("vertices = %d, want %d", len(verts)/3, 4*n)
	}
	if len(idx) != 6*n {
		t.Fatalf("indices = %d, want %d", len(idx), 6*n)
	}

	// Each bar's 6 indices must reference exactly its own 4 vertices.
	for bar := 0; bar < n; bar++ {
		lo, hi := uint32(bar*4), uint32(bar*4+3)
		seen := map[uint32]bool{}
		for _, v := range idx[bar*6 : bar*6+6] {
			if v < lo || v > hi {
				t.Fatalf("bar %d index %d outside own quad [%d,%d]", bar, v, lo, hi)
			}
			seen[v] = true
		}
		if len(seen) != 4 {
			t.Fatalf("bar %d references %d distinct vertices, want 4", bar, len(seen))
		}
	}

	// Winding: BL,BR,TR / BL,TR,TL for the first bar.
	want := []uint32{0, 1, 2, 0, 2, 3}
	for i, v := range want {
		if idx[i] != v {
			t.Errorf("idx[%d] = %d, want %d", i, idx[i], v)
		}
	}

	// Quad geometry: width 0.8 centered at x, spanning 0..height.
	if verts[0] != -0.4 || verts[3] != 0.4 {
		t.Errorf("bar 0 base corners at x=%v,%v, want -0.4, 0.4", verts[0], verts[3])
	}
	if verts[7] != 1 || verts[10] != 1 {
		t.Errorf("bar 0 top corners at y=%v,%v, want 1", verts[7], verts[10])
	}
}

func TestBarValidation(t *testing.T) {
	p, _ := newPipeline()
	if _, err := p.Bar("b", []float32{0, 1}, []float32{1}); !errors.Is(err, viz.ErrInvalidInput) {
		t.Errorf("mismatch err = %v, want ErrInvalidInput", err)
	}
	if _, err := p.Bar("b", nil, nil); !errors.Is(err, viz.ErrInvalidInput) {
		t.Errorf("empty err = %v, want ErrInvalidInput", err)
	}
}

func TestHistogram(t *testing.T) {
	p, reg := newPipeline()
	data := []float32{0, 0.1, 0.2, 1, 1.1, 2, 2.5, 3, 3, 3}
	payload, err := p.Histogram("h", data, 4)
	if err != nil {
		t.Fatalf("Histogram: %v", err)
	}
	if payload.Primitive != Triangles {
		t.Errorf("Primitive = %v, want triangles", payload.Primitive)
	}
	if payload.Count != 6*4 {
		t.Errorf("Count = %d, want 24 (4 bins)", payload.Count)
	}

	// Total counted samples must equal the input size: sum of bar heights
	// recovered from the top-right vertex of each quad.
	verts, _ := reg.Float32Data("h.vertices")
	var total float32
	for bar := 0; bar < 4; bar++ {
		total += verts[(bar*4+2)*3+1]
	}
	if total != float32(len(data)) {
		t.Errorf("histogram counts sum to %v, want %d", total, len(data))
	}
}

func TestHistogramConstantData(t *testing.T) {
	p, _ := newPipeline()
	payload, err := p.Histogram("h", []float32{5, 5, 5}, 10)
	if err != nil {
		t.Fatalf("Histogram: %v", err)
	}
	if payload.Count != 6 {
		t.Errorf("Count = %d, want 6 (single bin)", payload.Count)
	}
}

func TestHistogramValidation(t *testing.T) {
	p, _ := newPipeline()
	if _, err := p.Histogram("h", nil, 4); !errors.Is(err, viz.ErrInvalidInput) {
		t.Errorf("empty data err = %v, want ErrInvalidInput", err)
	}
	if _, err := p.Histogram("h", []float32{1}, 0); !errors.Is(err, viz.ErrInvalidInput) {
		t.Errorf("zero bins err = %v, want ErrInvalidInput", err)
	}
}

func TestBufferNamesNamespacedByOwner(t *testing.T) {
	p, reg := newPipeline()
	if _, err := p.Line("line-1", []float32{0, 1}, []float32{0, 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Line("line-2", []float32{5, 6}, []float32{5, 6}); err != nil {
		t.Fatal(err)
	}

	// Both geometries' storage must coexist without aliasing.
	a, _ := reg.Float32Data("line-1.vertices")
	b, _ := reg.Float32Data("line-2.vertices")
	if a[0] == b[0] {
		t.Error("buffers aliased across nodes")
	}
	if reg.Len() != 4 {
		t.Errorf("registry holds %d buffers, want 4", reg.Len())
	}
}
