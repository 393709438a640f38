package lod

import "testing"

func makeLine(n int) []float32 {
	verts := make([]float32, 0, n*3)
	for i := 0; i < n; i++ {
		verts = append(verts, float32(i), float32(i%7), 0)
	}
	return verts
}

func TestSimplifyLineSmallInputUnchanged(t *testing.T) {
	for _, n := range []int{2, 1, 0} {
		verts := makeLine(n)
		out, idx := SimplifyLine(verts, 10)
		if len(out) != len(verts) {
			t.Errorf("n=%d: vertex count changed: got %d, want %d", n, len(out)/3, n)
		}
		if len(idx) != n {
			t.Errorf("n=%d: index count = %d, want %d", n, len(idx), n)
		}
	}
}

func TestSimplifyLineBelowTargetUnchanged(t *testing.T) {
	verts := makeLine(100)
	out, idx := SimplifyLine(verts, 100)
	if len(out)/3 != 100 {
		t.Errorf("vertex count = %d, want 100", len(out)/3)
	}
	for i, v := range idx {
		if v != uint32(i) {
			t.Fatalf("idx[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestSimplifyLineEndpointsAndBudget(t *testing.T) {
	const n, target = 50000, 10000
	verts := makeLine(n)
	out, idx := SimplifyLine(verts, target)

	m := len(out) / 3
	if m > target+1 {
		t.Errorf("simplified vertex count = %d, want <= %d", m, target+1)
	}
	if m < 2 {
		t.Errorf("simplified vertex count = %d, want >= 2", m)
	}

	// First and last original vertices must survive.
	if out[0] != verts[0] || out[1] != verts[1] {
		t.Error("first vertex not retained")
	}
	if out[(m-1)*3] != verts[(n-1)*3] || out[(m-1)*3+1] != verts[(n-1)*3+1] {
		t.Error("last vertex not retained")
	}

	// Indices must be renumbered 0..m-1.
	if len(idx) != m {
		t.Fatalf("index count = %d, want %d", len(idx), m)
	}
	for i, v := range idx {
		if v != uint32(i) {
			t.Fatalf("idx[%d] = %d, want contiguous renumbering", i, v)
		}
	}
}

func TestSimplifyLineDeterministic(t *testing.T) {
	verts := makeLine(30000)
	a, _ := SimplifyLine(verts, 1000)
	b, _ := SimplifyLine(verts, 1000)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("output differs at %d", i)
		}
	}
}

func TestSampleIndicesStride(t *testing.T) {
	tests := []struct {
		n, target int
		wantFirst int
		wantMax   int
	}{
		{100, 200, 0, 100},   // below target: all kept
		{100, 10, 0, 11},     // stride 10
		{100000, 50000, 0, 50001},
	}
	for _, tt := range tests {
		idx := SampleIndices(tt.n, tt.target)
		if len(idx) == 0 || idx[0] != tt.wantFirst {
			t.Errorf("SampleIndices(%d, %d): first = %v, want %d", tt.n, tt.target, idx[:1], tt.wantFirst)
		}
		if len(idx) > tt.wantMax {
			t.Errorf("SampleIndices(%d, %d): count = %d, want <= %d", tt.n, tt.target, len(idx), tt.wantMax)
		}
		for i := 1; i < len(idx); i++ {
			if idx[i] <= idx[i-1] {
				t.Fatalf("SampleIndices(%d, %d): not strictly increasing at %d", tt.n, tt.target, i)
			}
		}
	}
}

func TestGatherConsistentAcrossComponents(t *testing.T) {
	// Tag each point with its original index in every array; the gathered
	// triple must stay self-consistent.
	const n = 1000
	verts := make([]float32, n*3)
	sizes := make([]float32, n)
	colors := make([]float32, n*4)
	for i := 0; i < n; i++ {
		verts[i*3] = float32(i)
		sizes[i] = float32(i)
		colors[i*4] = float32(i)
	}

	idx := SampleIndices(n, 100)
	gv := Gather(verts, 3, idx)
	gs := Gather(sizes, 1, idx)
	gc := Gather(colors, 4, idx)

	for k := range idx {
		tag := gv[k*3]
		if gs[k] != tag || gc[k*4] != tag {
			t.Fatalf("point %d: inconsistent selection: vert=%v size=%v color=%v",
				k, gv[k*3], gs[k], gc[k*4])
		}
	}
}

func TestConfigTargets(t *testing.T) {
	c := DefaultConfig()
	if c.LineBudget() != DefaultLineTarget {
		t.Errorf("lineTarget = %d, want %d", c.LineBudget(), DefaultLineTarget)
	}
	c.LineTarget = 500
	if c.LineBudget() != 500 {
		t.Errorf("lineTarget = %d, want 500", c.LineBudget())
	}
	if c.ScatterBudget() != DefaultScatterTarget {
		t.Errorf("scatterTarget = %d, want %d", c.ScatterBudget(), DefaultScatterTarget)
	}
}
