// Package lod implements adaptive level-of-detail reductions for large
// geometry. All transforms are pure and deterministic: the same input and
// the same configuration always produce the same output, so LOD behavior
// is reproducible in tests.
package lod

// Default reduction targets. A geometry whose element count exceeds the
// matching threshold is reduced down to approximately the target count.
const (
	// DefaultLineTarget is the default vertex budget for simplified lines.
	DefaultLineTarget = 10000

	// DefaultScatterTarget is the default point budget for sampled scatters.
	DefaultScatterTarget = 50000
)

// Config holds the reduction thresholds and targets. It is read once per
// pipeline invocation, never mid-operation, and is passed explicitly so
// independent engine instances can use independent thresholds.
type Config struct {
	// LineSimplifyAbove triggers line simplification when the vertex count
	// exceeds it. Zero or negative disables line simplification.
	LineSimplifyAbove int `yaml:"line_simplify_above"`

	// ScatterSampleAbove triggers scatter subsampling when the point count
	// exceeds it. Zero or negative disables scatter subsampling.
	ScatterSampleAbove int `yaml:"scatter_sample_above"`

	// LineTarget is the vertex budget for simplified lines.
	// Zero means LineSimplifyAbove.
	LineTarget int `yaml:"line_target"`

	// ScatterTarget is the point budget for sampled scatters.
	// Zero means ScatterSampleAbove.
	ScatterTarget int `yaml:"scatter_target"`
}

// DefaultConfig returns the default thresholds: lines simplify above 10000
// vertices, scatters sample above 50000 points, with targets equal to the
// thresholds.
func DefaultConfig() Config {
	return Config{
		LineSimplifyAbove:  DefaultLineTarget,
		ScatterSampleAbove: DefaultScatterTarget,
	}
}

// LineBudget returns the effective line vertex budget.
func (c Config) LineBudget() int {
	if c.LineTarget > 0 {
		return c.LineTarget
	}
	return c.LineSimplifyAbove
}

// ScatterBudget returns the effective scatter point budget.
func (c Config) ScatterBudget() int {
	if c.ScatterTarget > 0 {
		return c.ScatterTarget
	}
	return c.ScatterSampleAbove
}

// SimplifyLine reduces a line's vertex count to at most target+1 vertices.
// Vertices are xyz triples in a flat slice. The first and last original
// vertices always survive, and the returned index buffer is renumbered
// contiguously 0..m-1 so it can drive a line-strip draw directly.
//
// Inputs with two or fewer vertices are returned unchanged, paired with a
// matching monotonic index sequence. Output length is always at least 2 for
// inputs of at least 2 vertices.
func SimplifyLine(vertices []float32, target int) ([]float32, []uint32) {
	n := len(vertices) / 3
	if n <= 2 || target <= 0 || n <= target {
		return vertices, monotonicIndices(n)
	}

	selected := selectLineIndices(n, target)
	out := make([]float32, 0, len(selected)*3)
	for _, i := range selected {
		out = append(out, vertices[i*3], vertices[i*3+1], vertices[i*3+2])
	}
	return out, monotonicIndices(len(selected))
}

// selectLineIndices picks the original vertex indices retained by line
// simplification: every stride-th vertex plus the final vertex.
func selectLineIndices(n, target int) []int {
	stride := n / target
	if stride < 1 {
		stride = 1
	}
	selected := make([]int, 0, n/stride+2)
	for i := 0; i < n; i += stride {
		selected = append(selected, i)
	}
	if selected[len(selected)-1] != n-1 {
		selected = append(selected, n-1)
	}
	return selected
}

// SampleIndices returns the uniform-stride index set used for scatter
// subsampling: every stride-th point with stride = max(1, n/target).
// Callers must apply the identical set to vertices, sizes, and colors so
// each output point corresponds to exactly one input point.
//
// If n is at most target (or target is non-positive), all indices are
// returned.
func SampleIndices(n, target int) []int {
	if target <= 0 || n <= target {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	stride := n / target
	if stride < 1 {
		stride = 1
	}
	idx := make([]int, 0, n/stride+1)
	for i := 0; i < n; i += stride {
		idx = append(idx, i)
	}
	return idx
}

// Gather selects elements of src at the given indices. Each element is
// comps consecutive float32 values (3 for xyz vertices, 4 for RGBA colors,
// 1 for sizes).
func Gather(src []float32, comps int, indices []int) []float32 {
	out := make([]float32, 0, len(indices)*comps)
	for _, i := range indices {
		out = append(out, src[i*comps:(i+1)*comps]...)
	}
	return out
}

// monotonicIndices returns the contiguous index sequence 0..n-1.
func monotonicIndices(n int) []uint32 {
	idx := make([]uint32, n)
	for i := range idx {
		idx[i] = uint32(i)
	}
	return idx
}
