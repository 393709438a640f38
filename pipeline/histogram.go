package pipeline

import "github.com/chewxy/math32"

// histogram computes bin-center x positions and per-bin counts for a
// fixed-width histogram over [min(data), max(data)]. The last bin's upper
// edge is inclusive so the maximum sample is always counted. Constant data
// gets a single unit-width bin centered on the value.
func histogram(data []float32, bins int) (centers, counts []float32) {
	lo, hi := data[0], data[0]
	for _, v := range data[1:] {
		lo = math32.Min(lo, v)
		hi = math32.Max(hi, v)
	}

	if lo == hi {
		return []float32{lo}, []float32{float32(len(data))}
	}

	width := (hi - lo) / float32(bins)
	counts = make([]float32, bins)
	for _, v := range data {
		b := int(math32.Floor((v - lo) / width))
		if b >= bins {
			b = bins - 1
		}
		counts[b]++
	}

	centers = make([]float32, bins)
	for i := range centers {
		centers[i] = lo + width*(float32(i)+0.5)
	}
	return centers, counts
}
