package matfile

// squeeze drops singleton dimensions. Zero-length dimensions are kept so
// that empty arrays stay distinguishable from scalars.
func squeeze(dims []int) []int {
	out := make([]int, 0, len(dims))
	for _, d := range dims {
		if d != 1 {
			out = append(out, d)
		}
	}
	return out
}

// toRowMajor reorders column-major (MATLAB) data into row-major order for
// the given dimensions. Arrays with at most one non-singleton dimension are
// returned unchanged.
func toRowMajor[T any](vals []T, dims []int) []T {
	if len(squeeze(dims)) <= 1 {
		return vals
	}
	out := make([]T, len(vals))
	idx := make([]int, len(dims))
	for r := range out {
		c, stride := 0, 1
		for k, d := range dims {
			c += idx[k] * stride
			stride *= d
		}
		out[r] = vals[c]
		for k := len(dims) - 1; k >= 0; k-- {
			idx[k]++
			if idx[k] < dims[k] {
				break
			}
			idx[k] = 0
		}
	}
	return out
}
