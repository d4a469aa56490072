package features

import (
	"math"
)

// Vector is a sparse feature vector. Indices are strictly increasing and
// every index is below Dim.
type Vector struct {
	Dim     int
	Indices []int
	Values  []float64
}

// NNZ returns the number of stored entries.
func (v Vector) NNZ() int {
	return len(v.Indices)
}

// Dot returns the inner product with a dense weight slice. Entries past the
// end of w are ignored.
func (v Vector) Dot(w []float64) float64 {
	var sum float64
	for k, idx := range v.Indices {
		if idx < len(w) {
			sum += v.Values[k] * w[idx]
		}
	}
	return sum
}

// AddScaledTo performs dst += alpha * v.
func (v Vector) AddScaledTo(dst []float64, alpha float64) {
	for k, idx := range v.Indices {
		if idx < len(dst) {
			dst[idx] += alpha * v.Values[k]
		}
	}
}

// SquaredNorm returns the squared euclidean norm.
func (v Vector) SquaredNorm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return sum
}

// At returns the value stored for index i, or zero.
func (v Vector) At(i int) float64 {
	lo, hi := 0, len(v.Indices)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case v.Indices[mid] == i:
			return v.Values[mid]
		case v.Indices[mid] < i:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0
}

func (v *Vector) normalizeL2() {
	norm := math.Sqrt(v.SquaredNorm())
	if norm == 0 {
		return
	}
	for k := range v.Values {
		v.Values[k] /= norm
	}
}
