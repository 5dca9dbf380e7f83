// Package vector holds the float32 vector math shared by backends and ranking.
package vector

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/kailas-cloud/picdex/internal/domain"
)

// Cosine returns dot(a,b) / (|a| * |b|). A zero-magnitude operand yields
// domain.ErrNumericDomain.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("cosine %d vs %d: %w", len(a), len(b), domain.ErrVectorDimMismatch)
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, fmt.Errorf("cosine of zero-magnitude vector: %w", domain.ErrNumericDomain)
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// IsZero reports whether every component is zero.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Mean returns the component-wise average. All vectors must share a dimension.
func Mean(vs [][]float32) ([]float32, error) {
	if len(vs) == 0 {
		return nil, fmt.Errorf("mean of no vectors")
	}
	dim := len(vs[0])
	sum := make([]float64, dim)
	for _, v := range vs {
		if len(v) != dim {
			return nil, fmt.Errorf("mean %d vs %d: %w", dim, len(v), domain.ErrVectorDimMismatch)
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
	}
	out := make([]float32, dim)
	n := float64(len(vs))
	for i, s := range sum {
		out[i] = float32(s / n)
	}
	return out, nil
}

// Normalize returns v scaled to unit length. Zero vectors are returned as-is.
func Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Random returns a unit vector drawn from a seeded normal distribution.
// The same seed and dimension always yield the same vector.
func Random(dim int, seed uint64) []float32 {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // sampling, not crypto
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(r.NormFloat64())
	}
	return Normalize(v)
}
