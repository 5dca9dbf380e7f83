// Package compose implements multi-vector query composition.
package compose

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/picdex/internal/domain/vector"
)

// Average returns the query vector 2*mean(pos) - mean(neg), or mean(pos)
// when there are no negatives.
func Average(pos, neg [][]float32) ([]float32, error) {
	if len(pos) == 0 {
		return nil, fmt.Errorf("average composition needs a positive vector")
	}
	p, err := vector.Mean(pos)
	if err != nil {
		return nil, fmt.Errorf("positive mean: %w", err)
	}
	if len(neg) == 0 {
		return p, nil
	}
	n, err := vector.Mean(neg)
	if err != nil {
		return nil, fmt.Errorf("negative mean: %w", err)
	}
	if len(n) != len(p) {
		return nil, fmt.Errorf("negative mean: dimension %d vs %d", len(n), len(p))
	}
	out := make([]float32, len(p))
	for i := range p {
		out[i] = 2*p[i] - n[i]
	}
	return out, nil
}

// BestScore scores a candidate against positive and negative examples: the
// best positive similarity if it beats the best negative one, otherwise the
// negated best negative similarity. Zero-magnitude examples are skipped.
func BestScore(candidate []float32, pos, neg [][]float32) (float64, error) {
	if vector.IsZero(candidate) {
		return 0, nil
	}
	bestPos, err := best(candidate, pos)
	if err != nil {
		return 0, err
	}
	if len(neg) == 0 {
		return bestPos, nil
	}
	bestNeg, err := best(candidate, neg)
	if err != nil {
		return 0, err
	}
	if bestPos > bestNeg {
		return bestPos, nil
	}
	return -bestNeg, nil
}

func best(candidate []float32, examples [][]float32) (float64, error) {
	b := math.Inf(-1)
	for _, e := range examples {
		if vector.IsZero(e) {
			continue
		}
		s, err := vector.Cosine(candidate, e)
		if err != nil {
			return 0, err
		}
		b = math.Max(b, s)
	}
	if math.IsInf(b, -1) {
		return -1, nil
	}
	return b, nil
}
