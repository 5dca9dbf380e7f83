// Package query defines the backend-facing similarity queries.
package query

import (
	"fmt"

	"github.com/kailas-cloud/picdex/internal/domain/search/filter"
	"github.com/kailas-cloud/picdex/internal/domain/search/mode"
	"github.com/kailas-cloud/picdex/internal/domain/search/space"
)

// MaxTopK caps the number of hits a single backend call may return.
const MaxTopK = 1000

// Vector is a single-vector nearest-neighbor query.
type Vector struct {
	Vector      []float32
	Space       space.Space
	TopK        int
	Skip        int
	Filter      filter.Params
	WithVectors bool
}

// Validate checks paging bounds and the vector space.
func (q Vector) Validate() error {
	if len(q.Vector) == 0 {
		return fmt.Errorf("query vector is required")
	}
	return validate(q.Space, q.TopK, q.Skip)
}

// Composition is a multi-vector query built from positive and negative examples.
type Composition struct {
	Space       space.Space
	Positive    [][]float32
	Negative    [][]float32
	Mode        mode.Mode
	TopK        int
	Skip        int
	Filter      filter.Params
	WithVectors bool
}

// Validate checks paging bounds, the vector space and the mode.
func (q Composition) Validate() error {
	if !q.Mode.IsValid() {
		return fmt.Errorf("invalid composition mode: %q", q.Mode)
	}
	return validate(q.Space, q.TopK, q.Skip)
}

func validate(s space.Space, topK, skip int) error {
	if !s.IsValid() {
		return fmt.Errorf("invalid vector space: %q", s)
	}
	if topK <= 0 || topK > MaxTopK {
		return fmt.Errorf("top_k must be between 1 and %d", MaxTopK)
	}
	if skip < 0 || skip+topK > MaxTopK {
		return fmt.Errorf("skip must be non-negative and skip+top_k at most %d", MaxTopK)
	}
	return nil
}
