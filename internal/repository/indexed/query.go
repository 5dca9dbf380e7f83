package indexed

import (
	"context"
	"fmt"
	"slices"

	"github.com/kailas-cloud/picdex/internal/db"
	"github.com/kailas-cloud/picdex/internal/domain"
	"github.com/kailas-cloud/picdex/internal/domain/search/compose"
	"github.com/kailas-cloud/picdex/internal/domain/search/filter"
	"github.com/kailas-cloud/picdex/internal/domain/search/mode"
	"github.com/kailas-cloud/picdex/internal/domain/search/query"
	"github.com/kailas-cloud/picdex/internal/domain/search/result"
	"github.com/kailas-cloud/picdex/internal/domain/search/space"
	"github.com/kailas-cloud/picdex/internal/domain/vector"
)

// QueryByVector runs one KNN search. Numeric clauses are index pre-filters;
// substring clauses are checked on an enlarged window.
func (r *Repo) QueryByVector(ctx context.Context, q query.Vector) ([]result.Result, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	if vector.IsZero(q.Vector) {
		return nil, fmt.Errorf("query vector: %w", domain.ErrNumericDomain)
	}

	fields := r.returnFields(q.Space, q.WithVectors, false)
	hits, err := r.knn(ctx, q.Space, q.Vector, r.window(q.Skip+q.TopK, q.Filter), q.Filter, fields)
	if err != nil {
		return nil, err
	}
	return page(hits, q.Skip, q.TopK, q.WithVectors), nil
}

// QueryByComposition blends positive and negative examples. Average mode
// searches around 2*mean(pos) - mean(neg); best_score mode unions the KNN
// neighborhoods of every positive and rescores each candidate locally.
func (r *Repo) QueryByComposition(ctx context.Context, q query.Composition) ([]result.Result, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	if len(q.Positive) == 0 {
		return nil, nil
	}

	window := r.window(q.Skip+q.TopK, q.Filter)

	if q.Mode == mode.Average {
		target, err := compose.Average(q.Positive, q.Negative)
		if err != nil {
			return nil, fmt.Errorf("compose query: %w: %w", domain.ErrInvalidQuery, err)
		}
		if vector.IsZero(target) {
			return nil, fmt.Errorf("composed query vector: %w", domain.ErrNumericDomain)
		}
		fields := r.returnFields(q.Space, q.WithVectors, q.WithVectors)
		hits, err := r.knn(ctx, q.Space, target, window, q.Filter, fields)
		if err != nil {
			return nil, err
		}
		return page(hits, q.Skip, q.TopK, q.WithVectors), nil
	}

	if !slices.ContainsFunc(q.Positive, func(v []float32) bool { return !vector.IsZero(v) }) {
		return nil, fmt.Errorf("positive vectors: %w", domain.ErrNumericDomain)
	}

	fields := r.returnFields(q.Space, true, q.WithVectors)
	byID := make(map[string]hit)
	for _, pos := range q.Positive {
		if vector.IsZero(pos) {
			continue
		}
		hits, err := r.knn(ctx, q.Space, pos, window, q.Filter, fields)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			byID[h.item.ID()] = h
		}
	}

	candidates := make([]hit, 0, len(byID))
	for _, h := range byID {
		score, err := compose.BestScore(vectorOf(h, q.Space), q.Positive, q.Negative)
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", h.item.ID(), err)
		}
		h.score = score
		candidates = append(candidates, h)
	}
	return page(candidates, q.Skip, q.TopK, q.WithVectors), nil
}

// knn fetches up to k neighbors and applies the full filter locally.
func (r *Repo) knn(
	ctx context.Context, sp space.Space, vec []float32, k int,
	filters filter.Params, fields []string,
) ([]hit, error) {
	if sp == space.Text && r.opts.TextDim <= 0 {
		return nil, fmt.Errorf("text vector space is not indexed: %w", domain.ErrOCRSearchDisabled)
	}
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.opts.IndexName,
		VectorField:  vectorField(sp),
		Ranges:       numericRanges(filters),
		Tags:         tagInfix(filters),
		Vector:       vec,
		K:            k,
		ReturnFields: fields,
	})
	if err != nil {
		return nil, unavailable("knn search", err)
	}

	entries := entriesOf(sr)
	hits := make([]hit, 0, len(entries))
	for _, e := range entries {
		it, seq := parseHashFields(r.idFromKey(e.Key), e.Fields)
		if !filter.Passes(it, filters) {
			continue
		}
		hits = append(hits, hit{item: it, seq: seq, score: e.Score})
	}
	return hits, nil
}

// window sizes a KNN fetch: exactly need, or need*PostFilterFactor (capped)
// when substring clauses will discard hits after retrieval.
func (r *Repo) window(need int, filters filter.Params) int {
	if !postFiltered(filters) {
		return need
	}
	return max(need, min(need*r.opts.PostFilterFactor, r.opts.MaxWindow))
}

func (r *Repo) returnFields(sp space.Space, own, cross bool) []string {
	fields := slices.Clone(metaFields)
	if own {
		fields = append(fields, vectorField(sp))
	}
	if cross && (sp != space.Vision || r.opts.TextDim > 0) {
		fields = append(fields, vectorField(sp.Other()))
	}
	return fields
}

func vectorField(sp space.Space) string {
	if sp == space.Text {
		return fieldTextVector
	}
	return fieldVisionVector
}

func vectorOf(h hit, sp space.Space) []float32 {
	if sp == space.Text {
		return h.item.TextVector()
	}
	return h.item.VisionVector()
}

// page sorts by score descending with insertion order on ties, then applies
// skip and top_k.
func page(hits []hit, skip, topK int, withVectors bool) []result.Result {
	slices.SortStableFunc(hits, func(a, b hit) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		default:
			return 0
		}
	})
	if skip >= len(hits) {
		return []result.Result{}
	}
	hits = hits[skip:min(len(hits), skip+topK)]

	out := make([]result.Result, len(hits))
	for i, h := range hits {
		it := h.item
		if !withVectors {
			it = it.WithoutVectors()
		}
		out[i] = result.New(it, h.score)
	}
	return out
}
