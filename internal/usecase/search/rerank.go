package search

import (
	"slices"

	"github.com/kailas-cloud/picdex/internal/domain/search/result"
	"github.com/kailas-cloud/picdex/internal/domain/search/space"
	"github.com/kailas-cloud/picdex/internal/domain/vector"
)

// rerank boosts each result by its similarity to extra in space sp:
// score' = (1 + cos) * score. Results without a usable vector in sp keep their
// score. The list is re-sorted by the new score, stable on ties.
func rerank(results []result.Result, extra []float32, sp space.Space) []result.Result {
	out := slices.Clone(results)
	if vector.IsZero(extra) {
		return out
	}
	for i, r := range out {
		v := r.Item().TextVector()
		if sp == space.Vision {
			v = r.Item().VisionVector()
		}
		if len(v) == 0 || vector.IsZero(v) {
			continue
		}
		cos, err := vector.Cosine(extra, v)
		if err != nil {
			continue
		}
		out[i] = r.WithScore((1 + cos) * r.Score())
	}
	slices.SortStableFunc(out, func(a, b result.Result) int {
		switch {
		case a.Score() > b.Score():
			return -1
		case a.Score() < b.Score():
			return 1
		default:
			return 0
		}
	})
	return out
}
