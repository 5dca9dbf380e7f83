package result

import "github.com/kailas-cloud/picdex/internal/domain/item"

// Result is a single search hit.
type Result struct {
	item  item.Item
	score float64
}

// New creates a search result.
func New(it item.Item, score float64) Result {
	return Result{item: it, score: score}
}

// ID returns the item identifier.
func (r Result) ID() string { return r.item.ID() }

// Item returns the matched item.
func (r Result) Item() item.Item { return r.item }

// Score returns the relevance score, higher is better.
func (r Result) Score() float64 { return r.score }

// WithScore returns a copy with the score replaced.
func (r Result) WithScore(score float64) Result {
	r.score = score
	return r
}

// WithItem returns a copy with the item replaced.
func (r Result) WithItem(it item.Item) Result {
	r.item = it
	return r
}
