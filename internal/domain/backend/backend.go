// Package backend defines the capability set every search backend implements.
package backend

import (
	"context"

	"github.com/kailas-cloud/picdex/internal/domain/item"
	"github.com/kailas-cloud/picdex/internal/domain/search/filter"
	"github.com/kailas-cloud/picdex/internal/domain/search/query"
	"github.com/kailas-cloud/picdex/internal/domain/search/result"
)

// Backend is a similarity index selected once at startup.
//
// Query results are sorted by score descending with ties in insertion order.
// InsertBatch is all-or-nothing; without overwrite any existing or repeated id
// rejects the batch with *domain.DuplicateError.
type Backend interface {
	QueryByVector(ctx context.Context, q query.Vector) ([]result.Result, error)
	QueryByComposition(ctx context.Context, q query.Composition) ([]result.Result, error)
	Scroll(ctx context.Context, cursor string, count int, filters filter.Params) (Page, error)
	ValidateIDs(ctx context.Context, ids []string) ([]string, error)
	InsertBatch(ctx context.Context, items []item.Item, overwrite bool) error
}

// Page is one scroll step. NextCursor is empty once the corpus is exhausted.
type Page struct {
	Items      []item.Item
	NextCursor string
}
