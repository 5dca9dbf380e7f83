package search

import (
	"context"
	"image"

	"github.com/kailas-cloud/picdex/internal/domain"
	"github.com/kailas-cloud/picdex/internal/domain/backend"
	"github.com/kailas-cloud/picdex/internal/domain/search/filter"
	"github.com/kailas-cloud/picdex/internal/domain/search/query"
	"github.com/kailas-cloud/picdex/internal/domain/search/result"
)

// Backend is the subset of backend.Backend the ranking engine queries.
type Backend interface {
	QueryByVector(ctx context.Context, q query.Vector) ([]result.Result, error)
	QueryByComposition(ctx context.Context, q query.Composition) ([]result.Result, error)
	Scroll(ctx context.Context, cursor string, count int, filters filter.Params) (backend.Page, error)
}

// Embedder vectorizes text prompts.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// ImageEmbedder vectorizes query images into the vision space.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, img image.Image) (domain.EmbeddingResult, error)
}
