package indexer

import (
	"context"
	"image"

	"github.com/kailas-cloud/picdex/internal/domain"
	"github.com/kailas-cloud/picdex/internal/domain/item"
)

// Backend is the write side of a search backend.
type Backend interface {
	ValidateIDs(ctx context.Context, ids []string) ([]string, error)
	InsertBatch(ctx context.Context, items []item.Item, overwrite bool) error
}

// ImageEmbedder produces the mandatory vision vector.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, img image.Image) (domain.EmbeddingResult, error)
}

// Embedder embeds extracted text into the OCR space.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Tagger labels images.
type Tagger interface {
	Tags(ctx context.Context, img image.Image) ([]string, error)
}

// TextExtractor runs OCR.
type TextExtractor interface {
	ExtractText(ctx context.Context, img image.Image) (string, error)
}
