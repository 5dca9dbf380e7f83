package picdex

import (
	"context"
	"fmt"
	"image"

	"github.com/kailas-cloud/picdex/internal/domain"
)

// Embedder converts text to vector embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// ImageEmbedder converts images to vector embeddings.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, img image.Image) (EmbeddingResult, error)
}

// VisionEmbedder is a two-tower model (CLIP and the like): prompts and
// images land in the same space.
type VisionEmbedder interface {
	Embedder
	ImageEmbedder
}

// TextExtractor runs OCR. An empty string means the image has no text.
type TextExtractor interface {
	ExtractText(ctx context.Context, img image.Image) (string, error)
}

// Tagger labels images.
type Tagger interface {
	Tags(ctx context.Context, img image.Image) ([]string, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// embedderAdapter wraps public embedders to satisfy the internal interfaces.
type embedderAdapter struct {
	text  Embedder
	image ImageEmbedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.text.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return toDomainResult(r), nil
}

func (a *embedderAdapter) EmbedImage(ctx context.Context, img image.Image) (domain.EmbeddingResult, error) {
	r, err := a.image.EmbedImage(ctx, img)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed image: %w", err)
	}
	return toDomainResult(r), nil
}

func toDomainResult(r EmbeddingResult) domain.EmbeddingResult {
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}
}
