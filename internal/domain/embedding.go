package domain

import (
	"context"
	"fmt"
	"image"
)

// Embedder vectorizes text. The vision encoder's text tower and the OCR-space
// text encoder both satisfy it.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// ImageEmbedder vectorizes an image into the vision space.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, img image.Image) (EmbeddingResult, error)
}

// Tagger labels an image. Implementations return only labels above their
// confidence threshold, ordered by confidence.
type Tagger interface {
	Tags(ctx context.Context, img image.Image) ([]string, error)
}

// TextExtractor runs OCR over an image. An image without text yields "".
type TextExtractor interface {
	ExtractText(ctx context.Context, img image.Image) (string, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// InstructionEmbedder prepends a prompt template before embedding, e.g.
// "a photo of " for CLIP-style text towers.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed prepends the instruction and delegates to the inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}
