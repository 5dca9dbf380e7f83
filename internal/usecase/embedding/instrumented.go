package embedding

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/picdex/internal/domain"
)

// InstrumentedEmbedder wraps an embedding source with request logging.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps a text embedder with logging.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, logger *zap.Logger) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{inner: inner, provider: provider, model: model, logger: logger}
}

// Embed delegates to the inner embedder and logs the outcome.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	if err := logOutcome(p.logger, "text", p.provider, p.model, start, result, err); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return result, nil
}

// InstrumentedImageEmbedder wraps an image embedder with request logging.
type InstrumentedImageEmbedder struct {
	inner    domain.ImageEmbedder
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedImageEmbedder wraps an image embedder with logging.
func NewInstrumentedImageEmbedder(
	inner domain.ImageEmbedder, provider, model string, logger *zap.Logger,
) *InstrumentedImageEmbedder {
	return &InstrumentedImageEmbedder{inner: inner, provider: provider, model: model, logger: logger}
}

// EmbedImage delegates to the inner embedder and logs the outcome.
func (p *InstrumentedImageEmbedder) EmbedImage(ctx context.Context, img image.Image) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.EmbedImage(ctx, img)
	if err := logOutcome(p.logger, "image", p.provider, p.model, start, result, err); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed image: %w", err)
	}
	return result, nil
}

func logOutcome(
	logger *zap.Logger, input, provider, model string,
	start time.Time, result domain.EmbeddingResult, err error,
) error {
	fields := []zap.Field{
		zap.String("input", input),
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		logger.Error("Embedding request failed", append(fields, zap.Error(err))...)
		return err
	}
	logger.Debug("Embedding request completed", append(fields,
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)...)
	return nil
}
