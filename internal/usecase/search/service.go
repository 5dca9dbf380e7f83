package search

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/kailas-cloud/picdex/internal/domain"
	"github.com/kailas-cloud/picdex/internal/domain/backend"
	"github.com/kailas-cloud/picdex/internal/domain/search/filter"
	"github.com/kailas-cloud/picdex/internal/domain/search/query"
	"github.com/kailas-cloud/picdex/internal/domain/search/request"
	"github.com/kailas-cloud/picdex/internal/domain/search/result"
	"github.com/kailas-cloud/picdex/internal/domain/search/space"
	"github.com/kailas-cloud/picdex/internal/domain/vector"
	"github.com/kailas-cloud/picdex/internal/metrics"
)

// Combined search widens the candidate pool before re-ranking.
const (
	combinedMinPool = 30
	combinedMaxPool = 100
	combinedFactor  = 3
)

// Encoders bundles the embedding sources. Text is nil when OCR search is disabled.
type Encoders struct {
	// Vision embeds prompts with the vision model's text tower.
	Vision Embedder
	// Image embeds query images into the vision space.
	Image ImageEmbedder
	// Text embeds prompts into the OCR text space.
	Text Embedder
	// VisionDim is the vision space dimension, used for random picks.
	VisionDim int
}

// Service is the ranking engine: it turns requests into backend queries and
// re-ranks combined searches across modalities.
type Service struct {
	backend Backend
	enc     Encoders
	logger  *zap.Logger
}

// New creates a search service.
func New(b Backend, enc Encoders, logger *zap.Logger) *Service {
	return &Service{backend: b, enc: enc, logger: logger}
}

// OCREnabled reports whether text-basis queries can be served.
func (s *Service) OCREnabled() bool { return s.enc.Text != nil }

// Text searches by prompt. In the text basis, exact additionally requires the
// OCR text to contain the prompt literally.
func (s *Service) Text(ctx context.Context, req request.Text) (res []result.Result, err error) {
	defer observe("text", req.Basis(), &err)

	vec, err := s.embedPrompt(ctx, req.Basis(), req.Prompt())
	if err != nil {
		return nil, err
	}
	filters := req.Filters()
	if req.Basis() == space.Text && req.Exact() {
		filters = filters.WithOCRText(req.Prompt())
	}
	return s.byVector(ctx, vec, req.Basis(), filters, req.Paging())
}

// Image searches by an uploaded image in the vision space.
func (s *Service) Image(
	ctx context.Context, img image.Image, filters filter.Params, paging request.Paging,
) (res []result.Result, err error) {
	defer observe("image", space.Vision, &err)

	emb, err := s.enc.Image.EmbedImage(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("vectorize image: %w", err)
	}
	return s.byVector(ctx, emb.Embedding, space.Vision, filters, paging)
}

// Random returns a page of items near a seeded random point of the vision
// space. The same seed yields the same page.
func (s *Service) Random(
	ctx context.Context, seed uint64, filters filter.Params, paging request.Paging,
) (res []result.Result, err error) {
	defer observe("random", space.Vision, &err)

	if s.enc.VisionDim <= 0 {
		return nil, fmt.Errorf("random pick: vision dimension is not configured")
	}
	return s.byVector(ctx, vector.Random(s.enc.VisionDim, seed), space.Vision, filters, paging)
}

// Advanced composes positive and negative criteria into one query.
func (s *Service) Advanced(ctx context.Context, req request.Composite) (res []result.Result, err error) {
	defer observe("advanced", req.Basis(), &err)

	q, err := s.composition(ctx, req)
	if err != nil {
		return nil, err
	}
	q.TopK = req.Paging().Count()
	q.Skip = req.Paging().Skip()

	res, err = s.backend.QueryByComposition(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query by composition: %w", err)
	}
	return res, nil
}

// Combined runs a composite search over a widened pool and re-ranks it by
// similarity to the extra prompt in the other modality.
func (s *Service) Combined(ctx context.Context, req request.Combined) (res []result.Result, err error) {
	defer observe("combined", req.Basis(), &err)

	if !s.OCREnabled() {
		return nil, domain.ErrOCRSearchDisabled
	}

	q, err := s.composition(ctx, req.Composite)
	if err != nil {
		return nil, err
	}
	count := req.Paging().Count()
	q.TopK = min(max(combinedMinPool, count*combinedFactor), combinedMaxPool)
	q.Skip = req.Paging().Skip()
	q.WithVectors = true

	pool, err := s.backend.QueryByComposition(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query by composition: %w", err)
	}

	other := req.Basis().Other()
	extra, err := s.embedPrompt(ctx, other, req.ExtraPrompt())
	if err != nil {
		return nil, fmt.Errorf("extra prompt: %w", err)
	}

	ranked := rerank(pool, extra, other)
	if len(ranked) > count {
		ranked = ranked[:count]
	}
	for i, r := range ranked {
		ranked[i] = r.WithItem(r.Item().WithoutVectors())
	}
	return ranked, nil
}

// Scroll pages through the corpus newest first.
func (s *Service) Scroll(
	ctx context.Context, cursor string, count int, filters filter.Params,
) (backend.Page, error) {
	if count < 1 || count > request.MaxCount {
		return backend.Page{}, fmt.Errorf("%w: count must be between 1 and %d", domain.ErrInvalidQuery, request.MaxCount)
	}
	page, err := s.backend.Scroll(ctx, cursor, count, filters)
	if err != nil {
		return backend.Page{}, fmt.Errorf("scroll: %w", err)
	}
	return page, nil
}

func (s *Service) byVector(
	ctx context.Context, vec []float32, sp space.Space, filters filter.Params, paging request.Paging,
) ([]result.Result, error) {
	res, err := s.backend.QueryByVector(ctx, query.Vector{
		Vector: vec,
		Space:  sp,
		TopK:   paging.Count(),
		Skip:   paging.Skip(),
		Filter: filters,
	})
	if err != nil {
		return nil, fmt.Errorf("query by vector: %w", err)
	}
	return res, nil
}

// composition embeds every criterion with the basis encoder.
func (s *Service) composition(ctx context.Context, req request.Composite) (query.Composition, error) {
	pos, err := s.embedAll(ctx, req.Basis(), req.Criteria())
	if err != nil {
		return query.Composition{}, fmt.Errorf("criteria: %w", err)
	}
	neg, err := s.embedAll(ctx, req.Basis(), req.Negative())
	if err != nil {
		return query.Composition{}, fmt.Errorf("negative criteria: %w", err)
	}
	return query.Composition{
		Space:    req.Basis(),
		Positive: pos,
		Negative: neg,
		Mode:     req.Mode(),
		Filter:   req.Filters(),
	}, nil
}

func (s *Service) embedAll(ctx context.Context, sp space.Space, prompts []string) ([][]float32, error) {
	if len(prompts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(prompts))
	for i, p := range prompts {
		vec, err := s.embedPrompt(ctx, sp, p)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// embedPrompt picks the encoder for sp: the vision text tower or the OCR text model.
func (s *Service) embedPrompt(ctx context.Context, sp space.Space, prompt string) ([]float32, error) {
	enc := s.enc.Vision
	if sp == space.Text {
		if s.enc.Text == nil {
			return nil, domain.ErrOCRSearchDisabled
		}
		enc = s.enc.Text
	}
	emb, err := enc.Embed(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("vectorize prompt: %w", err)
	}
	return emb.Embedding, nil
}

func observe(kind string, basis space.Space, err *error) {
	status := "ok"
	if *err != nil {
		status = "error"
	}
	metrics.SearchRequestsTotal.WithLabelValues(kind, string(basis), status).Inc()
}
