package picdex

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/kailas-cloud/picdex/internal/domain/search/mode"
	"github.com/kailas-cloud/picdex/internal/domain/search/request"
	"github.com/kailas-cloud/picdex/internal/domain/search/space"
)

// SearchService runs ranked queries.
type SearchService struct {
	svc searchUseCase
	obs *observer
}

// Text finds images matching a prompt.
func (s *SearchService) Text(ctx context.Context, prompt string, q TextQuery) (hits []Hit, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search_text", start, err) }()

	filters, paging, err := toQueryParts(q.Filters, q.Count, q.Skip)
	if err != nil {
		return nil, err
	}
	req, err := request.NewText(prompt, space.Space(q.Basis), q.Exact, filters, paging)
	if err != nil {
		return nil, invalidQuery(err)
	}
	rs, err := s.svc.Text(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search text: %w", err)
	}
	return fromResults(rs), nil
}

// Image finds images similar to img.
func (s *SearchService) Image(ctx context.Context, img image.Image, q Query) (hits []Hit, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search_image", start, err) }()

	filters, paging, err := toQueryParts(q.Filters, q.Count, q.Skip)
	if err != nil {
		return nil, err
	}
	rs, err := s.svc.Image(ctx, img, filters, paging)
	if err != nil {
		return nil, fmt.Errorf("search image: %w", err)
	}
	return fromResults(rs), nil
}

// Random returns images near a random point. The same seed yields the same page.
func (s *SearchService) Random(ctx context.Context, seed uint64, q Query) (hits []Hit, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search_random", start, err) }()

	filters, paging, err := toQueryParts(q.Filters, q.Count, q.Skip)
	if err != nil {
		return nil, err
	}
	rs, err := s.svc.Random(ctx, seed, filters, paging)
	if err != nil {
		return nil, fmt.Errorf("search random: %w", err)
	}
	return fromResults(rs), nil
}

// Advanced composes positive and negative criteria into one query.
func (s *SearchService) Advanced(ctx context.Context, q CompositeQuery) (hits []Hit, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search_advanced", start, err) }()

	req, err := toComposite(q)
	if err != nil {
		return nil, err
	}
	rs, err := s.svc.Advanced(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search advanced: %w", err)
	}
	return fromResults(rs), nil
}

// Combined runs Advanced over a wider window and re-ranks it by extraPrompt
// in the other modality. Requires WithOCR.
func (s *SearchService) Combined(ctx context.Context, q CompositeQuery, extraPrompt string) (hits []Hit, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search_combined", start, err) }()

	base, err := toComposite(q)
	if err != nil {
		return nil, err
	}
	req, err := request.NewCombined(base, extraPrompt)
	if err != nil {
		return nil, invalidQuery(err)
	}
	rs, err := s.svc.Combined(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search combined: %w", err)
	}
	return fromResults(rs), nil
}

// Scroll pages through the index, newest first. Not supported by the local
// backend (ErrBackendUnavailable).
func (s *SearchService) Scroll(ctx context.Context, cursor string, count int, f Filters) (page Page, err error) {
	start := time.Now()
	defer func() { s.obs.observe("scroll", start, err) }()

	filters, err := toFilterParams(f)
	if err != nil {
		return Page{}, err
	}
	if count == 0 {
		count = request.DefaultCount
	}
	p, err := s.svc.Scroll(ctx, cursor, count, filters)
	if err != nil {
		return Page{}, fmt.Errorf("scroll: %w", err)
	}
	page = Page{Items: make([]Item, len(p.Items)), NextCursor: p.NextCursor}
	for i, it := range p.Items {
		page.Items[i] = fromItem(it)
	}
	return page, nil
}

func toComposite(q CompositeQuery) (request.Composite, error) {
	filters, paging, err := toQueryParts(q.Filters, q.Count, q.Skip)
	if err != nil {
		return request.Composite{}, err
	}
	req, err := request.NewComposite(q.Criteria, q.Negative, space.Space(q.Basis), mode.Mode(q.Mode), filters, paging)
	if err != nil {
		return request.Composite{}, invalidQuery(err)
	}
	return req, nil
}
