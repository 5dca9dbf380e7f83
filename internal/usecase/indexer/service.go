// Package indexer turns raw images into searchable items and writes them to
// the active backend without duplicating content.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/picdex/internal/domain"
	"github.com/kailas-cloud/picdex/internal/domain/item"
	"github.com/kailas-cloud/picdex/internal/imaging"
)

// Defaults for Options.
const (
	DefaultBatchSize = 10
	DefaultWorkers   = 4
)

// Enrichers are the embedding sources. Only Vision is required; a nil Tagger
// disables tagging, and OCR runs only when both OCR and Text are set.
type Enrichers struct {
	Vision ImageEmbedder
	Text   Embedder
	Tagger Tagger
	OCR    TextExtractor
}

// Options tunes bulk indexing.
type Options struct {
	BatchSize int // files per scan batch
	Workers   int // items prepared concurrently within a batch
}

// Source is one image to index: its raw bytes and caller-known metadata.
// Dimensions and format are filled from the bytes when unset.
type Source struct {
	Raw  []byte
	Meta item.Metadata
}

// IndexOptions control a single-image ingestion.
type IndexOptions struct {
	SkipDuplicateCheck bool
	SkipOCR            bool
}

// BatchOptions control a batch ingestion.
type BatchOptions struct {
	SkipOCR        bool
	AllowOverwrite bool
}

// Service is the deduplicating indexer.
type Service struct {
	backend Backend
	enc     Enrichers
	opts    Options
	logger  *zap.Logger
}

// New creates an indexer.
func New(b Backend, enc Enrichers, opts Options, logger *zap.Logger) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Service{backend: b, enc: enc, opts: opts, logger: logger}
}

// OCREnabled reports whether items get OCR text and a text vector.
func (s *Service) OCREnabled() bool { return s.enc.OCR != nil && s.enc.Text != nil }

// DeriveID returns the content-derived identifier of raw.
func DeriveID(raw []byte) string { return item.DeriveID(raw) }

// IsDuplicate reports whether any of ids is already indexed.
func (s *Service) IsDuplicate(ctx context.Context, ids []string) (bool, error) {
	existing, err := s.backend.ValidateIDs(ctx, ids)
	if err != nil {
		return false, fmt.Errorf("validate ids: %w", err)
	}
	return len(existing) > 0, nil
}

// IndexOne ingests a single image. A duplicate fails with *domain.DuplicateError
// unless the check is skipped, in which case the stored copy is overwritten.
func (s *Service) IndexOne(ctx context.Context, src Source, o IndexOptions) (item.Item, error) {
	id := DeriveID(src.Raw)
	if !o.SkipDuplicateCheck {
		dup, err := s.IsDuplicate(ctx, []string{id})
		if err != nil {
			return item.Item{}, err
		}
		if dup {
			return item.Item{}, domain.NewDuplicate(id)
		}
	}

	it, err := s.prepare(ctx, src, o.SkipOCR)
	if err != nil {
		return item.Item{}, err
	}
	if err := s.backend.InsertBatch(ctx, []item.Item{it}, o.SkipDuplicateCheck); err != nil {
		return item.Item{}, fmt.Errorf("insert: %w", err)
	}

	s.logger.Info("Image indexed", zap.String("id", id), zap.String("source", src.Meta.SourceURI))
	return it, nil
}

// IndexBatch ingests srcs all-or-nothing: any already indexed id aborts the
// batch before embedding starts unless overwrite is allowed.
func (s *Service) IndexBatch(ctx context.Context, srcs []Source, o BatchOptions) error {
	if len(srcs) == 0 {
		return nil
	}
	if !o.AllowOverwrite {
		ids := make([]string, len(srcs))
		for i, src := range srcs {
			ids[i] = DeriveID(src.Raw)
		}
		existing, err := s.backend.ValidateIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("validate ids: %w", err)
		}
		if len(existing) > 0 {
			return domain.NewDuplicate(existing[0])
		}
	}

	items, errs := s.prepareAll(ctx, srcs, o.SkipOCR)
	if err := errors.Join(errs...); err != nil {
		return err
	}
	if err := s.backend.InsertBatch(ctx, items, o.AllowOverwrite); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// prepareAll prepares srcs on a bounded worker pool. items[i] and errs[i]
// belong to srcs[i]; a failed item leaves a zero item and its error.
func (s *Service) prepareAll(ctx context.Context, srcs []Source, skipOCR bool) ([]item.Item, []error) {
	items := make([]item.Item, len(srcs))
	errs := make([]error, len(srcs))

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i := range srcs {
		g.Go(func() error {
			items[i], errs[i] = s.prepare(ctx, srcs[i], skipOCR)
			return nil
		})
	}
	_ = g.Wait()
	return items, errs
}

// prepare decodes src and computes every embedding. Only the vision vector
// is mandatory; tagging and OCR failures leave those fields absent.
func (s *Service) prepare(ctx context.Context, src Source, skipOCR bool) (item.Item, error) {
	img, info, err := imaging.Decode(src.Raw)
	if err != nil {
		return item.Item{}, fmt.Errorf("%w: %w", domain.ErrInvalidItem, err)
	}
	meta := src.Meta
	if meta.Width == 0 || meta.Height == 0 {
		meta.Width, meta.Height = info.Width, info.Height
	}
	if meta.Format == "" {
		meta.Format = info.Format
	}

	id := DeriveID(src.Raw)
	it, err := item.New(id, meta)
	if err != nil {
		return item.Item{}, fmt.Errorf("%w: %w", domain.ErrInvalidItem, err)
	}

	emb, err := s.enc.Vision.EmbedImage(ctx, img)
	if err != nil {
		return item.Item{}, fmt.Errorf("%w: %s: %w", domain.ErrEmbeddingFailure, id, err)
	}
	if len(emb.Embedding) == 0 {
		return item.Item{}, fmt.Errorf("%w: %s: empty vision vector", domain.ErrEmbeddingFailure, id)
	}
	it = it.WithVisionVector(emb.Embedding)

	if s.enc.Tagger != nil {
		tags, err := s.enc.Tagger.Tags(ctx, img)
		if err != nil {
			s.logger.Warn("Tagging failed, indexing without tags", zap.String("id", id), zap.Error(err))
		} else {
			it = it.WithTags(tags)
		}
	}

	if !skipOCR && s.OCREnabled() {
		it = s.withOCR(ctx, it, img)
	}
	return it, nil
}

func (s *Service) withOCR(ctx context.Context, it item.Item, img image.Image) item.Item {
	text, err := s.enc.OCR.ExtractText(ctx, img)
	if err != nil {
		s.logger.Warn("OCR failed, indexing without text", zap.String("id", it.ID()), zap.Error(err))
		return it
	}
	if text == "" {
		return it
	}
	emb, err := s.enc.Text.Embed(ctx, text)
	if err != nil {
		s.logger.Warn("OCR text embedding failed, indexing without text",
			zap.String("id", it.ID()), zap.Error(err))
		return it
	}
	return it.WithOCR(text, emb.Embedding)
}
