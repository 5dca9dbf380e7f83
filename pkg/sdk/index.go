package picdex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/picdex/internal/domain/item"
	indexeruc "github.com/kailas-cloud/picdex/internal/usecase/indexer"
)

// IndexService adds images to the index. Identical bytes always map to the
// same id, so content is indexed at most once.
type IndexService struct {
	svc indexUseCase
	obs *observer
}

// AddOptions tunes a single insert.
type AddOptions struct {
	// Overwrite replaces an existing item instead of failing with ErrDuplicate.
	Overwrite bool
	SkipOCR   bool
}

// ID returns the id raw would be indexed under.
func (s *IndexService) ID(raw []byte) string { return item.DeriveID(raw) }

// Exists reports whether raw is already indexed.
func (s *IndexService) Exists(ctx context.Context, raw []byte) (ok bool, err error) {
	start := time.Now()
	defer func() { s.obs.observe("exists", start, err) }()

	ok, err = s.svc.IsDuplicate(ctx, []string{item.DeriveID(raw)})
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return ok, nil
}

// Add indexes one image. Already indexed content fails with a *DuplicateError
// unless opts.Overwrite is set.
func (s *IndexService) Add(ctx context.Context, raw []byte, meta ImageMeta, opts ...AddOptions) (it Item, err error) {
	start := time.Now()
	defer func() { s.obs.observe("add", start, err) }()

	src, err := toSource(raw, meta)
	if err != nil {
		return Item{}, invalidQuery(err)
	}
	var o AddOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	stored, err := s.svc.IndexOne(ctx, src, indexeruc.IndexOptions{
		SkipDuplicateCheck: o.Overwrite,
		SkipOCR:            o.SkipOCR,
	})
	if err != nil {
		return Item{}, fmt.Errorf("add: %w", err)
	}
	return fromItem(stored), nil
}

// AddBatch indexes images all-or-nothing: one duplicate or failing image
// rejects the whole batch.
func (s *IndexService) AddBatch(ctx context.Context, images []Image, opts ...AddOptions) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("add_batch", start, err) }()

	srcs := make([]indexeruc.Source, len(images))
	for i, img := range images {
		if srcs[i], err = toSource(img.Raw, img.Meta); err != nil {
			return invalidQuery(fmt.Errorf("image %d: %w", i, err))
		}
	}
	var o AddOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if err = s.svc.IndexBatch(ctx, srcs, indexeruc.BatchOptions{
		SkipOCR:        o.SkipOCR,
		AllowOverwrite: o.Overwrite,
	}); err != nil {
		return fmt.Errorf("add batch: %w", err)
	}
	return nil
}

// Scan indexes every image under dir whose extension is in exts, skipping
// content that is already indexed. Per-file failures are counted, not returned.
func (s *IndexService) Scan(ctx context.Context, dir string, exts ...string) (report ScanReport, err error) {
	start := time.Now()
	defer func() { s.obs.observe("scan", start, err) }()

	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	r, err := s.svc.InitializeIndex(ctx, dir, exts)
	report = ScanReport{Found: r.Found, Indexed: r.Indexed, Existing: r.Existing, Failed: r.Failed}
	if err != nil {
		return report, fmt.Errorf("scan: %w", err)
	}
	return report, nil
}
