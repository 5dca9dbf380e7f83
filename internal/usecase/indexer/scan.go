package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/picdex/internal/domain"
	"github.com/kailas-cloud/picdex/internal/domain/item"
	"github.com/kailas-cloud/picdex/internal/imaging"
	"github.com/kailas-cloud/picdex/internal/metrics"
)

// ScanReport summarizes a directory scan.
type ScanReport struct {
	Found    int // matching files discovered
	Indexed  int // newly inserted items
	Existing int // files whose content was already indexed
	Failed   int // files skipped because of an error
}

// InitializeIndex indexes every image under dir matching exts. Files are
// processed in sequential batches; content already present is skipped, and a
// failing file or batch is logged and counted without aborting the scan.
// Cancelling ctx stops the scan between batches.
func (s *Service) InitializeIndex(ctx context.Context, dir string, exts []string) (ScanReport, error) {
	files, err := walk(dir, exts)
	if err != nil {
		return ScanReport{}, err
	}
	report := ScanReport{Found: len(files)}
	s.logger.Info("Scan started", zap.String("dir", dir), zap.Int("files", len(files)))

	for start := 0; start < len(files); start += s.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("Scan interrupted", zap.Int("processed", start), zap.Error(err))
			return report, fmt.Errorf("scan interrupted: %w", err)
		}
		end := min(start+s.opts.BatchSize, len(files))

		began := time.Now()
		r := s.scanBatch(ctx, files[start:end])
		metrics.IndexBatchDuration.Observe(time.Since(began).Seconds())

		report.Indexed += r.Indexed
		report.Existing += r.Existing
		report.Failed += r.Failed
		s.logger.Info("Scan batch done",
			zap.Int("batch_start", start),
			zap.Int("indexed", r.Indexed),
			zap.Int("existing", r.Existing),
			zap.Int("failed", r.Failed),
		)
	}

	s.logger.Info("Scan finished",
		zap.String("dir", dir),
		zap.Int("found", report.Found),
		zap.Int("indexed", report.Indexed),
		zap.Int("existing", report.Existing),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// scanBatch reads, dedupes, prepares and inserts one batch of files.
func (s *Service) scanBatch(ctx context.Context, paths []string) ScanReport {
	var r ScanReport
	fail := func(path string, err error) {
		r.Failed++
		metrics.IndexItemsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		s.logger.Warn("Skipping file", zap.String("path", path), zap.Error(err))
	}

	srcs := make([]Source, 0, len(paths))
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		src, err := readSource(p)
		if err != nil {
			fail(p, err)
			continue
		}
		srcs = append(srcs, src)
		ids = append(ids, DeriveID(src.Raw))
	}
	if len(srcs) == 0 {
		return r
	}

	existing, err := s.backend.ValidateIDs(ctx, ids)
	if err != nil {
		for _, src := range srcs {
			fail(src.Meta.SourceURI, fmt.Errorf("validate ids: %w", err))
		}
		return r
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range existing {
		seen[id] = true
	}

	pending := make([]Source, 0, len(srcs))
	for i, src := range srcs {
		if seen[ids[i]] {
			r.Existing++
			metrics.IndexItemsTotal.WithLabelValues(metrics.OutcomeExisting).Inc()
			s.logger.Debug("Already indexed", zap.String("path", src.Meta.SourceURI), zap.String("id", ids[i]))
			continue
		}
		seen[ids[i]] = true
		pending = append(pending, src)
	}
	if len(pending) == 0 {
		return r
	}

	prepared, errs := s.prepareAll(ctx, pending, false)
	items := make([]item.Item, 0, len(prepared))
	var uris []string
	for i, err := range errs {
		if err != nil {
			fail(pending[i].Meta.SourceURI, err)
			continue
		}
		items = append(items, prepared[i])
		uris = append(uris, pending[i].Meta.SourceURI)
	}
	if len(items) == 0 {
		return r
	}

	if err := s.backend.InsertBatch(ctx, items, false); err != nil {
		var dup *domain.DuplicateError
		if errors.As(err, &dup) {
			err = fmt.Errorf("concurrent insert of %s: %w", dup.ID, err)
		}
		for _, uri := range uris {
			fail(uri, err)
		}
		return r
	}
	r.Indexed += len(items)
	metrics.IndexItemsTotal.WithLabelValues(metrics.OutcomeIndexed).Add(float64(len(items)))
	return r
}

// walk lists matching files under dir in lexical order.
func walk(dir string, exts []string) ([]string, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("scan %s: not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && imaging.MatchesExtension(path, exts) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return files, nil
}

// readSource loads a file with the metadata a scan can know about it.
func readSource(path string) (Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("read: %w", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		return Source{}, fmt.Errorf("stat: %w", err)
	}
	return Source{
		Raw: raw,
		Meta: item.Metadata{
			SourceURI: path,
			IsLocal:   true,
			CreatedAt: st.ModTime().UTC(),
			Attributes: item.Attributes{
				item.AttrFilename: item.String(filepath.Base(path)),
			},
		},
	}, nil
}
