// Package local implements the brute-force search backend: an in-memory
// corpus plus image files discovered on disk and embedded on the fly.
package local

import (
	"context"
	"errors"
	"fmt"
	"image"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/picdex/internal/domain"
	"github.com/kailas-cloud/picdex/internal/domain/backend"
	"github.com/kailas-cloud/picdex/internal/domain/item"
	"github.com/kailas-cloud/picdex/internal/domain/search/filter"
	"github.com/kailas-cloud/picdex/internal/domain/search/query"
	"github.com/kailas-cloud/picdex/internal/domain/search/result"
	"github.com/kailas-cloud/picdex/internal/domain/search/space"
	"github.com/kailas-cloud/picdex/internal/domain/vector"
)

const (
	backendName = "local"
	cacheLabel  = "local"
)

// imageEmbedder is the consumer interface for on-the-fly embedding (ISP).
type imageEmbedder interface {
	EmbedImage(ctx context.Context, img image.Image) (domain.EmbeddingResult, error)
}

// Options configures file discovery and the embedding memo.
type Options struct {
	Directory  string
	Extensions []string
	// CacheSize bounds the on-the-fly embedding memo; 0 disables it.
	CacheSize int
}

// Repo implements backend.Backend by scoring every candidate per query.
type Repo struct {
	embedder   imageEmbedder
	files      []string
	cache      *lru.Cache[fileKey, item.Item]
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger

	mu    sync.RWMutex
	items []item.Item
	byID  map[string]int
}

var _ backend.Backend = (*Repo)(nil)

// New scans opts.Directory once and creates a local backend.
// cacheTotal may be nil.
func New(e imageEmbedder, opts Options, cacheTotal *prometheus.CounterVec, logger *zap.Logger) (*Repo, error) {
	r := &Repo{
		embedder:   e,
		files:      discover(opts.Directory, opts.Extensions, logger),
		cacheTotal: cacheTotal,
		logger:     logger,
		byID:       make(map[string]int),
	}
	if opts.CacheSize > 0 {
		c, err := lru.New[fileKey, item.Item](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create embedding cache: %w", err)
		}
		r.cache = c
	}
	return r, nil
}

// Files returns the number of discovered files.
func (r *Repo) Files() int { return len(r.files) }

// QueryByVector scores the whole corpus against q.Vector.
func (r *Repo) QueryByVector(ctx context.Context, q query.Vector) ([]result.Result, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	if vector.IsZero(q.Vector) {
		return nil, fmt.Errorf("query vector: %w", domain.ErrNumericDomain)
	}

	cands := r.candidates(ctx, q.Space, q.Filter)
	scored := make([]result.Result, 0, len(cands))
	for _, it := range cands {
		v := vectorOf(it, q.Space)
		if len(v) == 0 {
			continue
		}
		if len(v) != len(q.Vector) {
			r.logger.Debug("Skipping candidate with mismatched dimension",
				zap.String("id", it.ID()), zap.Int("dim", len(v)), zap.Int("want", len(q.Vector)))
			continue
		}
		score := 0.0
		if !vector.IsZero(v) {
			s, err := vector.Cosine(q.Vector, v)
			if err != nil {
				return nil, fmt.Errorf("score %s: %w", it.ID(), err)
			}
			score = s
		}
		scored = append(scored, result.New(it, score))
	}

	// candidates are in insertion order, so a stable sort keeps ties ordered
	slices.SortStableFunc(scored, func(a, b result.Result) int {
		switch {
		case a.Score() > b.Score():
			return -1
		case a.Score() < b.Score():
			return 1
		default:
			return 0
		}
	})

	if q.Skip >= len(scored) {
		return []result.Result{}, nil
	}
	scored = scored[q.Skip:min(len(scored), q.Skip+q.TopK)]
	if !q.WithVectors {
		for i, res := range scored {
			scored[i] = res.WithItem(res.Item().WithoutVectors())
		}
	}
	return scored, nil
}

// QueryByComposition queries with the first positive vector only; mode and
// negatives are accepted but not applied.
func (r *Repo) QueryByComposition(ctx context.Context, q query.Composition) ([]result.Result, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	if len(q.Positive) == 0 {
		return []result.Result{}, nil
	}
	return r.QueryByVector(ctx, query.Vector{
		Vector:      q.Positive[0],
		Space:       q.Space,
		TopK:        q.TopK,
		Skip:        q.Skip,
		Filter:      q.Filter,
		WithVectors: q.WithVectors,
	})
}

// Scroll is not supported: the local corpus has no sequential order on disk.
func (r *Repo) Scroll(context.Context, string, int, filter.Params) (backend.Page, error) {
	return backend.Page{}, &domain.UnsupportedError{Backend: backendName, Op: "scroll"}
}

// ValidateIDs returns the subset of ids present in the in-memory corpus.
func (r *Repo) ValidateIDs(_ context.Context, ids []string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var existing []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := r.byID[id]; ok && !seen[id] {
			seen[id] = true
			existing = append(existing, id)
		}
	}
	return existing, nil
}

// InsertBatch appends items under one lock so the whole batch becomes
// visible at once. Overwritten items keep their original position.
func (r *Repo) InsertBatch(_ context.Context, items []item.Item, overwrite bool) error {
	for _, it := range items {
		if len(it.VisionVector()) == 0 {
			return fmt.Errorf("item %s has no vision vector: %w", it.ID(), domain.ErrInvalidItem)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !overwrite {
		seen := make(map[string]bool, len(items))
		for _, it := range items {
			if _, ok := r.byID[it.ID()]; ok || seen[it.ID()] {
				return domain.NewDuplicate(it.ID())
			}
			seen[it.ID()] = true
		}
	}

	for _, it := range items {
		if idx, ok := r.byID[it.ID()]; ok {
			r.items[idx] = it
			continue
		}
		r.byID[it.ID()] = len(r.items)
		r.items = append(r.items, it)
	}
	return nil
}

// candidates returns filtered items in insertion order: the in-memory corpus
// first, then discovered files not already indexed.
func (r *Repo) candidates(ctx context.Context, sp space.Space, filters filter.Params) []item.Item {
	r.mu.RLock()
	out := make([]item.Item, 0, len(r.items)+len(r.files))
	for _, it := range r.items {
		if filter.Passes(it, filters) {
			out = append(out, it)
		}
	}
	indexed := make(map[string]bool, len(r.byID))
	for id := range r.byID {
		indexed[id] = true
	}
	r.mu.RUnlock()

	// files only carry vision vectors
	if sp != space.Vision {
		return out
	}
	for _, path := range r.files {
		if ctx.Err() != nil {
			break
		}
		it, ok := r.fileItem(ctx, path, filters, indexed)
		if !ok {
			continue
		}
		out = append(out, it)
	}
	return out
}

// fileItem loads and embeds one discovered file, memoized by path, mtime and
// size. Files whose content is already indexed are skipped.
func (r *Repo) fileItem(
	ctx context.Context, path string, filters filter.Params, indexed map[string]bool,
) (item.Item, bool) {
	key, err := statKey(path)
	if err != nil {
		r.logger.Debug("Skipping vanished file", zap.String("path", path), zap.Error(err))
		return item.Item{}, false
	}

	if r.cache != nil {
		if it, ok := r.cache.Get(key); ok {
			r.incCache("hit")
			return it, !indexed[it.ID()] && filter.Passes(it, filters)
		}
		r.incCache("miss")
	}

	it, raw, err := loadFile(key)
	if err != nil {
		r.logger.Debug("Skipping unreadable file", zap.String("path", path), zap.Error(err))
		return item.Item{}, false
	}
	if indexed[it.ID()] || !filter.Passes(it, filters) {
		return item.Item{}, false
	}

	vec, err := embedFile(ctx, r.embedder, raw)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Warn("On-the-fly embedding failed", zap.String("path", path), zap.Error(err))
		}
		return item.Item{}, false
	}
	it = it.WithVisionVector(vec)
	if r.cache != nil {
		r.cache.Add(key, it)
	}
	return it, true
}

func (r *Repo) incCache(res string) {
	if r.cacheTotal != nil {
		r.cacheTotal.WithLabelValues(cacheLabel, res).Inc()
	}
}

func vectorOf(it item.Item, sp space.Space) []float32 {
	if sp == space.Text {
		return it.TextVector()
	}
	return it.VisionVector()
}
