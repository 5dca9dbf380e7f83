package indexed

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/picdex/internal/db"
	"github.com/kailas-cloud/picdex/internal/domain"
	"github.com/kailas-cloud/picdex/internal/domain/backend"
	"github.com/kailas-cloud/picdex/internal/domain/item"
	"github.com/kailas-cloud/picdex/internal/domain/search/filter"
)

const backendName = "indexed"

// store is the consumer interface for the indexed backend (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	ExistsMulti(ctx context.Context, keys []string) ([]bool, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	HSetAtomic(ctx context.Context, items []db.HashSetItem, overwrite bool) error
}

// Options configures key layout, index shape and post-filter windows.
type Options struct {
	KeyPrefix       string
	IndexName       string
	VisionDim       int
	TextDim         int
	HNSWM           int
	HNSWEFConstruct int
	// PostFilterFactor enlarges the KNN window when substring clauses are
	// evaluated after retrieval.
	PostFilterFactor int
	// MaxWindow caps any single KNN or scroll fetch.
	MaxWindow int
}

func (o Options) itemPrefix() string { return o.KeyPrefix + "item:" }
func (o Options) seqKey() string     { return o.KeyPrefix + "seq" }

// Repo implements backend.Backend over Redis FT indexes.
type Repo struct {
	store  store
	opts   Options
	logger *zap.Logger
}

var _ backend.Backend = (*Repo)(nil)

// New creates an indexed backend.
func New(s store, opts Options, logger *zap.Logger) *Repo {
	if opts.PostFilterFactor < 1 {
		opts.PostFilterFactor = 1
	}
	if opts.MaxWindow <= 0 {
		opts.MaxWindow = 1000
	}
	return &Repo{store: s, opts: opts, logger: logger}
}

// EnsureIndex creates the FT index when it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.opts.IndexName)
	if err != nil {
		return unavailable("index info", err)
	}
	if exists {
		return nil
	}
	def, err := buildIndex(r.opts)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return unavailable("create index", err)
	}
	r.logger.Info("Created search index",
		zap.String("index", r.opts.IndexName),
		zap.Int("vision_dim", r.opts.VisionDim),
		zap.Int("text_dim", r.opts.TextDim),
		zap.Stringer("definition", def),
	)
	return nil
}

// Count returns the number of indexed items.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.opts.IndexName, "*")
	if err != nil {
		return 0, unavailable("count", err)
	}
	return n, nil
}

// ValidateIDs returns the subset of ids already stored, in request order.
func (r *Repo) ValidateIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.itemKey(id)
	}
	found, err := r.store.ExistsMulti(ctx, keys)
	if err != nil {
		return nil, unavailable("validate ids", err)
	}

	var existing []string
	seen := make(map[string]bool, len(ids))
	for i, ok := range found {
		if ok && !seen[ids[i]] {
			seen[ids[i]] = true
			existing = append(existing, ids[i])
		}
	}
	return existing, nil
}

// InsertBatch writes all items in one atomic script call. Sequence numbers
// are reserved up front; a rejected batch leaves a gap, never a partial write.
func (r *Repo) InsertBatch(ctx context.Context, items []item.Item, overwrite bool) error {
	if len(items) == 0 {
		return nil
	}
	for _, it := range items {
		if len(it.VisionVector()) == 0 {
			return fmt.Errorf("item %s has no vision vector: %w", it.ID(), domain.ErrInvalidItem)
		}
	}

	last, err := r.store.IncrBy(ctx, r.opts.seqKey(), int64(len(items)))
	if err != nil {
		return unavailable("reserve seq", err)
	}
	first := last - int64(len(items)) + 1

	batch := make([]db.HashSetItem, len(items))
	for i, it := range items {
		fields, err := buildHashFields(it, first+int64(i))
		if err != nil {
			return fmt.Errorf("encode item %s: %w", it.ID(), err)
		}
		batch[i] = db.HashSetItem{Key: r.itemKey(it.ID()), Fields: fields}
	}

	if err := r.store.HSetAtomic(ctx, batch, overwrite); err != nil {
		var kerr *db.KeyExistsError
		if errors.As(err, &kerr) {
			return domain.NewDuplicate(r.idFromKey(kerr.Key))
		}
		return unavailable("insert batch", err)
	}
	return nil
}

// Scroll pages through items newest first. The cursor is the seq of the last
// returned item; text clauses are applied while paging, so a page is only
// short when the corpus is exhausted.
func (r *Repo) Scroll(
	ctx context.Context, cursor string, count int, filters filter.Params,
) (backend.Page, error) {
	if count <= 0 {
		return backend.Page{}, fmt.Errorf("count must be positive: %w", domain.ErrInvalidQuery)
	}
	var upper *float64
	if cursor != "" {
		seq, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return backend.Page{}, fmt.Errorf("invalid cursor %q: %w", cursor, domain.ErrInvalidQuery)
		}
		f := float64(seq)
		upper = &f
	}

	batchSize := count
	if postFiltered(filters) {
		batchSize = min(count*r.opts.PostFilterFactor, r.opts.MaxWindow)
	}
	numeric := numericRanges(filters)

	var page backend.Page
	for {
		ranges := numeric
		if upper != nil {
			ranges = append(slices.Clone(numeric), db.NumericRange{Field: fieldSeq, Max: upper, MaxExclusive: true})
		}
		sr, err := r.store.SearchList(ctx, &db.ListQuery{
			IndexName:    r.opts.IndexName,
			Ranges:       ranges,
			Tags:         tagInfix(filters),
			SortBy:       fieldSeq,
			Desc:         true,
			Limit:        batchSize + 1,
			ReturnFields: metaFields,
		})
		if err != nil {
			return backend.Page{}, unavailable("scroll", err)
		}

		entries := entriesOf(sr)
		more := len(entries) > batchSize
		if more {
			entries = entries[:batchSize]
		}

		for i, e := range entries {
			it, seq := parseHashFields(r.idFromKey(e.Key), e.Fields)
			f := float64(seq)
			upper = &f
			if !filter.Passes(it, filters) {
				continue
			}
			page.Items = append(page.Items, it.WithoutVectors())
			if len(page.Items) == count {
				if more || i < len(entries)-1 {
					page.NextCursor = strconv.FormatInt(seq, 10)
				}
				return page, nil
			}
		}
		if !more {
			return page, nil
		}
	}
}

func (r *Repo) itemKey(id string) string { return r.opts.itemPrefix() + id }

func (r *Repo) idFromKey(key string) string {
	return strings.TrimPrefix(key, r.opts.itemPrefix())
}

func entriesOf(sr *db.SearchResult) []db.SearchEntry {
	if sr == nil {
		return nil
	}
	return sr.Entries
}

// numericRanges pushes the numeric filter clauses down to the index.
func numericRanges(p filter.Params) []db.NumericRange {
	var out []db.NumericRange
	if w, ok := p.MinWidth(); ok {
		f := float64(w)
		out = append(out, db.NumericRange{Field: fieldWidth, Min: &f})
	}
	if h, ok := p.MinHeight(); ok {
		f := float64(h)
		out = append(out, db.NumericRange{Field: fieldHeight, Min: &f})
	}
	lo, hasLo := p.MinRatio()
	hi, hasHi := p.MaxRatio()
	if hasLo || hasHi {
		rng := db.NumericRange{Field: fieldAspectRatio}
		if hasLo {
			rng.Min = &lo
		}
		if hasHi {
			rng.Max = &hi
		}
		out = append(out, rng)
	}
	return out
}

// tagInfix pushes the tag clause down when the index can answer it: terms
// shorter than minInfixLen or containing the separator stay local.
func tagInfix(p filter.Params) []db.TagInfix {
	tag, ok := p.TagText()
	if !ok || utf8.RuneCountInString(tag) < minInfixLen || strings.Contains(tag, tagSeparator) {
		return nil
	}
	return []db.TagInfix{{Field: fieldTagList, Text: tag}}
}

// postFiltered reports whether some clause is only checked after retrieval.
func postFiltered(p filter.Params) bool {
	if _, ok := p.OCRText(); ok {
		return true
	}
	_, ok := p.TagText()
	return ok && tagInfix(p) == nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrBackendUnavailable, err)
}
