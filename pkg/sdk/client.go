package picdex

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/picdex/internal/db/redis"
	"github.com/kailas-cloud/picdex/internal/domain"
	"github.com/kailas-cloud/picdex/internal/domain/backend"
	"github.com/kailas-cloud/picdex/internal/domain/item"
	"github.com/kailas-cloud/picdex/internal/domain/search/filter"
	"github.com/kailas-cloud/picdex/internal/domain/search/request"
	"github.com/kailas-cloud/picdex/internal/domain/search/result"
	"github.com/kailas-cloud/picdex/internal/repository/indexed"
	"github.com/kailas-cloud/picdex/internal/repository/local"
	healthuc "github.com/kailas-cloud/picdex/internal/usecase/health"
	indexeruc "github.com/kailas-cloud/picdex/internal/usecase/indexer"
	searchuc "github.com/kailas-cloud/picdex/internal/usecase/search"
)

const (
	driverRedis = "redis"
	driverLocal = "local"

	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "picdex:"
	defaultHNSWM            = 16
	defaultHNSWEFConstruct  = 200
	defaultPostFilterFactor = 4
)

// Internal interfaces for substitution in tests.
type searchUseCase interface {
	Text(ctx context.Context, req request.Text) ([]result.Result, error)
	Image(ctx context.Context, img image.Image, filters filter.Params, paging request.Paging) ([]result.Result, error)
	Random(ctx context.Context, seed uint64, filters filter.Params, paging request.Paging) ([]result.Result, error)
	Advanced(ctx context.Context, req request.Composite) ([]result.Result, error)
	Combined(ctx context.Context, req request.Combined) ([]result.Result, error)
	Scroll(ctx context.Context, cursor string, count int, filters filter.Params) (backend.Page, error)
}

type indexUseCase interface {
	IsDuplicate(ctx context.Context, ids []string) (bool, error)
	IndexOne(ctx context.Context, src indexeruc.Source, o indexeruc.IndexOptions) (item.Item, error)
	IndexBatch(ctx context.Context, srcs []indexeruc.Source, o indexeruc.BatchOptions) error
	InitializeIndex(ctx context.Context, dir string, exts []string) (indexeruc.ScanReport, error)
}

// Client is the picdex SDK entry point.
type Client struct {
	store     *dbRedis.Store
	searchSvc searchUseCase
	indexSvc  indexUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a picdex Client. For Redis the provided context bounds the
// readiness check and index creation.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		keyPrefix:       defaultKeyPrefix,
		hnswM:           defaultHNSWM,
		hnswEFConstruct: defaultHNSWEFConstruct,
		workers:         indexeruc.DefaultWorkers,
		batchSize:       indexeruc.DefaultBatchSize,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.vision == nil || cfg.visionDim <= 0 {
		return nil, errors.New("picdex: vision model required (use WithVision)")
	}
	if cfg.driver == "" {
		return nil, errors.New("picdex: backend required (use WithRedis or WithLocal)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	vision := &embedderAdapter{text: cfg.vision, image: cfg.vision}
	var store *dbRedis.Store
	var b backend.Backend

	switch cfg.driver {
	case driverRedis:
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, errors.New("picdex: database address required")
		}
		store, err = dbRedis.NewStore(dbRedis.Config{Addrs: cfg.addrs, Password: cfg.password})
		if err != nil {
			return nil, fmt.Errorf("picdex: create redis store: %w", err)
		}
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("picdex: database not ready: %w", err)
		}
		repo := indexed.New(store, indexed.Options{
			KeyPrefix:        cfg.keyPrefix,
			IndexName:        cfg.keyPrefix + "items",
			VisionDim:        cfg.visionDim,
			TextDim:          cfg.textDim,
			HNSWM:            cfg.hnswM,
			HNSWEFConstruct:  cfg.hnswEFConstruct,
			PostFilterFactor: defaultPostFilterFactor,
		}, zap.NewNop())
		if err := repo.EnsureIndex(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("picdex: ensure index: %w", err)
		}
		b = repo
	case driverLocal:
		exts := cfg.localExts
		if len(exts) == 0 {
			exts = DefaultExtensions
		}
		repo, err := local.New(vision, local.Options{
			Directory:  cfg.localDir,
			Extensions: exts,
			CacheSize:  cfg.localCache,
		}, nil, zap.NewNop())
		if err != nil {
			return nil, fmt.Errorf("picdex: create local backend: %w", err)
		}
		b = repo
	default:
		return nil, fmt.Errorf("picdex: unknown driver %q", cfg.driver)
	}

	c := wireClient(b, cfg, vision, obs)
	c.store = store
	var pinger healthuc.DBPinger
	if store != nil {
		pinger = store
	}
	c.healthSvc = healthuc.New(pinger, nil)
	return c, nil
}

func wireClient(b backend.Backend, cfg *clientConfig, vision *embedderAdapter, obs *observer) *Client {
	enc := searchuc.Encoders{Vision: vision, Image: vision, VisionDim: cfg.visionDim}
	enrich := indexeruc.Enrichers{Vision: vision}
	if cfg.ocr != nil && cfg.text != nil {
		text := &embedderAdapter{text: cfg.text}
		enc.Text = text
		enrich.Text = text
		enrich.OCR = cfg.ocr
	}
	if cfg.tagger != nil {
		enrich.Tagger = cfg.tagger
	}

	// The SDK logs through slog; the engine's zap logging stays silent.
	nop := zap.NewNop()
	return &Client{
		searchSvc: searchuc.New(b, enc, nop),
		indexSvc: indexeruc.New(b, enrich, indexeruc.Options{
			BatchSize: cfg.batchSize,
			Workers:   cfg.workers,
		}, nop),
		healthSvc: healthuc.New(nil, nil),
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity. It is a no-op for the local backend.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if c.store == nil {
		return nil
	}
	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search returns the search service.
func (c *Client) Search() *SearchService {
	return &SearchService{svc: c.searchSvc, obs: c.obs}
}

// Index returns the indexing service.
func (c *Client) Index() *IndexService {
	return &IndexService{svc: c.indexSvc, obs: c.obs}
}

func invalidQuery(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
}
