// Package app assembles the search backend and the embedding chain shared by
// the API server and the indexer CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/picdex/internal/config"
	dbRedis "github.com/kailas-cloud/picdex/internal/db/redis"
	"github.com/kailas-cloud/picdex/internal/domain"
	"github.com/kailas-cloud/picdex/internal/domain/backend"
	"github.com/kailas-cloud/picdex/internal/metrics"
	"github.com/kailas-cloud/picdex/internal/repository/embcache"
	"github.com/kailas-cloud/picdex/internal/repository/indexed"
	"github.com/kailas-cloud/picdex/internal/repository/local"
	openaiEmb "github.com/kailas-cloud/picdex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/picdex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/picdex/internal/usecase/health"
	indexeruc "github.com/kailas-cloud/picdex/internal/usecase/indexer"
	searchuc "github.com/kailas-cloud/picdex/internal/usecase/search"
)

// Components is the wired graph below the use cases.
type Components struct {
	Backend backend.Backend
	// Store is nil for the local driver.
	Store     *dbRedis.Store
	Search    searchuc.Encoders
	Enrichers indexeruc.Enrichers
	Embedding healthuc.EmbeddingChecker
}

// Build connects to the configured backend and assembles the embedders.
// Metrics must be registered by the caller beforehand.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}

	if cfg.Database.Driver == config.DriverRedis {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, fmt.Errorf("database not ready: %w", err)
		}
		c.Store = store
	}

	visionCfg := cfg.Embedding.Vision
	vision := newEmbedder(cfg, visionCfg, logger)
	c.Embedding = vision

	// Prompt chain: OpenAI -> Cached -> Instrumented -> Instruction.
	var visionQuery domain.Embedder = c.cached(vision, cfg, visionCfg, logger)
	visionQuery = embeddinguc.NewInstrumentedEmbedder(visionQuery, visionCfg.Provider, visionCfg.Model, logger)
	if visionCfg.QueryInstruction != "" {
		visionQuery = domain.NewInstructionEmbedder(visionQuery, visionCfg.QueryInstruction)
	}
	visionImage := embeddinguc.NewInstrumentedImageEmbedder(vision, visionCfg.Provider, visionCfg.Model, logger)

	c.Search = searchuc.Encoders{Vision: visionQuery, Image: visionImage, VisionDim: visionCfg.Dimensions}
	c.Enrichers = indexeruc.Enrichers{Vision: visionImage}

	if cfg.OCR.Enabled {
		textCfg := cfg.Embedding.Text
		var text domain.Embedder = c.cached(newEmbedder(cfg, textCfg, logger), cfg, textCfg, logger)
		text = embeddinguc.NewInstrumentedEmbedder(text, textCfg.Provider, textCfg.Model, logger)
		c.Search.Text = text
		c.Enrichers.Text = text
		c.Enrichers.OCR = newAnalyzer(cfg, cfg.OCR.Provider, cfg.OCR.Model, logger)
	}
	if cfg.Tagger.Enabled {
		c.Enrichers.Tagger = newAnalyzer(cfg, cfg.Tagger.Provider, cfg.Tagger.Model, logger)
	}

	switch cfg.Database.Driver {
	case config.DriverRedis:
		repo := indexed.New(c.Store, indexed.Options{
			KeyPrefix:        cfg.Storage.KeyPrefix,
			IndexName:        cfg.Index.Name,
			VisionDim:        visionCfg.Dimensions,
			TextDim:          cfg.Embedding.Text.Dimensions,
			HNSWM:            cfg.Index.HNSWM,
			HNSWEFConstruct:  cfg.Index.HNSWEFConstruct,
			PostFilterFactor: cfg.Index.PostFilterFactor,
			MaxWindow:        cfg.Index.MaxWindow,
		}, logger)
		if err := repo.EnsureIndex(ctx); err != nil {
			c.Close()
			return nil, fmt.Errorf("ensure index: %w", err)
		}
		c.Backend = repo
	case config.DriverLocal:
		repo, err := local.New(visionImage, local.Options{
			Directory:  cfg.LocalSearch.Directory,
			Extensions: cfg.LocalSearch.Extensions,
			CacheSize:  cfg.LocalSearch.CacheSize,
		}, metrics.EmbeddingCacheTotal, logger)
		if err != nil {
			return nil, fmt.Errorf("create local backend: %w", err)
		}
		logger.Info("Local backend ready", zap.Int("files", repo.Files()))
		c.Backend = repo
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	return c, nil
}

// DBPinger returns the store for health checks, or nil for the local driver.
func (c *Components) DBPinger() healthuc.DBPinger {
	// A nil *Store wrapped in the interface would not compare equal to nil.
	if c.Store == nil {
		return nil
	}
	return c.Store
}

// Close releases the store connection.
func (c *Components) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
}

// cached puts the Redis embedding cache in front of e when a store is available.
func (c *Components) cached(
	e domain.Embedder, cfg config.Config, vc config.VectorizerConfig, logger *zap.Logger,
) domain.Embedder {
	if c.Store == nil {
		return e
	}
	return embcache.New(e, c.Store, embcache.Options{
		KeyPrefix: fmt.Sprintf("%semb_cache:%s:", cfg.Storage.KeyPrefix, vc.Model),
		TTL:       time.Duration(cfg.Embedding.CacheTTLSec) * time.Second,
	}, metrics.EmbeddingCacheTotal, logger)
}

func newEmbedder(cfg config.Config, vc config.VectorizerConfig, logger *zap.Logger) *openaiEmb.Embedder {
	prov := cfg.Embedding.Providers[vc.Provider]
	return openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     prov.APIKey,
		BaseURL:    prov.BaseURL,
		Model:      vc.Model,
		Dimensions: vc.Dimensions,
		Provider:   vc.Provider,
		Logger:     logger,
	})
}

func newAnalyzer(cfg config.Config, provider, model string, logger *zap.Logger) *openaiEmb.VisionAnalyzer {
	prov := cfg.Embedding.Providers[provider]
	return openaiEmb.NewVisionAnalyzer(&openaiEmb.VisionConfig{
		APIKey:            prov.APIKey,
		BaseURL:           prov.BaseURL,
		Model:             model,
		Provider:          provider,
		RequestsPerSecond: prov.RequestsPerSecond,
		Threshold:         cfg.Tagger.Threshold,
		MaxTags:           cfg.Tagger.MaxTags,
		Logger:            logger,
	})
}
