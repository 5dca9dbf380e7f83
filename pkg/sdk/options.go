package picdex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultExtensions are the file extensions scanned when none are given.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "redis" or "local"
	addrs    []string
	password string

	localDir   string
	localExts  []string
	localCache int

	keyPrefix string
	indexName string

	vision    VisionEmbedder
	visionDim int
	ocr       TextExtractor
	text      Embedder
	textDim   int
	tagger    Tagger

	hnswM           int
	hnswEFConstruct int
	workers         int
	batchSize       int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis stores the index in a Redis 8 (or Redis Stack) instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithLocal searches the images under dir by brute force. Extensions default
// to the common raster formats. Indexed items live in memory only.
func WithLocal(dir string, exts ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverLocal
		c.localDir = dir
		c.localExts = exts
	})
}

// WithLocalCache memoizes on-the-fly embeddings of up to size files.
// Zero (default) disables the memo.
func WithLocalCache(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.localCache = size
	})
}

// WithKeyPrefix namespaces Redis keys and the index name.
// Default: "picdex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithVision sets the vision model. Required.
func WithVision(e VisionEmbedder, dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vision = e
		c.visionDim = dim
	})
}

// WithOCR enables text extraction at index time and the text search basis.
func WithOCR(extractor TextExtractor, text Embedder, dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.ocr = extractor
		c.text = text
		c.textDim = dim
	})
}

// WithTagger labels images at index time.
func WithTagger(t Tagger) Option {
	return optionFunc(func(c *clientConfig) {
		c.tagger = t
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithWorkers bounds how many images of a batch are embedded in parallel.
// Default: 4.
func WithWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
