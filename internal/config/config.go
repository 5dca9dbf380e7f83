package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the picdex configuration shared by the API server and the indexer CLI.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	OCR         OCRConfig         `yaml:"ocr"`
	Tagger      TaggerConfig      `yaml:"tagger"`
	LocalSearch LocalSearchConfig `yaml:"local_search"`
	Auth        AuthConfig        `yaml:"auth"`
	Index       IndexConfig       `yaml:"index"`
	Storage     StorageConfig     `yaml:"storage"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// Search backend drivers.
const (
	DriverRedis = "redis"
	DriverLocal = "local"
)

// Blob storage methods.
const (
	BlobLocal = "local"
	BlobS3    = "s3"
)

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxUploadBytes  int64 `yaml:"max_upload_bytes"`
}

// DatabaseConfig selects the search backend and its connection.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, local (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds HNSW, paging and bulk-scan settings.
type IndexConfig struct {
	Name             string `yaml:"name"`
	HNSWM            int    `yaml:"hnsw_m"`
	HNSWEFConstruct  int    `yaml:"hnsw_ef_construction"`
	MaxScrollSize    int    `yaml:"max_scroll_size"`
	ScanBatchSize    int    `yaml:"scan_batch_size"`
	Workers          int    `yaml:"workers"`
	PostFilterFactor int    `yaml:"post_filter_factor"` // KNN window multiplier when text predicates are post-filtered
	MaxWindow        int    `yaml:"max_window"`
}

// StorageConfig holds key layout and blob storage settings.
type StorageConfig struct {
	KeyPrefix string     `yaml:"key_prefix"`
	Blob      BlobConfig `yaml:"blob"`
}

// BlobConfig describes where uploaded originals are kept.
type BlobConfig struct {
	Method        string `yaml:"method"` // local, s3 (default: local)
	Directory     string `yaml:"directory"`
	Bucket        string `yaml:"bucket"`
	Prefix        string `yaml:"prefix"`
	Region        string `yaml:"region"`
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	PresignTTLSec int    `yaml:"presign_ttl_sec"`
}

// LocalSearchConfig configures the brute-force backend.
type LocalSearchConfig struct {
	Directory  string   `yaml:"directory"`
	Extensions []string `yaml:"extensions"`
	CacheSize  int      `yaml:"cache_size"` // on-the-fly embedding memo; 0 disables
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Providers   map[string]ProviderConfig `yaml:"providers"`
	Vision      VectorizerConfig          `yaml:"vision"`
	Text        VectorizerConfig          `yaml:"text"`
	CacheTTLSec int                       `yaml:"cache_ttl_sec"`
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Provider         string `yaml:"provider"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
}

// OCRConfig enables text extraction and the text search basis.
type OCRConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// TaggerConfig enables image labelling.
type TaggerConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Provider  string  `yaml:"provider"`
	Model     string  `yaml:"model"`
	Threshold float64 `yaml:"threshold"`
	MaxTags   int     `yaml:"max_tags"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		c.HTTP.MaxUploadBytes = 20 << 20
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverRedis
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Index.Name == "" {
		c.Index.Name = "picdex-items"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Index.MaxScrollSize <= 0 {
		c.Index.MaxScrollSize = 100
	}
	if c.Index.ScanBatchSize <= 0 {
		c.Index.ScanBatchSize = 10
	}
	if c.Index.Workers <= 0 {
		c.Index.Workers = 4
	}
	if c.Index.PostFilterFactor <= 0 {
		c.Index.PostFilterFactor = 4
	}
	if c.Index.MaxWindow <= 0 {
		c.Index.MaxWindow = 1000
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "picdex:"
	}
	if c.Storage.Blob.Method == "" {
		c.Storage.Blob.Method = BlobLocal
	}
	if c.Storage.Blob.PresignTTLSec <= 0 {
		c.Storage.Blob.PresignTTLSec = 3600
	}
	if len(c.LocalSearch.Extensions) == 0 {
		c.LocalSearch.Extensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}
	}
	if c.Tagger.Threshold <= 0 {
		c.Tagger.Threshold = 0.5
	}
	if c.Tagger.MaxTags <= 0 {
		c.Tagger.MaxTags = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	case DriverLocal:
		if c.LocalSearch.Directory == "" {
			return fmt.Errorf("local_search.directory is required for the local driver")
		}
		if c.LocalSearch.CacheSize < 0 {
			return fmt.Errorf("local_search.cache_size must be non-negative")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverRedis, DriverLocal, c.Database.Driver)
	}
	if err := c.validateVectorizer("vision", c.Embedding.Vision); err != nil {
		return err
	}
	if c.OCR.Enabled {
		if err := c.validateVectorizer("text", c.Embedding.Text); err != nil {
			return fmt.Errorf("ocr.enabled requires a text vectorizer: %w", err)
		}
		if _, ok := c.Embedding.Providers[c.OCR.Provider]; !ok {
			return fmt.Errorf("ocr.provider %q is not a configured provider", c.OCR.Provider)
		}
	}
	if c.Tagger.Enabled {
		if _, ok := c.Embedding.Providers[c.Tagger.Provider]; !ok {
			return fmt.Errorf("tagger.provider %q is not a configured provider", c.Tagger.Provider)
		}
	}
	switch c.Storage.Blob.Method {
	case BlobLocal:
	case BlobS3:
		if c.Storage.Blob.Bucket == "" {
			return fmt.Errorf("storage.blob.bucket is required for s3")
		}
	default:
		return fmt.Errorf("storage.blob.method must be %q or %q, got %q", BlobLocal, BlobS3, c.Storage.Blob.Method)
	}
	return nil
}

func (c *Config) validateVectorizer(name string, v VectorizerConfig) error {
	if v.Model == "" {
		return fmt.Errorf("embedding.%s.model is required", name)
	}
	if v.Dimensions <= 0 {
		return fmt.Errorf("embedding.%s.dimensions must be positive", name)
	}
	if _, ok := c.Embedding.Providers[v.Provider]; !ok {
		return fmt.Errorf("embedding.%s.provider %q is not a configured provider", name, v.Provider)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
