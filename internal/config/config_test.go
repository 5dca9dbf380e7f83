package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Driver: DriverRedis,
			Addrs:  []string{"localhost:6379"},
		},
		Embedding: EmbeddingConfig{
			Providers: map[string]ProviderConfig{
				"openai": {APIKey: "test-key"},
			},
			Vision: VectorizerConfig{Provider: "openai", Model: "clip", Dimensions: 512},
			Text:   VectorizerConfig{Provider: "openai", Model: "bert", Dimensions: 384},
		},
		Storage: StorageConfig{Blob: BlobConfig{Method: BlobLocal}},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"missing redis addrs", func(c *Config) { c.Database.Addrs = nil }, "database.addrs"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "qdrant" }, "database.driver"},
		{"local without directory", func(c *Config) { c.Database.Driver = DriverLocal }, "local_search.directory"},
		{"vision without model", func(c *Config) { c.Embedding.Vision.Model = "" }, "embedding.vision.model"},
		{"vision without dims", func(c *Config) { c.Embedding.Vision.Dimensions = 0 }, "embedding.vision.dimensions"},
		{"vision unknown provider", func(c *Config) { c.Embedding.Vision.Provider = "nope" }, "embedding.vision.provider"},
		{"ocr without text vectorizer", func(c *Config) {
			c.OCR = OCRConfig{Enabled: true, Provider: "openai"}
			c.Embedding.Text = VectorizerConfig{}
		}, "ocr.enabled requires a text vectorizer"},
		{"ocr unknown provider", func(c *Config) {
			c.OCR = OCRConfig{Enabled: true, Provider: "nope"}
		}, "ocr.provider"},
		{"tagger unknown provider", func(c *Config) {
			c.Tagger = TaggerConfig{Enabled: true, Provider: "nope"}
		}, "tagger.provider"},
		{"s3 without bucket", func(c *Config) { c.Storage.Blob.Method = BlobS3 }, "storage.blob.bucket"},
		{"unknown blob method", func(c *Config) { c.Storage.Blob.Method = "gcs" }, "storage.blob.method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_LocalDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database = DatabaseConfig{Driver: DriverLocal}
	cfg.LocalSearch.Directory = "/images"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 30 {
		t.Errorf("expected WriteTimeoutSec=30, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.Driver != DriverRedis {
		t.Errorf("expected Driver=redis, got %q", cfg.Database.Driver)
	}
	if cfg.Index.ScanBatchSize != 10 {
		t.Errorf("expected ScanBatchSize=10, got %d", cfg.Index.ScanBatchSize)
	}
	if cfg.Index.HNSWM != 16 {
		t.Errorf("expected HNSWM=16, got %d", cfg.Index.HNSWM)
	}
	if cfg.Index.Name != "picdex-items" {
		t.Errorf("expected Name=picdex-items, got %q", cfg.Index.Name)
	}
	if cfg.Storage.KeyPrefix != "picdex:" {
		t.Errorf("expected KeyPrefix='picdex:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Storage.Blob.Method != BlobLocal {
		t.Errorf("expected blob method local, got %q", cfg.Storage.Blob.Method)
	}
	if len(cfg.LocalSearch.Extensions) == 0 {
		t.Error("expected default extensions")
	}
	if cfg.LocalSearch.CacheSize != 0 {
		t.Errorf("cache size should stay disabled by default, got %d", cfg.LocalSearch.CacheSize)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{Driver: DriverLocal, ReadinessTimeout: 15},
		Index:    IndexConfig{HNSWM: 32, ScanBatchSize: 25, Workers: 8},
		Storage:  StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.Driver != DriverLocal {
		t.Errorf("expected Driver=local, got %q", cfg.Database.Driver)
	}
	if cfg.Index.ScanBatchSize != 25 || cfg.Index.Workers != 8 {
		t.Errorf("index overrides lost: %+v", cfg.Index)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("PICDEX_TEST_KEY", "secret")
	got := string(expandEnvVars([]byte("a: ${PICDEX_TEST_KEY}\nb: ${PICDEX_UNSET_VAR:-fallback}\nc: ${PICDEX_UNSET_VAR}")))
	want := "a: secret\nb: fallback\nc: "
	if got != want {
		t.Errorf("expandEnvVars() = %q, want %q", got, want)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := `
http:
  port: ${PICDEX_TEST_PORT:-9090}
database:
  driver: local
local_search:
  directory: /srv/images
embedding:
  providers:
    openai:
      api_key: k
  vision:
    provider: openai
    model: clip
    dimensions: 512
`
	if err := os.WriteFile(filepath.Join(dir, "config", "unittest.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("unittest")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.HTTP.Port)
	}
	if cfg.Database.Driver != DriverLocal {
		t.Errorf("Driver = %q", cfg.Database.Driver)
	}
	if cfg.Index.ScanBatchSize != 10 {
		t.Errorf("defaults not applied: %+v", cfg.Index)
	}
}
