// Package config provides configuration loading and structs for the oncovec server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Domain    DomainConfig    `yaml:"domain"`
	Query     QueryConfig     `yaml:"query"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Vector index implementations.
const (
	IndexFlat  = "flat"
	IndexFAISS = "faiss"
)

// Blob backends.
const (
	BlobLocal = "local"
	BlobS3    = "s3"
)

// StorageConfig selects the document/mapping store and where the index snapshot lives.
type StorageConfig struct {
	Driver            string     `yaml:"driver"`
	DatabasePath      string     `yaml:"database_path"`
	MongoURI          string     `yaml:"mongo_uri"`
	MongoDatabase     string     `yaml:"mongo_database"`
	MongoTransactions bool       `yaml:"mongo_transactions"`
	IndexType         string     `yaml:"index_type"`
	IndexBlob         string     `yaml:"index_blob"`
	Blob              BlobConfig `yaml:"blob"`
}

// BlobConfig configures the blob backend for the serialized vector index.
type BlobConfig struct {
	Backend      string `yaml:"backend"`
	Dir          string `yaml:"dir"`
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// Embedding providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"`
	URL        string        `yaml:"url"`
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	CacheSize  int           `yaml:"cache_size"`
	CacheDir   string        `yaml:"cache_dir"` // on-disk cache; empty disables it
	APIKeyEnv  string        `yaml:"api_key_env"`
}

// DomainConfig holds the keyword set of the domain filter.
type DomainConfig struct {
	Keywords []string `yaml:"keywords"`
}

// QueryConfig holds query defaults.
type QueryConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k"`
	// MinResults is the backfill target after domain filtering; 0 means top_k.
	MinResults int `yaml:"min_results"`
}

// IngestConfig holds ingestion settings.
type IngestConfig struct {
	SkipDuplicates *bool `yaml:"skip_duplicates"`
}

// SkipDuplicatesOrDefault returns whether duplicate documents are skipped; defaults to true.
func (i *IngestConfig) SkipDuplicatesOrDefault() bool {
	if i.SkipDuplicates != nil {
		return *i.SkipDuplicates
	}
	return true
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	applyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.Blob.Dir = expandPath(cfg.Storage.Blob.Dir, configDir)
	cfg.Embedding.CacheDir = expandPath(cfg.Embedding.CacheDir, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with every default applied, for running without a config file.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
	case DriverMongo:
		if c.Storage.MongoURI == "" {
			return fmt.Errorf("storage.mongo_uri is required for driver %q", DriverMongo)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Storage.IndexType {
	case IndexFlat, IndexFAISS:
	default:
		return fmt.Errorf("unknown storage.index_type %q", c.Storage.IndexType)
	}
	switch c.Storage.Blob.Backend {
	case BlobLocal:
	case BlobS3:
		if c.Storage.Blob.Bucket == "" {
			return fmt.Errorf("storage.blob.bucket is required for backend %q", BlobS3)
		}
	default:
		return fmt.Errorf("unknown blob backend %q", c.Storage.Blob.Backend)
	}
	switch c.Embedding.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderGemini, ProviderMock:
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnv lets secrets come from the environment instead of the config file.
func applyEnv(cfg *Config) {
	if uri := os.Getenv("ONCOVEC_MONGO_URI"); uri != "" {
		cfg.Storage.MongoURI = uri
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
