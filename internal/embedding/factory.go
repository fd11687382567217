package embedding

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/oncovec/internal/config"
)

// NewFromConfig builds the configured provider. A positive cfg.CacheSize adds an
// in-memory LRU; a non-empty cfg.CacheDir adds a disk cache beneath it.
func NewFromConfig(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []Option{
		WithTimeout(cfg.Timeout),
		WithMaxRetries(max(cfg.MaxRetries, 0)),
		WithLogger(logger),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}

	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case config.ProviderOllama, "":
		e, err = NewOllamaEmbedder(cfg.URL, cfg.Model, cfg.Dimensions, opts...)
	case config.ProviderOpenAI:
		key, kerr := apiKey(cfg)
		if kerr != nil {
			return nil, kerr
		}
		e, err = NewOpenAIEmbedder(key, cfg.Model, cfg.Dimensions, opts...)
	case config.ProviderGemini:
		key, kerr := apiKey(cfg)
		if kerr != nil {
			return nil, kerr
		}
		e, err = NewGeminiEmbedder(ctx, key, cfg.Model, cfg.Dimensions, opts...)
	case config.ProviderMock:
		e = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("embedding provider ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("dimensions", e.Dimensions()),
		zap.Int("cache_size", cfg.CacheSize),
		zap.String("cache_dir", cfg.CacheDir),
	)
	if cfg.CacheDir != "" {
		namespace := fmt.Sprintf("%s/%s/%d", cfg.Provider, cfg.Model, cfg.Dimensions)
		cache, err := OpenDiskCache(cfg.CacheDir, namespace, logger)
		if err != nil {
			_ = e.Close()
			return nil, err
		}
		e = NewDiskCachedEmbedder(e, cache, logger)
	}
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(e, cfg.CacheSize), nil
	}
	return e, nil
}

func apiKey(cfg config.EmbeddingConfig) (string, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	return key, nil
}
