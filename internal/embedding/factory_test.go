package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/oncovec/internal/config"
)

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()
	e, err := NewFromConfig(ctx, config.EmbeddingConfig{
		Provider: config.ProviderOllama, URL: "http://localhost:11434/api/embeddings",
		Model: "llama3.2", Dimensions: 3072, Timeout: time.Second,
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &OllamaEmbedder{}, e)
	assert.Equal(t, 3072, e.Dimensions())

	e, err = NewFromConfig(ctx, config.EmbeddingConfig{Provider: config.ProviderMock, Dimensions: 4, CacheSize: 10}, nil)
	require.NoError(t, err)
	assert.IsType(t, &CachedEmbedder{}, e)

	_, err = NewFromConfig(ctx, config.EmbeddingConfig{Provider: "word2vec", Dimensions: 4}, nil)
	assert.Error(t, err)
}

func TestNewFromConfig_OpenAIKeyFromEnv(t *testing.T) {
	cfg := config.EmbeddingConfig{
		Provider: config.ProviderOpenAI, Model: "text-embedding-3-large",
		Dimensions: 3072, APIKeyEnv: "ONCOVEC_TEST_OPENAI_KEY",
	}
	t.Setenv("ONCOVEC_TEST_OPENAI_KEY", "")
	_, err := NewFromConfig(context.Background(), cfg, nil)
	assert.Error(t, err)

	t.Setenv("ONCOVEC_TEST_OPENAI_KEY", "sk-test")
	e, err := NewFromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIEmbedder{}, e)
}

func TestNewFromConfig_Gemini(t *testing.T) {
	cfg := config.EmbeddingConfig{
		Provider: config.ProviderGemini, Model: "gemini-embedding-001",
		Dimensions: 768, APIKeyEnv: "ONCOVEC_TEST_GEMINI_KEY",
	}
	t.Setenv("ONCOVEC_TEST_GEMINI_KEY", "")
	_, err := NewFromConfig(context.Background(), cfg, nil)
	assert.Error(t, err)

	t.Setenv("ONCOVEC_TEST_GEMINI_KEY", "test-key")
	e, err := NewFromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &GeminiEmbedder{}, e)
}

func TestNewFromConfig_DiskCache(t *testing.T) {
	e, err := NewFromConfig(context.Background(), config.EmbeddingConfig{
		Provider: config.ProviderMock, Model: "mock", Dimensions: 4, CacheDir: t.TempDir(),
	}, nil)
	require.NoError(t, err)
	require.IsType(t, &DiskCachedEmbedder{}, e)
	v, err := e.Embed(context.Background(), "neoplasm")
	require.NoError(t, err)
	assert.Len(t, v, 4)
	require.NoError(t, e.Close())
}
