// Package embedding turns text into fixed-length vectors through an external
// provider (Ollama, Gemini or an OpenAI-compatible API), with retry and caching.
package embedding

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/oncovec/internal/models"
	"github.com/hyperjump/oncovec/pkg/utils"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

type options struct {
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	baseURL    string
	logger     *zap.Logger
}

func defaultOptions() options {
	return options{
		httpClient: http.DefaultClient,
		timeout:    30 * time.Second,
		maxRetries: 3,
		logger:     zap.NewNop(),
	}
}

// Option configures a provider client.
type Option func(*options)

// WithHTTPClient sets the HTTP client used for provider calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTimeout bounds each provider attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMaxRetries sets how many times a failed call is retried.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithBaseURL points the OpenAI provider at a compatible service.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithLogger sets the logger for retry and failure events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// checkDimensions rejects vectors of the wrong length or holding NaN or Inf.
func checkDimensions(v []float32, want int) error {
	if len(v) != want {
		return fmt.Errorf("%w: provider returned %d values, expected %d", models.ErrDimensionMismatch, len(v), want)
	}
	if i := utils.FirstNonFinite(v); i >= 0 {
		return fmt.Errorf("%w: non-finite value at index %d", models.ErrEmbeddingUnavailable, i)
	}
	return nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
