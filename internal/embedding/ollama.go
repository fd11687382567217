package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/oncovec/internal/models"
)

// OllamaEmbedder calls an Ollama-style embeddings endpoint:
// POST {"model", "prompt"} -> {"embedding": [...]}. OpenAI-shaped responses
// ({"data":[{"embedding": [...]}]}) are accepted too.
type OllamaEmbedder struct {
	url        string
	model      string
	dimensions int
	opts       options
}

// NewOllamaEmbedder creates a client for url that expects vectors of length dimensions.
func NewOllamaEmbedder(url, model string, dimensions int, opts ...Option) (*OllamaEmbedder, error) {
	if url == "" {
		return nil, fmt.Errorf("embedding url is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &OllamaEmbedder{url: url, model: model, dimensions: dimensions, opts: o}, nil
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingPayload struct {
	Embedding []float64 `json:"embedding"`
	Data      []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (p *embeddingPayload) vector() []float64 {
	if len(p.Embedding) > 0 {
		return p.Embedding
	}
	if len(p.Data) > 0 {
		return p.Data[0].Embedding
	}
	return nil
}

// attemptError describes one failed provider call.
type attemptError struct {
	err        error
	retryable  bool
	retryAfter time.Duration
	hasAfter   bool
}

func (e *attemptError) Error() string { return e.err.Error() }
func (e *attemptError) Unwrap() error { return e.err }

// Embed returns the embedding for text, retrying transient failures with backoff.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	for attempt := 0; ; attempt++ {
		vec, err := e.call(ctx, text)
		if err == nil {
			if err := checkDimensions(vec, e.dimensions); err != nil {
				return nil, err
			}
			return vec, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingUnavailable, ctxErr)
		}

		var ae *attemptError
		if !errors.As(err, &ae) || !ae.retryable || attempt >= e.opts.maxRetries {
			return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingUnavailable, err)
		}
		delay := retryDelay(attempt)
		if ae.hasAfter {
			delay = ae.retryAfter
		}
		e.opts.logger.Warn("embedding request failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := sleepCtx(ctx, delay); err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingUnavailable, err)
		}
	}
}

func (e *OllamaEmbedder) call(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.timeout)
	defer cancel()

	body, err := json.Marshal(ollamaRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.opts.httpClient.Do(req)
	if err != nil {
		return nil, &attemptError{err: err, retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		_, _ = io.Copy(io.Discard, resp.Body)
		after, ok := parseRetryAfter(resp.Header)
		return nil, &attemptError{
			err:        fmt.Errorf("embedding provider returned %s", resp.Status),
			retryable:  true,
			retryAfter: after,
			hasAfter:   ok,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &attemptError{err: fmt.Errorf("embedding provider returned %s: %s", resp.Status, bytes.TrimSpace(msg))}
	}

	var payload embeddingPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &attemptError{err: fmt.Errorf("decode embedding response: %w", err), retryable: true}
	}
	v := payload.vector()
	if len(v) == 0 {
		return nil, &attemptError{err: errors.New("no embedding returned"), retryable: true}
	}
	return toFloat32(v), nil
}

// EmbedBatch embeds each text in order; the first failure aborts the batch.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the expected vector length.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *OllamaEmbedder) Close() error {
	return nil
}
