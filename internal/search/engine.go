// Package search answers domain-restricted similarity queries against the
// position-indexed vector store.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/oncovec/internal/config"
	"github.com/hyperjump/oncovec/internal/domain"
	"github.com/hyperjump/oncovec/internal/embedding"
	"github.com/hyperjump/oncovec/internal/models"
	"github.com/hyperjump/oncovec/internal/vector"
)

// Response messages for non-error outcomes.
const (
	MessageOutOfDomain = "Query is not related to oncology."
	MessageNoResults   = "No relevant oncology documents found."
)

// Engine runs domain-filtered nearest-neighbor queries.
type Engine struct {
	store    *vector.Store
	embedder embedding.Embedder
	filter   *domain.Filter
	config   config.QueryConfig
	logger   *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger for query events.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a query engine with the given dependencies.
func NewEngine(store *vector.Store, embedder embedding.Embedder, filter *domain.Filter, cfg config.QueryConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		embedder: embedder,
		filter:   filter,
		config:   cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query answers req. Out-of-domain queries and queries whose candidates are all
// filtered out are successful responses with a status and message; they never
// touch the index in the first case.
func (e *Engine) Query(ctx context.Context, req *models.QueryRequest) (*models.QueryResponse, error) {
	start := time.Now()
	if err := req.Validate(e.config.DefaultTopK, e.config.MaxTopK); err != nil {
		return nil, err
	}

	if !e.filter.IsInDomain(req.Query) {
		e.logger.Debug("query rejected as out of domain", zap.String("query", req.Query))
		return &models.QueryResponse{
			Status:    models.StatusOutOfDomain,
			Message:   MessageOutOfDomain,
			Documents: []*models.QueryResult{},
			QueryTime: time.Since(start).Milliseconds(),
		}, nil
	}
	if !e.store.Ready() {
		return nil, models.ErrStoreNotReady
	}

	vec, err := e.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := e.collect(ctx, vec, req.TopK)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].SimilarityScore != results[j].SimilarityScore {
			return results[i].SimilarityScore < results[j].SimilarityScore
		}
		return results[i].Position < results[j].Position
	})
	if len(results) > req.TopK {
		results = results[:req.TopK]
	}

	resp := &models.QueryResponse{
		Status:    models.StatusOK,
		Documents: results,
		QueryTime: time.Since(start).Milliseconds(),
	}
	if len(results) == 0 {
		resp.Status = models.StatusNoResults
		resp.Message = MessageNoResults
	}
	e.logger.Debug("query answered",
		zap.String("query", req.Query),
		zap.Strings("matched_keywords", e.filter.Matches(req.Query)),
		zap.Int("top_k", req.TopK),
		zap.Int("results", len(results)),
		zap.Int64("query_time_ms", resp.QueryTime),
	)
	return resp, nil
}

// collect searches for topK candidates and keeps the in-domain ones. When fewer
// than the minimum survive and the first search did not cover the whole store,
// it searches the whole store and continues with unseen candidates.
func (e *Engine) collect(ctx context.Context, vec []float32, topK int) ([]*models.QueryResult, error) {
	minResults := e.config.MinResults
	if minResults <= 0 || minResults > topK {
		minResults = topK
	}

	seen := make(map[int64]bool)
	var kept []*models.QueryResult
	k := topK
	for {
		matches, err := e.store.Search(ctx, vec, k)
		if err != nil {
			return nil, fmt.Errorf("vector search failed: %w", err)
		}
		for _, m := range matches {
			if len(kept) >= minResults && k > topK {
				break
			}
			if m.Position == vector.NoMatch || seen[m.Position] {
				continue
			}
			seen[m.Position] = true
			r, err := e.candidate(ctx, m)
			if err != nil {
				return nil, err
			}
			if r != nil {
				kept = append(kept, r)
			}
		}

		count := e.store.Count()
		if len(kept) >= minResults || k >= count {
			return kept, nil
		}
		e.logger.Debug("broadening search after domain filtering",
			zap.Int("kept", len(kept)), zap.Int("min_results", minResults), zap.Int("store_size", count))
		k = count
	}
}

// candidate resolves a match and applies the domain filter. It returns nil for
// stale positions and out-of-domain documents.
func (e *Engine) candidate(ctx context.Context, m vector.Match) (*models.QueryResult, error) {
	doc, err := e.store.Resolve(ctx, m.Position)
	if errors.Is(err, models.ErrNotFound) {
		e.logger.Warn("search hit has no mapped document", zap.Int64("position", m.Position), zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve position %d: %w", m.Position, err)
	}
	if !e.filter.IsInDomain(doc.Text()) {
		return nil, nil
	}
	return &models.QueryResult{
		DocumentID:      doc.ID,
		Title:           doc.Title,
		Abstract:        doc.Body,
		SimilarityScore: m.Distance,
		Position:        m.Position,
	}, nil
}
