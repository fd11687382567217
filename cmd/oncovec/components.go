package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/oncovec/internal/blob"
	"github.com/hyperjump/oncovec/internal/config"
	"github.com/hyperjump/oncovec/internal/domain"
	"github.com/hyperjump/oncovec/internal/embedding"
	"github.com/hyperjump/oncovec/internal/extract"
	"github.com/hyperjump/oncovec/internal/indexer"
	"github.com/hyperjump/oncovec/internal/search"
	"github.com/hyperjump/oncovec/internal/storage"
	"github.com/hyperjump/oncovec/internal/vector"
)

// Components holds initialized services.
type Components struct {
	Config   *config.Config
	Logger   *zap.Logger
	Storage  storage.Storage
	Blobs    blob.Store
	Store    *vector.Store
	Embedder embedding.Embedder
	Filter   *domain.Filter
	Engine   *search.Engine
	Indexer  *indexer.Indexer
}

// newComponents wires every service. The vector store is returned unopened.
func newComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	st, err := storage.New(ctx, &cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	blobs, err := blob.New(ctx, cfg.Storage.Blob)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}
	embedder, err := embedding.NewFromConfig(ctx, cfg.Embedding, logger)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	store := vector.NewStore(st, blobs, cfg.Storage.IndexBlob, cfg.Embedding.Dimensions,
		vector.WithLogger(logger), vector.WithIndexType(cfg.Storage.IndexType))
	filter := domain.NewFilter(cfg.Domain.Keywords)
	engine := search.NewEngine(store, embedder, filter, cfg.Query, search.WithLogger(logger))
	idx := indexer.NewIndexer(store, st, embedder, extract.NewExtractor(),
		indexer.WithLogger(logger),
		indexer.WithSkipDuplicates(cfg.Ingest.SkipDuplicatesOrDefault()),
	)

	logger.Debug("components initialized",
		zap.String("storage", st.Describe()),
		zap.String("index_blob", blobs.Location()),
		zap.String("embedding", cfg.Embedding.Provider),
		zap.Int("dimensions", cfg.Embedding.Dimensions))

	return &Components{
		Config:   cfg,
		Logger:   logger,
		Storage:  st,
		Blobs:    blobs,
		Store:    store,
		Embedder: embedder,
		Filter:   filter,
		Engine:   engine,
		Indexer:  idx,
	}, nil
}

// Close persists the vector snapshot and releases every resource.
func (c *Components) Close(ctx context.Context) error {
	var errs []error
	if c.Store != nil {
		if err := c.Store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("persist vector store: %w", err))
		}
	}
	if c.Embedder != nil {
		if err := c.Embedder.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Storage != nil {
		if err := c.Storage.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	_ = c.Logger.Sync()
	return errors.Join(errs...)
}
