// Package server provides the HTTP API for oncovec.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/oncovec/internal/blob"
	"github.com/hyperjump/oncovec/internal/config"
	"github.com/hyperjump/oncovec/internal/domain"
	"github.com/hyperjump/oncovec/internal/indexer"
	"github.com/hyperjump/oncovec/internal/search"
	"github.com/hyperjump/oncovec/internal/storage"
	"github.com/hyperjump/oncovec/internal/vector"
)

// maxUploadBytes bounds multipart uploads.
const maxUploadBytes = 32 << 20

// Server is the HTTP server for the oncovec API.
type Server struct {
	engine  *search.Engine
	indexer *indexer.Indexer
	store   *vector.Store
	storage storage.Storage
	blobs   blob.Store
	filter  *domain.Filter
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	store *vector.Store,
	st storage.Storage,
	blobs blob.Store,
	filter *domain.Filter,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:  engine,
		indexer: idx,
		store:   store,
		storage: st,
		blobs:   blobs,
		filter:  filter,
		config:  cfg,
		logger:  logger,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes returns the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.handleAddDocuments)
		r.Post("/documents/pdf", s.handleUploadDocument)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Post("/query", s.handleQuery)
		r.Get("/status", s.handleStatus)
	})
	r.Post("/add-document", s.handleAddDocuments)
	r.Post("/query", s.handleQuery)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops. After Stop it
// returns http.ErrServerClosed.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server. It is safe to call from another
// goroutine, before or while Start runs.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
