package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/oncovec/internal/extract"
	"github.com/hyperjump/oncovec/internal/server"
	"github.com/hyperjump/oncovec/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

func NewServerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long: `Start the HTTP API. The vector store is opened in the background; until it
is ready, query and ingest requests answer 503. Watched directories from the
config are ingested automatically.`,
		Args: cobra.NoArgs,
		RunE: makeServerRunner(a),
	}

	cmd.Flags().String("host", "", "Listen host (overrides server.host)")
	cmd.Flags().Int("port", 0, "Listen port (overrides server.port)")
	return cmd
}

func makeServerRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cfg, err := a.loadConfig(cmd)
		if err != nil {
			return err
		}
		if host, _ := cmd.Flags().GetString("host"); host != "" {
			cfg.Server.Host = host
		}
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Server.Port = port
		}
		logger, err := a.newLogger(cfg)
		if err != nil {
			return err
		}

		comps, err := newComponents(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := comps.Close(closeCtx); err != nil {
				logger.Warn("shutdown cleanup failed", zap.Error(err))
			}
		}()

		srv := server.NewServer(comps.Engine, comps.Indexer, comps.Store, comps.Storage, comps.Blobs, comps.Filter, cfg, logger)
		errCh := make(chan error, 2)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server: %w", err)
			}
		}()

		var w *watcher.Watcher
		ready := make(chan struct{})
		go func() {
			defer close(ready)
			if err := comps.Store.Open(ctx); err != nil {
				errCh <- fmt.Errorf("open vector store: %w", err)
				return
			}
			logger.Info("vector store ready",
				zap.Int("vectors", comps.Store.Count()),
				zap.Int("dimensions", comps.Store.Dimensions()))
			w = startWatcher(ctx, comps, logger)
		}()

		var runErr error
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
		case runErr = <-errCh:
			logger.Error("server stopped", zap.Error(runErr))
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Warn("http shutdown failed", zap.Error(err))
		}
		<-ready
		if w != nil {
			w.Stop()
		}
		return runErr
	}
}

// startWatcher starts auto-ingestion for the configured directories, or returns nil when none are set.
func startWatcher(ctx context.Context, comps *Components, logger *zap.Logger) *watcher.Watcher {
	cfg := comps.Config.Watch
	if len(cfg.Directories) == 0 {
		return nil
	}
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = extract.SupportedExtensions
	}
	ingest := func(ctx context.Context, path string) error {
		_, err := comps.Indexer.IngestFile(ctx, path)
		return err
	}
	w := watcher.NewWatcher(cfg.Directories, exts, cfg.RecursiveOrDefault(), ingest, watcher.WithLogger(logger))
	if err := w.Start(ctx); err != nil {
		logger.Error("watcher failed to start", zap.Error(err))
		return nil
	}
	logger.Info("watching directories", zap.Strings("directories", w.Directories()))
	go w.SyncExistingFiles()
	return w
}
