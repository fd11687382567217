// Package indexer ingests documents: it embeds their text and appends them to
// the position-indexed vector store together with their mapping entries.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/oncovec/internal/embedding"
	"github.com/hyperjump/oncovec/internal/extract"
	"github.com/hyperjump/oncovec/internal/models"
	"github.com/hyperjump/oncovec/internal/storage"
	"github.com/hyperjump/oncovec/internal/vector"
)

// Indexer embeds documents and appends them to the vector store.
type Indexer struct {
	store          *vector.Store
	storage        storage.Storage
	embedder       embedding.Embedder
	extractor      *extract.Extractor
	skipDuplicates bool
	logger         *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger for ingestion events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithSkipDuplicates controls whether inputs whose checksum is already stored
// return the existing id instead of being ingested again.
func WithSkipDuplicates(skip bool) IndexerOption {
	return func(idx *Indexer) { idx.skipDuplicates = skip }
}

// NewIndexer creates an indexer. st must be the storage backing store; it is
// used for duplicate lookups. A nil extractor gets the default one.
func NewIndexer(store *vector.Store, st storage.Storage, embedder embedding.Embedder, extractor *extract.Extractor, opts ...IndexerOption) *Indexer {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	idx := &Indexer{
		store:          store,
		storage:        st,
		embedder:       embedder,
		extractor:      extractor,
		skipDuplicates: true,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Ingest stores one document and returns its id.
func (idx *Indexer) Ingest(ctx context.Context, title, body string) (string, error) {
	ids, err := idx.IngestMany(ctx, []models.DocumentInput{{Title: title, Body: body}})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// IngestMany stores inputs as one batch and returns their ids in input order.
// Every input is validated and embedded before anything is written, so an
// embedding failure leaves storage and the index untouched. New documents get
// contiguous positions committed in a single transaction.
func (idx *Indexer) IngestMany(ctx context.Context, inputs []models.DocumentInput) ([]string, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	normalized := make([]models.DocumentInput, len(inputs))
	for i, in := range inputs {
		if err := in.Normalize(); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		in.Title = Preprocess(in.Title)
		in.Body = Preprocess(in.Body)
		normalized[i] = in
	}
	if !idx.store.Ready() {
		return nil, models.ErrStoreNotReady
	}

	ids := make([]string, len(normalized))
	var pending []int
	// repeats maps an input to an earlier input of the same batch with the same checksum.
	repeats := make(map[int]int)
	batchChecksums := make(map[string]int, len(normalized))
	checksums := make([]string, len(normalized))
	for i, in := range normalized {
		checksums[i] = models.Checksum(in.Title, in.Body)
		if !idx.skipDuplicates {
			pending = append(pending, i)
			continue
		}
		existing, err := idx.storage.FindDocumentByChecksum(ctx, checksums[i])
		switch {
		case err == nil:
			ids[i] = existing.ID
			idx.logger.Debug("skipping duplicate document",
				zap.String("id", existing.ID), zap.String("title", in.Title))
			continue
		case !errors.Is(err, models.ErrNotFound):
			return nil, fmt.Errorf("failed to check for duplicate: %w", err)
		}
		if first, ok := batchChecksums[checksums[i]]; ok {
			repeats[i] = first
			continue
		}
		batchChecksums[checksums[i]] = i
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return ids, nil
	}

	texts := make([]string, len(pending))
	for j, i := range pending {
		texts[j] = models.EmbeddingText(normalized[i].Title, normalized[i].Body)
	}
	vectors, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(pending) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d documents", models.ErrEmbeddingUnavailable, len(vectors), len(pending))
	}

	now := time.Now().UTC()
	docs := make([]*models.Document, len(pending))
	for j, i := range pending {
		in := normalized[i]
		docs[j] = &models.Document{
			ID:        uuid.New().String(),
			Title:     in.Title,
			Body:      in.Body,
			Checksum:  checksums[i],
			Source:    in.Source,
			CreatedAt: now,
		}
		ids[i] = docs[j].ID
	}

	var (
		positions []int64
		existing  map[int]string
	)
	if idx.skipDuplicates {
		// A concurrent ingest may have stored the same content since the
		// lookup above; AppendUnique repeats it under the writer lock.
		positions, existing, err = idx.store.AppendUnique(ctx, docs, vectors)
	} else {
		positions, err = idx.store.Append(ctx, docs, vectors)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to append documents: %w", err)
	}
	for j, id := range existing {
		ids[pending[j]] = id
		idx.logger.Debug("skipping duplicate document",
			zap.String("id", id), zap.String("title", docs[j].Title))
	}
	for i, first := range repeats {
		ids[i] = ids[first]
	}
	if len(positions) == 0 {
		return ids, nil
	}

	idx.logger.Info("documents ingested",
		zap.Int("count", len(positions)),
		zap.Int("skipped", len(inputs)-len(positions)),
		zap.Int64("first_position", positions[0]),
	)
	return ids, nil
}

// IngestFile extracts the file at path and ingests the resulting documents.
// Spreadsheets with a title/abstract header become one document per row.
func (idx *Indexer) IngestFile(ctx context.Context, path string) ([]string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	inputs, err := idx.extractor.ExtractDocuments(absPath)
	if err != nil {
		return nil, err
	}
	ids, err := idx.IngestMany(ctx, inputs)
	if err != nil {
		return nil, err
	}
	idx.logger.Debug("file ingested", zap.String("path", absPath), zap.Int("documents", len(ids)))
	return ids, nil
}

// IngestUpload ingests an uploaded file. A non-empty title overrides the
// file-name title of single-document uploads.
func (idx *Indexer) IngestUpload(ctx context.Context, content []byte, filename, title string) ([]string, error) {
	inputs, err := idx.extractor.ExtractDocumentsBytes(content, filepath.Base(filename), "upload:"+filepath.Base(filename))
	if err != nil {
		return nil, err
	}
	if title = strings.TrimSpace(title); title != "" && len(inputs) == 1 {
		inputs[0].Title = title
	}
	return idx.IngestMany(ctx, inputs)
}

// IngestDirectory walks dir and ingests each regular file whose extension is in
// allowedExts (all files when empty). It returns the ids ingested so far and
// the first error.
func (idx *Indexer) IngestDirectory(ctx context.Context, dir string, allowedExts []string) ([]string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	var ids []string
	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !ExtensionAllowed(filepath.Ext(path), allowedExts) {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		got, err := idx.IngestFile(ctx, path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		ids = append(ids, got...)
		return nil
	})
	return ids, err
}

// ExtensionAllowed reports whether ext is in allowed, ignoring case and the
// leading dot. An empty list allows everything.
func ExtensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	norm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == norm {
			return true
		}
	}
	return false
}
