package vector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hyperjump/oncovec/internal/blob"
	"github.com/hyperjump/oncovec/internal/models"
	"github.com/hyperjump/oncovec/internal/storage"
)

// Store is the position-indexed vector store: an Index whose positions join
// to the mapping table in storage. Mapping rows are committed, with their
// vectors, before the in-memory append, so they act as the index's write-ahead
// log; the blob snapshot only saves replay time.
type Store struct {
	storage    storage.Storage
	blobs      blob.Store
	blobName   string
	dimensions int
	indexType  string
	logger     *zap.Logger

	index     atomic.Pointer[Index]
	writeMu   sync.Mutex
	persistMu sync.Mutex
	searches  atomic.Int64
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for load, repair, and persist events.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithIndexType selects the index implementation ("flat" or "faiss"). An
// unsupported type makes Open fail.
func WithIndexType(t string) StoreOption {
	return func(s *Store) { s.indexType = t }
}

// NewStore creates an unopened store. Every operation fails with
// models.ErrStoreNotReady until Open succeeds.
func NewStore(st storage.Storage, blobs blob.Store, blobName string, dimensions int, opts ...StoreOption) *Store {
	s := &Store{
		storage:    st,
		blobs:      blobs,
		blobName:   blobName,
		dimensions: dimensions,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads the snapshot if one exists, reconciles it with the mapping log,
// and marks the store ready. Calling Open on a ready store is a no-op.
func (s *Store) Open(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.current() != nil {
		return nil
	}

	idx, err := s.loadSnapshot(ctx)
	if err != nil {
		return err
	}
	snapshotCount := idx.Count()

	logCount, err := s.storage.CountMappings(ctx)
	if err != nil {
		_ = idx.Close()
		return fmt.Errorf("failed to count mapping entries: %w", err)
	}
	if err := s.reconcile(ctx, idx, logCount); err != nil {
		_ = idx.Close()
		return err
	}
	s.index.Store(&idx)

	if idx.Count() != snapshotCount {
		if err := s.Persist(ctx); err != nil {
			s.logger.Warn("vector snapshot persist after repair failed", zap.Error(err))
		}
	}
	s.logger.Info("vector store opened",
		zap.Int("vectors", idx.Count()),
		zap.Int("snapshot_vectors", snapshotCount),
		zap.Int("dimensions", s.dimensions),
		zap.String("index_type", string(idx.Type())),
		zap.String("blob", s.blobs.Location()+"/"+s.blobName),
	)
	return nil
}

// loadSnapshot returns the decoded snapshot, or an empty index when the blob is
// missing or unreadable. Backend errors other than not-exist are returned.
func (s *Store) loadSnapshot(ctx context.Context) (Index, error) {
	idx, err := NewIndex(s.indexType, s.dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}
	rc, err := s.blobs.Open(ctx, s.blobName)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Info("no vector snapshot found, starting empty", zap.String("blob", s.blobName))
		return idx, nil
	}
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to open vector snapshot: %w", err)
	}
	defer rc.Close()

	if err := DecodeSnapshot(rc, idx); err != nil {
		s.logger.Warn("vector snapshot unusable, rebuilding from mapping log", zap.Error(err))
		_ = idx.Close()
		return NewIndex(s.indexType, s.dimensions)
	}
	return idx, nil
}

// reconcile makes idx hold exactly logCount vectors: it drops vectors the log
// never committed and replays logged vectors the snapshot is missing.
func (s *Store) reconcile(ctx context.Context, idx Index, logCount int64) error {
	have := int64(idx.Count())
	if have > logCount {
		s.logger.Warn("vector snapshot ahead of mapping log, truncating",
			zap.Int64("snapshot", have), zap.Int64("log", logCount))
		if err := idx.Truncate(int(logCount)); err != nil {
			return fmt.Errorf("failed to truncate vector index: %w", err)
		}
		return nil
	}
	if have == logCount {
		return nil
	}

	entries, err := s.storage.ListMappings(ctx, have)
	if err != nil {
		return fmt.Errorf("failed to read mapping log: %w", err)
	}
	vectors := make([][]float32, len(entries))
	for i, e := range entries {
		if want := have + int64(i); e.Position != want {
			return fmt.Errorf("mapping log has a gap: expected position %d, found %d", want, e.Position)
		}
		vectors[i] = e.Vector
	}
	if _, err := idx.Add(vectors); err != nil {
		return fmt.Errorf("failed to replay mapping log: %w", err)
	}
	s.logger.Info("replayed mapping log into vector index",
		zap.Int64("from", have), zap.Int("entries", len(entries)))
	return nil
}

// current returns the open index, or nil before Open and after Close.
func (s *Store) current() Index {
	if p := s.index.Load(); p != nil {
		return *p
	}
	return nil
}

// Ready reports whether Open has succeeded.
func (s *Store) Ready() bool {
	return s.current() != nil
}

// Count returns the number of indexed vectors, 0 before Open.
func (s *Store) Count() int {
	if idx := s.current(); idx != nil {
		return idx.Count()
	}
	return 0
}

// IndexType returns the configured index implementation.
func (s *Store) IndexType() IndexType {
	if s.indexType == "" {
		return IndexTypeFlat
	}
	return IndexType(s.indexType)
}

// Dimensions returns the configured vector length.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// Searches returns how many index searches have run.
func (s *Store) Searches() int64 {
	return s.searches.Load()
}

// Append stores docs with their vectors and returns the assigned positions,
// which are contiguous and start at the pre-append count. Documents and mapping
// entries are committed in one storage transaction under the writer lock; on
// failure nothing is written and the index is unchanged.
func (s *Store) Append(ctx context.Context, docs []*models.Document, vectors [][]float32) ([]int64, error) {
	idx, err := s.checkAppend(docs, vectors)
	if err != nil || len(docs) == 0 {
		return nil, err
	}

	s.writeMu.Lock()
	positions, err := s.appendLocked(ctx, idx, docs, vectors)
	s.writeMu.Unlock()
	if err != nil {
		return nil, err
	}
	s.persistAfterAppend(ctx, positions[0])
	return positions, nil
}

// AppendUnique is Append for documents that must not duplicate a stored
// checksum. The checksum lookup runs under the writer lock, so concurrent
// callers cannot both insert the same content. Documents whose checksum is
// already stored are dropped and their stored id is reported in existing,
// keyed by index into docs. positions holds one entry per appended document,
// in order.
func (s *Store) AppendUnique(ctx context.Context, docs []*models.Document, vectors [][]float32) (positions []int64, existing map[int]string, err error) {
	idx, err := s.checkAppend(docs, vectors)
	if err != nil || len(docs) == 0 {
		return nil, nil, err
	}

	s.writeMu.Lock()
	existing = make(map[int]string)
	var (
		freshDocs    []*models.Document
		freshVectors [][]float32
	)
	for i, doc := range docs {
		stored, err := s.storage.FindDocumentByChecksum(ctx, doc.Checksum)
		switch {
		case err == nil:
			existing[i] = stored.ID
			continue
		case !errors.Is(err, models.ErrNotFound):
			s.writeMu.Unlock()
			return nil, nil, fmt.Errorf("failed to check for duplicate: %w", err)
		}
		freshDocs = append(freshDocs, doc)
		freshVectors = append(freshVectors, vectors[i])
	}
	if len(freshDocs) == 0 {
		s.writeMu.Unlock()
		return nil, existing, nil
	}
	positions, err = s.appendLocked(ctx, idx, freshDocs, freshVectors)
	s.writeMu.Unlock()
	if err != nil {
		return nil, nil, err
	}
	s.persistAfterAppend(ctx, positions[0])
	return positions, existing, nil
}

func (s *Store) checkAppend(docs []*models.Document, vectors [][]float32) (Index, error) {
	idx := s.current()
	if idx == nil {
		return nil, models.ErrStoreNotReady
	}
	if len(docs) != len(vectors) {
		return nil, fmt.Errorf("append: %d documents but %d vectors", len(docs), len(vectors))
	}
	if err := CheckDimensions(s.dimensions, vectors...); err != nil {
		return nil, err
	}
	return idx, nil
}

// appendLocked must be called with writeMu held.
func (s *Store) appendLocked(ctx context.Context, idx Index, docs []*models.Document, vectors [][]float32) ([]int64, error) {
	first := int64(idx.Count())
	positions := make([]int64, len(docs))
	entries := make([]*models.MappingEntry, len(docs))
	for i, doc := range docs {
		positions[i] = first + int64(i)
		entries[i] = &models.MappingEntry{Position: positions[i], DocumentID: doc.ID, Vector: vectors[i]}
	}
	if err := s.storage.CommitEntries(ctx, docs, entries); err != nil {
		return nil, fmt.Errorf("failed to commit mapping entries: %w", err)
	}
	if _, err := idx.Add(vectors); err != nil {
		return nil, fmt.Errorf("failed to append committed vectors: %w", err)
	}
	return positions, nil
}

func (s *Store) persistAfterAppend(ctx context.Context, first int64) {
	if err := s.Persist(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("vector snapshot persist failed, mapping log will be replayed on next open",
			zap.Int64("first_position", first), zap.Error(err))
	}
}

// Search returns up to k nearest positions for query. An opened but empty
// store returns an empty slice.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]Match, error) {
	idx := s.current()
	if idx == nil {
		return nil, models.ErrStoreNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.searches.Add(1)
	return idx.Search(query, k)
}

// Resolve maps a position to its document. Missing mapping entries or
// documents yield errors wrapping models.ErrNotFound.
func (s *Store) Resolve(ctx context.Context, position int64) (*models.Document, error) {
	if position < 0 {
		return nil, fmt.Errorf("position %d: %w", position, models.ErrNotFound)
	}
	entry, err := s.storage.GetMapping(ctx, position)
	if err != nil {
		return nil, err
	}
	return s.storage.GetDocument(ctx, entry.DocumentID)
}

// Persist writes the current index to the blob store.
func (s *Store) Persist(ctx context.Context) error {
	idx := s.current()
	if idx == nil {
		return models.ErrStoreNotReady
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	data, err := EncodeSnapshot(idx)
	if err != nil {
		return fmt.Errorf("failed to encode vector snapshot: %w", err)
	}
	if err := s.blobs.Put(ctx, s.blobName, data); err != nil {
		return fmt.Errorf("failed to persist vector snapshot: %w", err)
	}
	return nil
}

// Close flushes the snapshot of an opened store and releases the index. The
// store is not ready afterwards.
func (s *Store) Close(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	idx := s.current()
	if idx == nil {
		return nil
	}
	err := s.Persist(ctx)
	s.persistMu.Lock()
	s.index.Store(nil)
	s.persistMu.Unlock()
	return errors.Join(err, idx.Close())
}
