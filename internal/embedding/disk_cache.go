package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// DiskCache keeps embeddings in BadgerDB so they survive restarts.
// Keys are scoped by namespace (model and dimension), so switching models never
// serves stale vectors.
type DiskCache struct {
	db        *badger.DB
	namespace string
}

// OpenDiskCache opens or creates a cache under dir.
func OpenDiskCache(dir, namespace string, logger *zap.Logger) (*DiskCache, error) {
	if dir == "" {
		return nil, errors.New("embedding cache dir is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{s: logger.Sugar()})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	return &DiskCache{db: db, namespace: namespace}, nil
}

func (c *DiskCache) key(text string) []byte {
	h := sha256.New()
	h.Write([]byte(c.namespace))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return append([]byte("emb:"), h.Sum(nil)...)
}

// Get returns the cached vector for text.
func (c *DiskCache) Get(text string) ([]float32, bool) {
	var v []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.key(text))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			v = decodeFloats(val)
			return nil
		})
	})
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// PutBatch stores vectors for texts in one write batch.
func (c *DiskCache) PutBatch(texts []string, vecs [][]float32) error {
	wb := c.db.NewWriteBatch()
	defer wb.Cancel()
	for i, text := range texts {
		if err := wb.Set(c.key(text), encodeFloats(vecs[i])); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Close closes the database.
func (c *DiskCache) Close() error {
	return c.db.Close()
}

func encodeFloats(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

func decodeFloats(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

// badgerLogger routes badger output to zap; info chatter is demoted to debug.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.s.Errorf("badger: "+f, v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.s.Warnf("badger: "+f, v...) }
func (l badgerLogger) Infof(f string, v ...interface{})    { l.s.Debugf("badger: "+f, v...) }
func (l badgerLogger) Debugf(string, ...interface{})       {}

// DiskCachedEmbedder serves vectors from a DiskCache and embeds only misses.
type DiskCachedEmbedder struct {
	Embedder
	cache  *DiskCache
	logger *zap.Logger
}

// NewDiskCachedEmbedder wraps inner with cache. Closing it closes both.
func NewDiskCachedEmbedder(inner Embedder, cache *DiskCache, logger *zap.Logger) *DiskCachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiskCachedEmbedder{Embedder: inner, cache: cache, logger: logger}
}

// Embed returns the cached vector for text or asks the wrapped embedder.
func (d *DiskCachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := d.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch only sends cache misses to the wrapped embedder. A failed cache
// write is logged; the vectors are still returned.
func (d *DiskCachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	dims := d.Dimensions()
	for i, text := range texts {
		if v, ok := d.cache.Get(text); ok && len(v) == dims {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := d.Embedder.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, v := range vecs {
		out[missIdx[j]] = v
	}
	if err := d.cache.PutBatch(missTexts, vecs); err != nil {
		d.logger.Warn("embedding cache write failed", zap.Int("count", len(missTexts)), zap.Error(err))
	}
	return out, nil
}

// Close closes the wrapped embedder and the cache.
func (d *DiskCachedEmbedder) Close() error {
	return errors.Join(d.Embedder.Close(), d.cache.Close())
}
