package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/hyperjump/oncovec/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests and offline runs. Each
// lower-cased word maps to a fixed pseudo-random direction and a text embeds as
// the normalized sum of its words, so texts sharing vocabulary land close together.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns a mock embedder producing vectors of the given length (384 when <= 0).
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns the unit-length bag-of-words vector for text.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		words = []string{text}
	}
	sum := make([]float64, e.dimensions)
	for _, w := range words {
		seed := wordSeed(w)
		for i := range sum {
			sum[i] += math.Sin(seed * float64(i+1))
		}
	}
	emb := make([]float32, e.dimensions)
	for i, v := range sum {
		emb[i] = float32(v)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

func wordSeed(w string) float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(w))
	return float64(h.Sum64()%100003) + 1
}

// EmbedBatch embeds each text in turn.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

// Dimensions returns the vector length.
func (e *MockEmbedder) Dimensions() int { return e.dimensions }

// Close is a no-op.
func (e *MockEmbedder) Close() error { return nil }
