// Package vector provides the L2 vector indexes (pure Go or FAISS), their
// snapshot codec, and the position-indexed Store that keeps an index aligned
// with the mapping table.
package vector

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/oncovec/internal/models"
)

// NoMatch is the position reported for an empty result slot.
const NoMatch int64 = -1

// Match is one search hit. Distance is the squared L2 distance; smaller is closer.
type Match struct {
	Position int64
	Distance float64
}

// Index is an append-only exact squared-L2 index. The vector added n-th has
// position n-1; Search orders by distance, then position.
type Index interface {
	Dimensions() int
	Count() int
	Add(vectors [][]float32) (int64, error)
	Search(query []float32, k int) ([]Match, error)
	// Truncate drops every vector at position >= n.
	Truncate(n int) error
	// Vectors returns a copy of every vector, concatenated in position order.
	Vectors() ([]float32, error)
	Type() IndexType
	Close() error
}

// CheckDimensions returns ErrDimensionMismatch if any vector is not of length dimensions.
func CheckDimensions(dimensions int, vectors ...[]float32) error {
	for _, v := range vectors {
		if len(v) != dimensions {
			return fmt.Errorf("%w: got %d, expected %d", models.ErrDimensionMismatch, len(v), dimensions)
		}
	}
	return nil
}

// sortMatches orders matches nearest first, ties by ascending position.
func sortMatches(matches []Match) {
	sort.Slice(matches, func(a, b int) bool {
		if matches[a].Distance != matches[b].Distance {
			return matches[a].Distance < matches[b].Distance
		}
		return matches[a].Position < matches[b].Position
	})
}

// FlatIndex is an append-only, brute-force squared-L2 index. Vectors are stored
// contiguously; the vector at offset i has position i.
type FlatIndex struct {
	dimensions int
	data       []float32
	mu         sync.RWMutex
}

// NewFlatIndex creates an empty index for vectors of the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatIndex{dimensions: dimensions}, nil
}

// Dimensions returns the vector length.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

// Count returns the number of stored vectors.
func (f *FlatIndex) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.data) / f.dimensions
}

// Add appends vectors and returns the position of the first one. Nothing is
// appended if any vector has the wrong dimension.
func (f *FlatIndex) Add(vectors [][]float32) (int64, error) {
	if err := CheckDimensions(f.dimensions, vectors...); err != nil {
		return NoMatch, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	first := int64(len(f.data) / f.dimensions)
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return first, nil
}

// Truncate drops every vector at position >= n.
func (f *FlatIndex) Truncate(n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if limit := n * f.dimensions; limit < len(f.data) {
		f.data = f.data[:limit]
	}
	return nil
}

// Vectors returns a copy of the stored values in position order.
func (f *FlatIndex) Vectors() ([]float32, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]float32(nil), f.data...), nil
}

// Type returns IndexTypeFlat.
func (f *FlatIndex) Type() IndexType {
	return IndexTypeFlat
}

// Close is a no-op.
func (f *FlatIndex) Close() error {
	return nil
}

// Vector returns a copy of the vector at position, or nil when out of range.
func (f *FlatIndex) Vector(position int64) []float32 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	start := int(position) * f.dimensions
	if position < 0 || start+f.dimensions > len(f.data) {
		return nil
	}
	out := make([]float32, f.dimensions)
	copy(out, f.data[start:start+f.dimensions])
	return out
}

// Search returns up to k nearest vectors by squared L2 distance, nearest first.
// Equal distances are ordered by ascending position. k larger than Count
// returns every vector; k <= 0 returns nothing.
func (f *FlatIndex) Search(query []float32, k int) ([]Match, error) {
	if err := CheckDimensions(f.dimensions, query); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := len(f.data) / f.dimensions
	if k <= 0 || n == 0 {
		return []Match{}, nil
	}
	matches := make([]Match, n)
	for i := 0; i < n; i++ {
		vec := f.data[i*f.dimensions : (i+1)*f.dimensions]
		matches[i] = Match{Position: int64(i), Distance: SquaredL2(query, vec)}
	}
	sortMatches(matches)
	if k > n {
		k = n
	}
	return matches[:k], nil
}
