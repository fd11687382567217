//go:build faiss && cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

// FAISSIndex wraps a FAISS IndexFlatL2. FAISS labels are insertion order, so
// they are the positions directly and no id map is kept.
type FAISSIndex struct {
	index      *C.FaissIndexFlatL2
	dimensions int
	mu         sync.RWMutex
}

// NewFAISSIndex creates an empty IndexFlatL2 for vectors of the given dimension.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, errors.New("dimensions must be positive")
	}
	var index *C.FaissIndexFlatL2
	if ret := C.faiss_IndexFlatL2_new_with(&index, C.idx_t(dimensions)); ret != 0 {
		return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
	}
	return &FAISSIndex{index: index, dimensions: dimensions}, nil
}

func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Dimensions returns the vector length.
func (f *FAISSIndex) Dimensions() int {
	return f.dimensions
}

// Count returns the number of stored vectors.
func (f *FAISSIndex) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.index == nil {
		return 0
	}
	return int(C.faiss_Index_ntotal(f.index))
}

// Add appends vectors and returns the position of the first one.
func (f *FAISSIndex) Add(vectors [][]float32) (int64, error) {
	if err := CheckDimensions(f.dimensions, vectors...); err != nil {
		return NoMatch, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index == nil {
		return NoMatch, errors.New("FAISS index is closed")
	}
	first := int64(C.faiss_Index_ntotal(f.index))
	if len(vectors) == 0 {
		return first, nil
	}
	if err := f.addLocked(flatten(vectors, f.dimensions)); err != nil {
		return NoMatch, err
	}
	return first, nil
}

func (f *FAISSIndex) addLocked(flat []float32) error {
	n := len(flat) / f.dimensions
	if n == 0 {
		return nil
	}
	if ret := C.faiss_Index_add(f.index, C.idx_t(n), (*C.float)(unsafe.Pointer(&flat[0]))); ret != 0 {
		return fmt.Errorf("failed to add vectors to FAISS index: %s", faissLastError())
	}
	return nil
}

// Search returns up to k nearest positions. IndexFlatL2 reports squared L2
// distances; results are re-sorted so ties keep position order.
func (f *FAISSIndex) Search(query []float32, k int) ([]Match, error) {
	if err := CheckDimensions(f.dimensions, query); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.index == nil {
		return nil, errors.New("FAISS index is closed")
	}
	n := int(C.faiss_Index_ntotal(f.index))
	if k <= 0 || n == 0 {
		return []Match{}, nil
	}
	k = min(k, n)
	distances := make([]float32, k)
	labels := make([]int64, k)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}
	matches := make([]Match, 0, k)
	for i, label := range labels {
		if label < 0 {
			continue
		}
		matches = append(matches, Match{Position: label, Distance: float64(distances[i])})
	}
	sortMatches(matches)
	return matches, nil
}

// Truncate drops every vector at position >= n by rebuilding the index from
// the kept prefix. IndexFlat has no in-place removal.
func (f *FAISSIndex) Truncate(n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index == nil {
		return errors.New("FAISS index is closed")
	}
	total := int(C.faiss_Index_ntotal(f.index))
	n = max(n, 0)
	if n >= total {
		return nil
	}
	keep, err := f.reconstructLocked(n)
	if err != nil {
		return err
	}
	if ret := C.faiss_Index_reset(f.index); ret != 0 {
		return fmt.Errorf("failed to reset FAISS index: %s", faissLastError())
	}
	return f.addLocked(keep)
}

// Vectors returns a copy of every stored vector in position order.
func (f *FAISSIndex) Vectors() ([]float32, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.index == nil {
		return nil, errors.New("FAISS index is closed")
	}
	return f.reconstructLocked(int(C.faiss_Index_ntotal(f.index)))
}

func (f *FAISSIndex) reconstructLocked(n int) ([]float32, error) {
	out := make([]float32, n*f.dimensions)
	if n == 0 {
		return out, nil
	}
	if ret := C.faiss_Index_reconstruct_n(f.index, 0, C.idx_t(n), (*C.float)(unsafe.Pointer(&out[0]))); ret != 0 {
		return nil, fmt.Errorf("failed to read FAISS vectors: %s", faissLastError())
	}
	return out, nil
}

// Type returns IndexTypeFAISS.
func (f *FAISSIndex) Type() IndexType {
	return IndexTypeFAISS
}

// Close frees the FAISS index.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}

func flatten(vectors [][]float32, dimensions int) []float32 {
	flat := make([]float32, 0, len(vectors)*dimensions)
	for _, v := range vectors {
		flat = append(flat, v...)
	}
	return flat
}
