package vector

import (
	"errors"
	"fmt"
)

// IndexType names a vector index implementation.
type IndexType string

const (
	// IndexTypeFlat is the pure Go brute-force index.
	IndexTypeFlat IndexType = "flat"
	// IndexTypeFAISS is FAISS IndexFlatL2. It needs the FAISS C library and -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// ErrFAISSUnavailable is returned by FAISS operations in builds without FAISS.
var ErrFAISSUnavailable = errors.New("FAISS not available: build with -tags=faiss and install the FAISS C library")

var (
	_ Index = (*FlatIndex)(nil)
	_ Index = (*FAISSIndex)(nil)
)

// NewIndex creates an empty index of the given type. An empty type selects flat.
func NewIndex(indexType string, dimensions int) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeFlat, "":
		return NewFlatIndex(dimensions)
	case IndexTypeFAISS:
		return NewFAISSIndex(dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: flat, faiss)", indexType)
	}
}

// IsFAISSAvailable reports whether FAISS support is compiled in.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
