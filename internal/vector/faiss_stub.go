//go:build !faiss || !cgo

package vector

// FAISSIndex is a placeholder used when the faiss build tag is not set.
type FAISSIndex struct{}

// NewFAISSIndex always fails without FAISS support.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	return nil, ErrFAISSUnavailable
}

func (f *FAISSIndex) Dimensions() int { return 0 }

func (f *FAISSIndex) Count() int { return 0 }

func (f *FAISSIndex) Add([][]float32) (int64, error) { return NoMatch, ErrFAISSUnavailable }

func (f *FAISSIndex) Search([]float32, int) ([]Match, error) { return nil, ErrFAISSUnavailable }

func (f *FAISSIndex) Truncate(int) error { return ErrFAISSUnavailable }

func (f *FAISSIndex) Vectors() ([]float32, error) { return nil, ErrFAISSUnavailable }

func (f *FAISSIndex) Type() IndexType { return IndexTypeFAISS }

func (f *FAISSIndex) Close() error { return nil }
