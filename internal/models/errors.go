package models

import "errors"

var (
	// ErrEmbeddingUnavailable means the provider was unreachable, failed, or returned no vector.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrStoreNotReady means the vector store has not been opened yet.
	ErrStoreNotReady = errors.New("vector store is not initialized")
	// ErrDimensionMismatch means a vector length differs from the configured dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrExtractionFailure means text could not be extracted from an uploaded file.
	ErrExtractionFailure = errors.New("text extraction failed")
	// ErrNotFound means a mapping entry or document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmptyQuery means the query text was blank.
	ErrEmptyQuery = errors.New("query cannot be empty")
	// ErrEmptyDocument means the document body was blank.
	ErrEmptyDocument = errors.New("document body cannot be empty")
)
