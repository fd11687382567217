// Package storage defines the persistence interface for documents and the
// position mapping table.
package storage

import (
	"context"

	"github.com/hyperjump/oncovec/internal/models"
)

// Storage persists documents and mapping entries. Mapping entries carry their
// vectors so the table can rebuild the in-memory index.
type Storage interface {
	// CommitEntries writes docs and entries as one unit: either all become
	// visible or none do. Entry positions must not already exist.
	CommitEntries(ctx context.Context, docs []*models.Document, entries []*models.MappingEntry) error

	GetDocument(ctx context.Context, id string) (*models.Document, error)
	FindDocumentByChecksum(ctx context.Context, checksum string) (*models.Document, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// GetMapping returns the entry at position without its vector.
	GetMapping(ctx context.Context, position int64) (*models.MappingEntry, error)
	// ListMappings returns entries with position >= from, ascending, vectors included.
	ListMappings(ctx context.Context, from int64) ([]*models.MappingEntry, error)

	CountDocuments(ctx context.Context) (int64, error)
	CountMappings(ctx context.Context) (int64, error)

	// Describe names the backend and its location for status output.
	Describe() string

	Close() error
}

// Sizer is implemented by backends that can report their on-disk footprint.
type Sizer interface {
	SizeBytes() (int64, error)
}
