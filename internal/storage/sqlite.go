// Package storage provides SQLite and MongoDB implementations of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/oncovec/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL,
		checksum TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_checksum ON documents(checksum);
	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);

	CREATE TABLE IF NOT EXISTS vector_mappings (
		position INTEGER PRIMARY KEY,
		document_id TEXT NOT NULL,
		embedding BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (document_id) REFERENCES documents(id)
	);

	CREATE INDEX IF NOT EXISTS idx_mappings_document_id ON vector_mappings(document_id);
	`
	_, err := db.Exec(schema)
	return err
}

// CommitEntries inserts documents and mapping entries in one transaction.
func (s *SQLiteStorage) CommitEntries(ctx context.Context, docs []*models.Document, entries []*models.MappingEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	docStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (id, title, body, checksum, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer docStmt.Close()

	now := time.Now().UTC()
	for _, doc := range docs {
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		if _, err := docStmt.ExecContext(ctx, doc.ID, doc.Title, doc.Body, doc.Checksum, doc.Source, doc.CreatedAt); err != nil {
			return fmt.Errorf("insert document %s: %w", doc.ID, err)
		}
	}

	mapStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vector_mappings (position, document_id, embedding, created_at)
		 VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer mapStmt.Close()

	for _, e := range entries {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if _, err := mapStmt.ExecContext(ctx, e.Position, e.DocumentID, EncodeVector(e.Vector), e.CreatedAt); err != nil {
			return fmt.Errorf("insert mapping %d: %w", e.Position, err)
		}
	}
	return tx.Commit()
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, body, checksum, source, created_at
		 FROM documents WHERE id = ?`, id,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	return doc, err
}

// FindDocumentByChecksum returns the oldest document with the given checksum.
func (s *SQLiteStorage) FindDocumentByChecksum(ctx context.Context, checksum string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, body, checksum, source, created_at
		 FROM documents WHERE checksum = ? ORDER BY created_at LIMIT 1`, checksum,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checksum %s: %w", checksum, models.ErrNotFound)
	}
	return doc, err
}

// ListDocuments returns documents newest first with offset and limit.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, body, checksum, source, created_at
		 FROM documents ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*models.Document, error) {
	var doc models.Document
	if err := row.Scan(&doc.ID, &doc.Title, &doc.Body, &doc.Checksum, &doc.Source, &doc.CreatedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetMapping returns the mapping entry at position.
func (s *SQLiteStorage) GetMapping(ctx context.Context, position int64) (*models.MappingEntry, error) {
	var e models.MappingEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT position, document_id, created_at FROM vector_mappings WHERE position = ?`, position,
	).Scan(&e.Position, &e.DocumentID, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mapping %d: %w", position, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListMappings returns entries from position onward with their vectors.
func (s *SQLiteStorage) ListMappings(ctx context.Context, from int64) ([]*models.MappingEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, document_id, embedding, created_at
		 FROM vector_mappings WHERE position >= ? ORDER BY position`, from,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.MappingEntry
	for rows.Next() {
		var e models.MappingEntry
		var blob []byte
		if err := rows.Scan(&e.Position, &e.DocumentID, &blob, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.Vector, err = DecodeVector(blob); err != nil {
			return nil, fmt.Errorf("mapping %d: %w", e.Position, err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CountMappings returns the total number of mapping entries.
func (s *SQLiteStorage) CountMappings(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vector_mappings`).Scan(&count)
	return count, err
}

// Describe returns the database path.
func (s *SQLiteStorage) Describe() string {
	return "sqlite:" + s.path
}

// SizeBytes sums the database file and its WAL side files.
func (s *SQLiteStorage) SizeBytes() (int64, error) {
	var total int64
	for _, p := range []string{s.path, s.path + "-wal", s.path + "-shm"} {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

var _ Storage = (*SQLiteStorage)(nil)
