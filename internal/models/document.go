// Package models defines the records, requests, and errors shared across oncovec.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Document is a stored abstract or extracted text. Documents are immutable once created.
type Document struct {
	ID        string    `json:"id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Body      string    `json:"body" bson:"body"`
	Checksum  string    `json:"checksum" bson:"checksum"`
	Source    string    `json:"source,omitempty" bson:"source,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Text returns the string that is embedded and domain-checked for the document.
func (d *Document) Text() string {
	return EmbeddingText(d.Title, d.Body)
}

// MappingEntry links a vector index position to a document. Vector holds the
// encoded embedding so the mapping table doubles as the index's replay log.
type MappingEntry struct {
	Position   int64     `json:"position" bson:"position"`
	DocumentID string    `json:"document_id" bson:"document_id"`
	Vector     []float32 `json:"-" bson:"-"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// DocumentInput is the ingestion payload. Content is accepted as an alias for Body.
type DocumentInput struct {
	Title   string `json:"title,omitempty"`
	Body    string `json:"body,omitempty"`
	Content string `json:"content,omitempty"`
	Source  string `json:"source,omitempty"`
}

// Normalize trims fields and folds Content into Body.
func (in *DocumentInput) Normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	if strings.TrimSpace(in.Body) == "" {
		in.Body = in.Content
	}
	in.Content = ""
	in.Body = strings.TrimSpace(in.Body)
	if in.Body == "" {
		return ErrEmptyDocument
	}
	return nil
}

// EmbeddingText joins title and body the way both ingestion and filtering see them.
func EmbeddingText(title, body string) string {
	if title == "" {
		return body
	}
	return title + "\n" + body
}

// Checksum returns the hex sha256 of the embedding text, used for duplicate detection.
func Checksum(title, body string) string {
	sum := sha256.Sum256([]byte(EmbeddingText(title, body)))
	return hex.EncodeToString(sum[:])
}
