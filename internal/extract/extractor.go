// Package extract turns uploaded and watched files into document text.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/oncovec/internal/models"
)

// SupportedExtensions lists the extensions with a dedicated extractor.
// Anything else is read as plain text.
var SupportedExtensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".odt", ".rtf", ".xlsx"}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on ext, which includes the
// leading dot. Decoding failures wrap models.ErrExtractionFailure.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(ext) {
	case ".pdf":
		text, err = extractPDF(content)
	case ".docx":
		text, err = extractDOCX(content)
	case ".odt", ".rtf":
		text, err = extractWithCat(content)
	case ".xlsx":
		text, err = extractExcel(content)
	default:
		text, err = extractPlain(content)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", models.ErrExtractionFailure, strings.TrimPrefix(ext, "."), err)
	}
	return text, nil
}

// ExtractDocuments converts a file into document inputs. Spreadsheets with a
// title and abstract header yield one input per row; every other file yields a
// single input titled by its base name.
func (e *Extractor) ExtractDocuments(path string) ([]models.DocumentInput, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractDocumentsBytes(content, filepath.Base(path), path)
}

// ExtractDocumentsBytes is ExtractDocuments for content already in memory.
// name supplies the extension and default title; source is recorded on each input.
func (e *Extractor) ExtractDocumentsBytes(content []byte, name, source string) ([]models.DocumentInput, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".xlsx" {
		records, ok, err := extractExcelRecords(content)
		if err != nil {
			return nil, fmt.Errorf("%w: xlsx: %v", models.ErrExtractionFailure, err)
		}
		if ok {
			for i := range records {
				records[i].Source = source
			}
			return records, nil
		}
	}

	text, err := e.ExtractBytes(content, ext)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: %s contains no text", models.ErrExtractionFailure, name)
	}
	return []models.DocumentInput{{
		Title:  strings.TrimSuffix(name, filepath.Ext(name)),
		Body:   text,
		Source: source,
	}}, nil
}
