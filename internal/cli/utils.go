// Package cli provides output formatting and an HTTP client for the oncovec command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/oncovec/internal/models"
	"github.com/hyperjump/oncovec/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const abstractPreviewLen = 240

// WriteQueryResponse writes a query response to w in the given format.
func WriteQueryResponse(w io.Writer, response *models.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	switch response.Status {
	case models.StatusOutOfDomain, models.StatusNoResults:
		fmt.Fprintf(w, "%s\n", response.Message)
		return nil
	}
	fmt.Fprintf(w, "\nFound %d documents in %dms (lower score is closer)\n\n", len(response.Documents), response.QueryTime)
	for i, doc := range response.Documents {
		fmt.Fprintln(w, strings.Repeat("─", 57))
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, doc.SimilarityScore)
		if doc.DocumentID != "" {
			fmt.Fprintf(w, "ID: %s\n", doc.DocumentID)
		}
		if doc.Title != "" {
			fmt.Fprintf(w, "Title: %s\n", doc.Title)
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(doc.Abstract, abstractPreviewLen))
	}
	return nil
}

// WriteStatus writes a status report to w in the given format.
func WriteStatus(w io.Writer, report *models.StatusReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "ready:              %t\n", report.Ready)
	fmt.Fprintf(w, "documents:          %d   # stored documents\n", report.Documents)
	fmt.Fprintf(w, "mappings:           %d   # position -> document entries\n", report.Mappings)
	fmt.Fprintf(w, "vectors:            %d   # vectors in memory\n", report.Vectors)
	fmt.Fprintf(w, "dimensions:         %d\n", report.Dimensions)
	fmt.Fprintf(w, "searches:           %d\n", report.Searches)
	if report.SnapshotBytes != nil {
		fmt.Fprintf(w, "snapshot_bytes:     %d\n", *report.SnapshotBytes)
	}
	if report.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d\n", *report.DiskUsageBytes)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# configuration")
	fmt.Fprintf(w, "storage:            %s\n", report.Storage)
	fmt.Fprintf(w, "index_type:         %s\n", report.IndexType)
	fmt.Fprintf(w, "index_blob:         %s\n", report.IndexBlob)
	fmt.Fprintf(w, "embedding:          %s\n", report.Embedding)
	if len(report.Keywords) > 0 {
		fmt.Fprintf(w, "domain_keywords:    %s\n", strings.Join(report.Keywords, ", "))
	}
	return nil
}

// WriteDocumentIDs writes the ids of newly added documents, one per line.
func WriteDocumentIDs(w io.Writer, ids []string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string][]string{"document_ids": ids})
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No new documents (duplicates skipped)")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintf(w, "Document added: %s\n", id)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
