package models

import "strings"

// Query response statuses.
const (
	StatusOK          = "ok"
	StatusOutOfDomain = "out_of_domain"
	StatusNoResults   = "no_results"
)

// QueryRequest is a similarity query restricted to the configured domain.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Validate trims the query and applies top_k defaults. top_k <= 0 becomes defaultTopK;
// values above maxTopK are clamped when maxTopK is positive.
func (q *QueryRequest) Validate(defaultTopK, maxTopK int) error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return ErrEmptyQuery
	}
	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}
	if maxTopK > 0 && q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	return nil
}

// QueryResult is one ranked document. SimilarityScore is the squared L2 distance,
// so smaller values are closer.
type QueryResult struct {
	DocumentID      string  `json:"document_id"`
	Title           string  `json:"title"`
	Abstract        string  `json:"abstract"`
	SimilarityScore float64 `json:"similarity_score"`
	Position        int64   `json:"-"`
}

// QueryResponse is returned for every non-error query, including out-of-domain ones.
type QueryResponse struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Documents []*QueryResult `json:"documents"`
	QueryTime int64          `json:"query_time_ms"`
}
