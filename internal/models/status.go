package models

// StatusReport summarizes the stores behind a running instance.
type StatusReport struct {
	Ready          bool     `json:"ready"`
	Documents      int64    `json:"documents"`
	Mappings       int64    `json:"mappings"`
	Vectors        int      `json:"vectors"`
	Dimensions     int      `json:"dimensions"`
	Searches       int64    `json:"searches"`
	Storage        string   `json:"storage"`
	IndexType      string   `json:"index_type"`
	IndexBlob      string   `json:"index_blob"`
	SnapshotBytes  *int64   `json:"snapshot_bytes,omitempty"`
	DiskUsageBytes *int64   `json:"disk_usage_bytes,omitempty"`
	Embedding      string   `json:"embedding"`
	Keywords       []string `json:"domain_keywords,omitempty"`
}
