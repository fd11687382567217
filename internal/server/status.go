package server

import (
	"context"
	"fmt"

	"github.com/hyperjump/oncovec/internal/blob"
	"github.com/hyperjump/oncovec/internal/config"
	"github.com/hyperjump/oncovec/internal/domain"
	"github.com/hyperjump/oncovec/internal/models"
	"github.com/hyperjump/oncovec/internal/storage"
	"github.com/hyperjump/oncovec/internal/vector"
)

// BuildStatus collects counts and backend details. Snapshot and disk sizes are
// omitted when the backend cannot report them.
func BuildStatus(
	ctx context.Context,
	store *vector.Store,
	st storage.Storage,
	blobs blob.Store,
	filter *domain.Filter,
	cfg *config.Config,
) (*models.StatusReport, error) {
	docs, err := st.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	mappings, err := st.CountMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("count mappings: %w", err)
	}
	report := &models.StatusReport{
		Ready:      store.Ready(),
		Documents:  docs,
		Mappings:   mappings,
		Vectors:    store.Count(),
		Dimensions: store.Dimensions(),
		Searches:   store.Searches(),
		Storage:    st.Describe(),
		IndexType:  string(store.IndexType()),
		IndexBlob:  blobs.Location() + "/" + cfg.Storage.IndexBlob,
		Embedding:  cfg.Embedding.Provider + ":" + cfg.Embedding.Model,
	}
	if filter != nil {
		report.Keywords = filter.Keywords()
	}
	if info, err := blobs.Stat(ctx, cfg.Storage.IndexBlob); err == nil {
		size := info.Size
		report.SnapshotBytes = &size
	}
	if sizer, ok := st.(storage.Sizer); ok {
		if size, err := sizer.SizeBytes(); err == nil {
			if report.SnapshotBytes != nil && cfg.Storage.Blob.Backend != config.BlobS3 {
				size += *report.SnapshotBytes
			}
			report.DiskUsageBytes = &size
		}
	}
	return report, nil
}
