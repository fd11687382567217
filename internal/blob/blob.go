// Package blob stores named binary objects such as the serialized vector index.
// Backends are the local filesystem and S3-compatible object storage.
package blob

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hyperjump/oncovec/internal/config"
)

// Store reads and replaces whole named objects. Implementations must be safe for concurrent use.
type Store interface {
	// Open returns a reader for name. A missing object yields an error wrapping os.ErrNotExist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Put replaces name with data. Readers never observe a partially written object.
	Put(ctx context.Context, name string, data []byte) error
	// Remove deletes name; removing a missing object is not an error.
	Remove(ctx context.Context, name string) error
	// Stat reports size and modification time; a missing object wraps os.ErrNotExist.
	Stat(ctx context.Context, name string) (Info, error)
	// Location describes where objects live, for status output.
	Location() string
}

// Info describes a stored object.
type Info struct {
	Size    int64
	ModTime time.Time
}

// New builds the backend selected by cfg.
func New(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	switch cfg.Backend {
	case config.BlobLocal, "":
		return NewLocal(cfg.Dir)
	case config.BlobS3:
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.UsePathStyle
		})
		return NewS3(client, cfg.Bucket, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
}
