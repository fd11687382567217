package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/oncovec/internal/config"
)

// New opens the backend selected by cfg.Driver.
func New(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (Storage, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		return NewSQLiteStorage(cfg.DatabasePath)
	case config.DriverMongo:
		return NewMongoStorage(ctx, cfg.MongoURI, cfg.MongoDatabase,
			WithTransactions(cfg.MongoTransactions),
			WithMongoLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
