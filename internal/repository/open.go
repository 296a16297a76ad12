package repository

import (
	"context"
	"fmt"

	"github.com/arcanetable/encounter-server/internal/config"
	"go.uber.org/zap"
)

// Open returns the collection store selected by storage.driver. The caller
// owns the store and must Close it.
func Open(ctx context.Context, storage config.StorageConfig, database config.DatabaseConfig, logger *zap.Logger) (CollectionStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch storage.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage; encounters are lost on restart")
		return NewMemoryStore(), nil
	case config.DriverFile, "":
		store, err := NewFileStore(storage.DataDir)
		if err != nil {
			return nil, err
		}
		logger.Info("file storage initialized", zap.String("data_dir", store.Dir()))
		return store, nil
	case config.DriverSQLite:
		store, err := OpenSQLite(storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("sqlite storage initialized", zap.String("path", storage.SQLitePath))
		return store, nil
	case config.DriverPostgres:
		db, err := NewDB(ctx, database, logger)
		if err != nil {
			return nil, err
		}
		stats := db.Stat()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)
		store, err := NewPostgresStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", storage.Driver)
	}
}
