package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/yaroing/feedback-platform/internal/config"
	"github.com/yaroing/feedback-platform/internal/registry"
	"github.com/yaroing/feedback-platform/internal/storage"
	infralogger "github.com/yaroing/feedback-platform/infrastructure/logger"
	infraredis "github.com/yaroing/feedback-platform/infrastructure/redis"
)

// BlobComponents holds the model blob store. Ping is nil unless the store lives in Redis.
type BlobComponents struct {
	Store registry.BlobStore
	Ping  func(ctx context.Context) error
	close func() error
}

// Close releases the Redis connection, if any.
func (b *BlobComponents) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// SetupBlobStore builds the blob store named by storage.backend. The database backend
// shares db with the repositories.
func SetupBlobStore(cfg *config.Config, db *sqlx.DB, logger infralogger.Logger) (*BlobComponents, error) {
	switch cfg.Storage.Backend {
	case config.BlobBackendMemory:
		logger.Warn("Model blobs are kept in memory and lost on restart")
		return &BlobComponents{Store: storage.NewMemoryBlobStore()}, nil
	case config.BlobBackendDatabase:
		logger.Info("Model blobs stored in the database")
		return &BlobComponents{Store: storage.NewSQLBlobStore(db)}, nil
	case config.BlobBackendRedis:
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Storage.Backend)
	}

	client, err := infraredis.NewClient(infraredis.Config{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	store := storage.NewRedisBlobStore(client, cfg.Redis.KeyPrefix)
	logger.Info("Redis blob store connected",
		infralogger.String("address", cfg.Redis.Address),
		infralogger.String("key_prefix", cfg.Redis.KeyPrefix),
	)

	return &BlobComponents{Store: store, Ping: store.Ping, close: client.Close}, nil
}
