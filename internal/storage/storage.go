// Package storage provides the concrete record backends behind the
// storage.Storage contract.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/novel-engine/internal/config"
	"github.com/jwebster45206/novel-engine/pkg/storage"
)

// Startup retry policy for the redis backend.
var (
	redisConnectRetries = 5
	redisRetryDelay     = time.Second
)

// New builds the backend selected by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return storage.NewMockStorage(), nil
	case config.BackendFile:
		return NewFileStorage(cfg.DataDir, cfg.StorageCompress, logger)
	case config.BackendSQLite:
		return NewSQLiteStorage(ctx, cfg.SQLitePath, logger)
	case config.BackendRedis:
		r, err := NewRedisStorage(cfg.RedisURL, logger)
		if err != nil {
			return nil, err
		}
		if err := r.WaitForConnection(ctx, redisConnectRetries, redisRetryDelay); err != nil {
			r.Close()
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
