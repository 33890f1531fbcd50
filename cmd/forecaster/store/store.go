// Package store provides result store initialization for the forecaster.
//
// Two backends are supported:
//
//   - memory: process-local, lost on restart (default).
//   - redis: shared across replicas so a forecast computed by one instance
//     is served by all of them.
//
// Initialization is fail-fast: an unreachable Redis exits the process.
package store

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/HatiCode/demandcast/cmd/forecaster/config"
	"github.com/HatiCode/demandcast/pkg/storage"
)

// New creates the result store selected by cfg.Storage. The returned closer
// releases backend connections and is never nil.
func New(cfg *config.Config, logger *slog.Logger) (storage.Store, func() error) {
	switch cfg.Storage {
	case "redis":
		logger.Info("initializing redis storage",
			"addr", cfg.RedisAddr,
			"db", cfg.RedisDB,
			"ttl", cfg.ResultTTL,
		)
		redisStore, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ResultTTL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisStore.Ping(ctx); err != nil {
			logger.Error("redis health check failed", "error", err)
			os.Exit(1)
		}
		logger.Info("redis storage initialized successfully")

		return redisStore, redisStore.Close
	case "memory":
		logger.Info("initializing in-memory storage", "ttl", cfg.ResultTTL)
		return storage.NewMemoryStore(cfg.ResultTTL, nil), func() error { return nil }

	default:
		logger.Error("invalid storage type", "storage", cfg.Storage)
		os.Exit(1)
	}

	return nil, nil
}
