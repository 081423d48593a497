package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mnperrone/tasks-api/internal/cache"
	"github.com/mnperrone/tasks-api/internal/config"
)

// setupTaskCache builds the task view cache. With a Redis address
// configured it connects and uses Redis set-based tag invalidation;
// without one it falls back to an in-process store whose tag index lives
// in process memory.
func setupTaskCache(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (cache.TagCache, error) {
	if cfg.Redis.Addr == "" {
		logger.Warn("No Redis address configured, using in-process task cache")
		return cache.NewLocalTagCache(cache.NewMemoryStore(), logger), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	redisCache := cache.NewRedisTagCache(client, "tasks-api:", logger)
	if err := redisCache.Ping(pingCtx); err != nil {
		// A dead cache backend should not block startup; reads fall back
		// to the store until Redis comes back.
		logger.Warn("Redis ping failed, continuing with degraded cache",
			"error", err, "addr", cfg.Redis.Addr)
	} else {
		logger.Info("Redis task cache connected", "addr", cfg.Redis.Addr)
	}

	return redisCache, nil
}
