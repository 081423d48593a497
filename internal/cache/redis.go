package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTagCache implements TagCache on Redis. Values are stored as plain
// keys with TTL; each tag keeps a reverse index (a Redis set of member
// keys) so Invalidate can drop every entry under a tag in one round trip
// per tag.
type RedisTagCache struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisTagCache creates a tag-capable cache on the given Redis client.
// If logger is nil, a default logger will be used.
func NewRedisTagCache(client *redis.Client, prefix string, logger *slog.Logger) *RedisTagCache {
	if client == nil {
		panic("redis client cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &RedisTagCache{
		client: client,
		prefix: prefix,
		logger: logger.With(slog.String("component", "redis_cache")),
	}
}

// Ensure RedisTagCache implements TagCache
var _ TagCache = (*RedisTagCache)(nil)

// GetOrCompute implements TagCache.GetOrCompute
func (c *RedisTagCache) GetOrCompute(
	ctx context.Context,
	key string,
	tags []string,
	ttl time.Duration,
	compute ComputeFn,
) ([]byte, error) {
	fullKey := c.prefix + key

	data, err := c.client.Get(ctx, fullKey).Bytes()
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, redis.Nil) {
		// Backend trouble is a miss, not a failure.
		c.logger.Warn("cache get failed, computing directly",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}

	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, fullKey, value, ttl)
	for _, tag := range tags {
		tagKey := c.tagKey(tag)
		pipe.SAdd(ctx, tagKey, fullKey)
		// The reverse index only needs to outlive its newest member.
		pipe.Expire(ctx, tagKey, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("cache store failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}

	return value, nil
}

// Invalidate implements TagCache.Invalidate
// For each tag it deletes every member key of the tag's reverse index,
// then the index itself.
func (c *RedisTagCache) Invalidate(ctx context.Context, tags []string) error {
	for _, tag := range tags {
		tagKey := c.tagKey(tag)

		keys, err := c.client.SMembers(ctx, tagKey).Result()
		if err != nil {
			return err
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if err := c.client.Del(ctx, tagKey).Err(); err != nil {
			return err
		}

		c.logger.Debug("invalidated cache tag",
			slog.String("tag", tag),
			slog.Int("entries", len(keys)))
	}
	return nil
}

func (c *RedisTagCache) tagKey(tag string) string {
	return c.prefix + "tag:" + tag
}

// Ping checks if the Redis connection is healthy.
func (c *RedisTagCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
