package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// KV is the minimal key-value surface the local cache runs on. It has
// no notion of tags.
type KV interface {
	// Get returns the value for key and whether it was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// LocalTagCache implements TagCache over a plain KV store by holding the
// tag-to-key index in process memory. Invalidate deletes every key this
// instance stored under a tag, so invalidation is complete when the KV is
// also in-process. Entries written by other processes are not indexed and
// survive until their TTL expires.
type LocalTagCache struct {
	kv     KV
	logger *slog.Logger

	mu   sync.Mutex
	tags map[string]map[string]struct{}
}

// NewLocalTagCache creates a tag cache over the given KV store. If logger
// is nil, a default logger will be used.
func NewLocalTagCache(kv KV, logger *slog.Logger) *LocalTagCache {
	if kv == nil {
		panic("kv cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &LocalTagCache{
		kv:     kv,
		logger: logger.With(slog.String("component", "local_tag_cache")),
		tags:   make(map[string]map[string]struct{}),
	}
}

// Ensure LocalTagCache implements TagCache
var _ TagCache = (*LocalTagCache)(nil)

// GetOrCompute implements TagCache.GetOrCompute.
func (c *LocalTagCache) GetOrCompute(
	ctx context.Context,
	key string,
	tags []string,
	ttl time.Duration,
	compute ComputeFn,
) ([]byte, error) {
	value, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache get failed, computing directly",
			slog.String("key", key),
			slog.String("error", err.Error()))
	} else if ok {
		return value, nil
	}

	value, err = compute(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.kv.Set(ctx, key, value, ttl); err != nil {
		c.logger.Warn("cache store failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return value, nil
	}

	c.index(key, tags)

	return value, nil
}

// Invalidate implements TagCache.Invalidate by deleting every key indexed
// under each tag, plus the tag string itself as a key.
func (c *LocalTagCache) Invalidate(ctx context.Context, tags []string) error {
	for _, tag := range tags {
		c.mu.Lock()
		keys := make([]string, 0, len(c.tags[tag])+1)
		for key := range c.tags[tag] {
			keys = append(keys, key)
		}
		delete(c.tags, tag)
		c.mu.Unlock()

		keys = append(keys, tag)
		for _, key := range keys {
			if err := c.kv.Delete(ctx, key); err != nil {
				return err
			}
		}
	}
	return nil
}

// index records key under each tag. Index entries for expired keys linger
// until the tag is next invalidated; deleting an absent key is harmless.
func (c *LocalTagCache) index(key string, tags []string) {
	if len(tags) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tag := range tags {
		keys, ok := c.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
}
