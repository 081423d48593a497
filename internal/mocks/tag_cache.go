package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/mnperrone/tasks-api/internal/cache"
)

// MockTagCache implements cache.TagCache for testing. By default it is a
// pass-through: GetOrCompute always runs the compute function. Set
// GetOrComputeFn to simulate hits or backend failures.
type MockTagCache struct {
	// Custom behavior functions
	GetOrComputeFn func(ctx context.Context, key string, tags []string, ttl time.Duration, compute cache.ComputeFn) ([]byte, error)
	InvalidateFn   func(ctx context.Context, tags []string) error

	// Default response values
	InvalidateErr error

	// Call tracking for verification
	mu                sync.Mutex
	GetOrComputeCount int
	InvalidateCount   int
	Keys              []string
	InvalidatedTags   [][]string
}

var _ cache.TagCache = (*MockTagCache)(nil)

// GetOrCompute implements the cache.TagCache interface
func (m *MockTagCache) GetOrCompute(
	ctx context.Context,
	key string,
	tags []string,
	ttl time.Duration,
	compute cache.ComputeFn,
) ([]byte, error) {
	m.mu.Lock()
	m.GetOrComputeCount++
	m.Keys = append(m.Keys, key)
	m.mu.Unlock()

	if m.GetOrComputeFn != nil {
		return m.GetOrComputeFn(ctx, key, tags, ttl, compute)
	}
	return compute(ctx)
}

// Invalidate implements the cache.TagCache interface
func (m *MockTagCache) Invalidate(ctx context.Context, tags []string) error {
	m.mu.Lock()
	m.InvalidateCount++
	m.InvalidatedTags = append(m.InvalidatedTags, tags)
	m.mu.Unlock()

	if m.InvalidateFn != nil {
		return m.InvalidateFn(ctx, tags)
	}
	return m.InvalidateErr
}

// Invalidations returns a snapshot of the tag sets passed to Invalidate.
func (m *MockTagCache) Invalidations() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.InvalidatedTags))
	copy(out, m.InvalidatedTags)
	return out
}
