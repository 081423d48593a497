// Package cache provides the read-through tagged cache used for task list
// views. Values are opaque byte slices (JSON-encoded by the caller); every
// entry derived from one owner's tasks shares that owner's tag so a single
// invalidation call drops all of the owner's cached views after a mutation.
//
// The cache is a disposable projection of the store, never an authority:
// implementations swallow backend failures where they can, and callers fall
// back to the store when they cannot.
package cache

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the fixed lifetime for every cache entry.
const DefaultTTL = 600 * time.Second

// ComputeFn produces the value for a cache key on miss.
type ComputeFn func(ctx context.Context) ([]byte, error)

// TagCache is a read-through cache with tag-based bulk invalidation.
type TagCache interface {
	// GetOrCompute returns the cached value for key on a hit; on a miss it
	// runs compute, stores the result tagged with tags for ttl, and returns
	// it. Backend failures are not surfaced: the computed value is returned
	// and the caching step is best-effort.
	GetOrCompute(ctx context.Context, key string, tags []string, ttl time.Duration, compute ComputeFn) ([]byte, error)

	// Invalidate removes every entry tagged with any of the given tags.
	// Implementations without tag support fall back to deleting one
	// canonical key per tag, accepting bounded staleness for the rest.
	Invalidate(ctx context.Context, tags []string) error
}

// OwnerTag returns the cache tag shared by every entry derived from the
// given owner's tasks.
func OwnerTag(ownerID uuid.UUID) string {
	return fmt.Sprintf("tasks:user:%s", ownerID)
}

// Key builds a deterministic cache key for an owner-scoped operation.
// Params are sorted by name before encoding, so two queries with the same
// parameters always map to the same entry regardless of insertion order.
func Key(ownerID uuid.UUID, kind string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, url.QueryEscape(name)+"="+url.QueryEscape(params[name]))
	}

	return fmt.Sprintf("tasks:user:%s:%s:%s", ownerID, kind, strings.Join(pairs, "&"))
}
