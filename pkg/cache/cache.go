// Package cache is the role-scoped read cache between the console and the
// CloudAPI. Keys embed the active role and the capability fingerprint, so a
// role switch can never serve data that was fetched under a different
// privilege level. Concurrent fetches for the same key are deduplicated.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// ErrNilLoader is returned when Fetch is called without a loader.
var ErrNilLoader = errors.New("cache: nil loader")

// Key identifies one cached query. Resource is the logical resource name
// (e.g. "organizations"); Params disambiguates query parameters within a
// resource.
type Key struct {
	Resource              string
	ActiveRole            string
	CapabilityFingerprint string
	Params                string
}

// String renders the key in the form resource|role|fingerprint|params.
func (k Key) String() string {
	return k.Resource + "|" + k.ActiveRole + "|" + k.CapabilityFingerprint + "|" + k.Params
}

// Loader fetches the value for a key on a cache miss.
type Loader func(ctx context.Context) (any, error)

// QueryCache is an expirable LRU fronted by a singleflight group.
type QueryCache struct {
	store *lru.LRU[string, any]
	group singleflight.Group

	mu         sync.Mutex
	generation uint64

	hits   uint64
	misses uint64
}

// New creates a cache holding up to maxEntries values for at most ttl each.
func New(maxEntries int, ttl time.Duration) *QueryCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &QueryCache{
		store: lru.NewLRU[string, any](maxEntries, nil, ttl),
	}
}

// Fetch returns the cached value for key, or runs loader to populate it.
// Concurrent calls for the same key share one loader execution. Loader
// errors are not cached.
func (c *QueryCache) Fetch(ctx context.Context, key Key, loader Loader) (any, error) {
	if loader == nil {
		return nil, ErrNilLoader
	}

	keyStr := key.String()
	if value, ok := c.store.Get(keyStr); ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return value, nil
	}

	value, err, _ := c.group.Do(keyStr, func() (any, error) {
		// Re-check under the flight: a concurrent caller may have filled
		// the entry between the miss and the flight starting.
		if cached, ok := c.store.Get(keyStr); ok {
			return cached, nil
		}
		loaded, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		c.store.Add(keyStr, loaded)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return value, nil
}

// InvalidateResource drops every cached entry for the named resource, across
// all roles and parameter sets. Mutations call this for the resources they
// touch.
func (c *QueryCache) InvalidateResource(resource string) {
	prefix := resource + "|"
	for _, keyStr := range c.store.Keys() {
		if strings.HasPrefix(keyStr, prefix) {
			c.store.Remove(keyStr)
		}
	}
}

// Purge drops everything.
func (c *QueryCache) Purge() {
	c.store.Purge()
}

// SyncGeneration purges the cache when the capability generation has moved
// since the last call (role switch, operating-org change, teardown). It
// returns true when a purge happened.
func (c *QueryCache) SyncGeneration(generation uint64) bool {
	c.mu.Lock()
	changed := generation != c.generation
	c.generation = generation
	c.mu.Unlock()

	if changed {
		c.store.Purge()
	}
	return changed
}

// Stats returns hit/miss counters and the current entry count.
func (c *QueryCache) Stats() (hits, misses uint64, entries int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.store.Len()
}
