// Package lookup provides a bounded, expiring memo for id-keyed lookups.
// Callers own the cache instance; nothing here is process-global.
package lookup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/campusbeacon/beacon/internal/model"
)

// Loader fetches a value on a cache miss.
type Loader[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Cache is an LRU with a per-entry TTL. Concurrent misses on the same key
// share one load. Keys must render distinctly with %#v, which holds for the
// integer and string ids used here.
type Cache[K comparable, V any] struct {
	lru   *expirable.LRU[K, V]
	group singleflight.Group

	mu    sync.Mutex
	epoch uint64
	gens  map[K]uint64
}

// New builds a cache holding at most size entries for ttl each. Non-positive
// arguments fall back to the package defaults.
func New[K comparable, V any](size int, ttl time.Duration) *Cache[K, V] {
	if size <= 0 {
		size = model.DefaultLookupSize
	}
	if ttl <= 0 {
		ttl = model.DefaultLookupTTL
	}
	return &Cache[K, V]{
		lru:  expirable.NewLRU[K, V](size, nil, ttl),
		gens: make(map[K]uint64),
	}
}

// Get returns the cached value for key.
func (c *Cache[K, V]) Get(key K) (V, bool) { return c.lru.Get(key) }

// Add stores value under key.
func (c *Cache[K, V]) Add(key K, value V) { c.lru.Add(key, value) }

// Remove drops key. A load for key already in flight will not store its
// result.
func (c *Cache[K, V]) Remove(key K) {
	c.mu.Lock()
	c.gens[key]++
	c.mu.Unlock()
	c.lru.Remove(key)
}

// Purge drops every entry and discards the results of loads in flight.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	c.epoch++
	clear(c.gens)
	c.mu.Unlock()
	c.lru.Purge()
}

// Len reports the number of live entries.
func (c *Cache[K, V]) Len() int { return c.lru.Len() }

// stamp identifies the invalidation state of key.
type stamp struct{ epoch, gen uint64 }

func (c *Cache[K, V]) stamp(key K) stamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return stamp{epoch: c.epoch, gen: c.gens[key]}
}

// GetOrLoad returns the cached value or runs load and stores its result.
// Failed loads are not cached, nor are loads overtaken by Remove or Purge.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, load Loader[K, V]) (V, error) {
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}
	res, err, _ := c.group.Do(fmt.Sprintf("%#v", key), func() (any, error) {
		before := c.stamp(key)
		v, err := load(ctx, key)
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		if before == (stamp{epoch: c.epoch, gen: c.gens[key]}) {
			c.lru.Add(key, v)
		}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}
