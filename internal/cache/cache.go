// Package cache implements the TTL-bounded entity caches that short-circuit
// redundant reads to the remote backend.
//
// Every cache entry carries a version stamp. A reader that snapshots the
// version before a slow fetch can hand the result back with SetVersioned,
// which discards it when an invalidation overtook the fetch. Without the
// stamp, a stale completion could resurrect data a mutation just removed.
package cache

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	hits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entity_cache_hits_total",
			Help: "How many reads were served from the entity cache, partitioned by entity.",
		},
		[]string{"entity"},
	)
	misses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entity_cache_misses_total",
			Help: "How many reads had to go to the remote store, partitioned by entity.",
		},
		[]string{"entity"},
	)
)

// Metrics returns the collectors of this package for registration.
func Metrics() []prometheus.Collector {
	return []prometheus.Collector{hits, misses}
}

// Cache is a single-value TTL cache for one entity collection.
type Cache[T any] struct {
	mu sync.Mutex

	name  string
	ttl   time.Duration
	clock func() time.Time

	value     T
	ok        bool
	fetchedAt time.Time
	version   uint64
}

// New returns a cache for the named entity. A nil clock uses time.Now.
func New[T any](name string, ttl time.Duration, clock func() time.Time) *Cache[T] {
	if clock == nil {
		clock = time.Now
	}

	return &Cache[T]{
		name:  name,
		ttl:   ttl,
		clock: clock,
	}
}

// Get returns the cached value if one is present and younger than the TTL.
func (c *Cache[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ok || c.clock().Sub(c.fetchedAt) >= c.ttl {
		var zero T
		misses.WithLabelValues(c.name).Inc()
		return zero, false
	}

	hits.WithLabelValues(c.name).Inc()
	return c.value, true
}

// Last returns the most recent value regardless of age. It backs the
// stale-fallback read path: serving old data beats serving an error, but only
// when data exists at all.
func (c *Cache[T]) Last() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.value, c.ok
}

// Set stores a fresh value.
func (c *Cache[T]) Set(value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store(value)
}

// Version returns the current version stamp. Snapshot it before starting a
// fetch whose result will be handed to SetVersioned.
func (c *Cache[T]) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.version
}

// SetVersioned stores value only if no invalidation happened since the
// version stamp was taken. It reports whether the value was stored.
func (c *Cache[T]) SetVersioned(version uint64, value T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if version != c.version {
		return false
	}

	c.store(value)
	return true
}

// Invalidate drops the cached value and bumps the version so that in-flight
// fetches started before the invalidation cannot repopulate the cache.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	c.value = zero
	c.ok = false
	c.version++
}

func (c *Cache[T]) store(value T) {
	c.value = value
	c.ok = true
	c.fetchedAt = c.clock()
}
