package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// LoadFunc produces a fresh value for a TTL cache.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// TTL holds one value that is reloaded once it is older than the freshness
// window. Concurrent callers that find the value stale share a single load.
//
// A failed load discards any held value: the next call loads again and a
// stale value is never returned in place of an error.
type TTL[T any] struct {
	ttl   time.Duration
	clock Clock
	load  LoadFunc[T]
	group singleflight.Group

	mu        sync.RWMutex
	value     T
	valid     bool
	version   uint64
	fetchedAt time.Time
}

// NewTTL creates a TTL cache. A nil clock uses the system clock.
func NewTTL[T any](ttl time.Duration, clock Clock, load LoadFunc[T]) *TTL[T] {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TTL[T]{
		ttl:   ttl,
		clock: clock,
		load:  load,
	}
}

// Entry is a cached value with its version and fetch time. Version increases
// by one on every successful load.
type Entry[T any] struct {
	Value     T
	Version   uint64
	FetchedAt time.Time
	// Hit is true when the value was served without loading.
	Hit bool
}

// Get returns the cached value, loading it first if it is missing or stale.
func (c *TTL[T]) Get(ctx context.Context) (Entry[T], error) {
	if e, ok := c.fresh(); ok {
		e.Hit = true
		return e, nil
	}

	v, err, _ := c.group.Do("load", func() (any, error) {
		// Another flight may have finished between fresh() and Do.
		if e, ok := c.fresh(); ok {
			return e, nil
		}

		value, err := c.load(context.WithoutCancel(ctx))
		if err != nil {
			c.mu.Lock()
			var zero T
			c.value = zero
			c.valid = false
			c.mu.Unlock()
			return Entry[T]{}, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		c.value = value
		c.valid = true
		c.version++
		c.fetchedAt = c.clock.Now()
		return Entry[T]{Value: c.value, Version: c.version, FetchedAt: c.fetchedAt}, nil
	})
	if err != nil {
		return Entry[T]{}, err
	}
	return v.(Entry[T]), nil
}

// Invalidate drops the held value so the next Get loads.
func (c *TTL[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.value = zero
	c.valid = false
}

// Version returns the version of the last successful load, 0 if none.
func (c *TTL[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

func (c *TTL[T]) fresh() (Entry[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid {
		return Entry[T]{}, false
	}
	if c.clock.Now().Sub(c.fetchedAt) >= c.ttl {
		return Entry[T]{}, false
	}
	return Entry[T]{Value: c.value, Version: c.version, FetchedAt: c.fetchedAt}, true
}
