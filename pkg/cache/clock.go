// Package cache provides the explicit caches behind the forecast pipeline:
// a freshness-windowed, single-flight TTL cache for remote fetches and a
// version-keyed memo for values derived from them.
//
// Both caches take their notion of time from a Clock so that staleness can be
// driven deterministically in tests.
package cache

import (
	"sync"
	"time"
)

// Clock is the invalidation clock used by TTL.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock returns a ManualClock set to start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
