package storage

import (
	"context"
	"sync"
	"time"

	"github.com/HatiCode/demandcast/pkg/cache"
)

// MemoryStore keeps snapshots in process memory. Entries older than the TTL
// are treated as absent and dropped on access or on the next Put.
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	clock   cache.Clock
	entries map[string]memoryEntry
}

type memoryEntry struct {
	snapshot Snapshot
	storedAt time.Time
}

// NewMemoryStore returns an empty store. ttl <= 0 keeps entries forever;
// a nil clock uses the system clock.
func NewMemoryStore(ttl time.Duration, clock cache.Clock) *MemoryStore {
	if clock == nil {
		clock = cache.SystemClock{}
	}
	return &MemoryStore{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]memoryEntry),
	}
}

// Put stores s under s.Key, replacing any previous snapshot. Expired entries
// under other keys are swept on the way.
func (m *MemoryStore) Put(_ context.Context, s Snapshot) error {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ttl > 0 {
		for k, e := range m.entries {
			if now.Sub(e.storedAt) >= m.ttl {
				delete(m.entries, k)
			}
		}
	}
	m.entries[s.Key] = memoryEntry{snapshot: s, storedAt: now}
	return nil
}

// Get returns the snapshot stored under key.
func (m *MemoryStore) Get(_ context.Context, key string) (Snapshot, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return Snapshot{}, false, nil
	}

	if m.ttl > 0 && m.clock.Now().Sub(e.storedAt) >= m.ttl {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur.storedAt.Equal(e.storedAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return Snapshot{}, false, nil
	}
	return e.snapshot, true, nil
}

// Len returns the number of held entries, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
