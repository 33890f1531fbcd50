package cache

import (
	"cmp"
	"sync"
)

// Memo keeps the value computed for the newest key. Keys only move forward:
// a greater key replaces the held value, while the same or an older key
// returns the held value without recomputing.
type Memo[K cmp.Ordered, V any] struct {
	mu    sync.Mutex
	key   K
	value V
	valid bool
}

// Get returns the value for key, computing it only if key is newer than the
// held key. Computations are serialized. A failed computation leaves the memo
// empty.
func (m *Memo[K, V]) Get(key K, compute func() (V, error)) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && key <= m.key {
		return m.value, nil
	}

	v, err := compute()
	if err != nil {
		var zero V
		m.value = zero
		m.valid = false
		return zero, err
	}
	m.key = key
	m.value = v
	m.valid = true
	return v, nil
}

// Reset drops the held value.
func (m *Memo[K, V]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero V
	m.value = zero
	m.valid = false
}
