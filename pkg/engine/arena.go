package engine

import (
	"container/list"
	"sync"
)

// Arena holds the most recently used runners keyed by frame content and
// model set. Runners are built outside the lock.
type Arena struct {
	mu    sync.Mutex
	size  int
	order *list.List // front is most recent
	items map[string]*list.Element
}

type arenaEntry struct {
	key    string
	runner *Runner
}

// NewArena returns an arena holding at most size runners (minimum 1).
func NewArena(size int) *Arena {
	if size < 1 {
		size = 1
	}
	return &Arena{
		size:  size,
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

// Get returns the runner stored under key, building and storing it with
// build when absent. hit reports whether the runner already existed.
func (a *Arena) Get(key string, build func() *Runner) (r *Runner, hit bool) {
	a.mu.Lock()
	if el, ok := a.items[key]; ok {
		a.order.MoveToFront(el)
		a.mu.Unlock()
		return el.Value.(*arenaEntry).runner, true
	}
	a.mu.Unlock()

	r = build()

	a.mu.Lock()
	defer a.mu.Unlock()
	// Another caller may have stored one meanwhile; keep theirs.
	if el, ok := a.items[key]; ok {
		a.order.MoveToFront(el)
		return el.Value.(*arenaEntry).runner, true
	}
	a.items[key] = a.order.PushFront(&arenaEntry{key: key, runner: r})
	for a.order.Len() > a.size {
		oldest := a.order.Back()
		a.order.Remove(oldest)
		delete(a.items, oldest.Value.(*arenaEntry).key)
	}
	return r, false
}

// Remove drops the runner stored under key.
func (a *Arena) Remove(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if el, ok := a.items[key]; ok {
		a.order.Remove(el)
		delete(a.items, key)
	}
}

// Len returns the number of stored runners.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.order.Len()
}
