package cache

import (
	"sync"
	"time"
)

// Entry is a memoized value with its bookkeeping.
type Entry[V any] struct {
	Value     V
	CreatedAt time.Time
	Hits      int
}

// Memo is an in-memory memo table keyed by K.
type Memo[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*Entry[V]
	misses  int
}

// New creates an empty Memo.
func New[K comparable, V any]() *Memo[K, V] {
	return &Memo[K, V]{entries: make(map[K]*Entry[V])}
}

// Get retrieves a memoized value. Returns the zero value and false on miss.
func (m *Memo[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		m.misses++
		var zero V
		return zero, false
	}
	e.Hits++
	return e.Value, true
}

// Put stores a value. An existing entry for key is left untouched, so the
// first stored value stays authoritative for the memo's lifetime.
func (m *Memo[K, V]) Put(key K, value V) V {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		return e.Value
	}
	m.entries[key] = &Entry[V]{Value: value, CreatedAt: time.Now()}
	return value
}

// GetOrLoad returns the memoized value for key, calling load on a miss and
// memoizing its result. load runs with the memo unlocked; if two callers race
// on the same key the first Put wins and both receive that value.
func (m *Memo[K, V]) GetOrLoad(key K, load func() V) V {
	if v, ok := m.Get(key); ok {
		return v
	}
	return m.Put(key, load())
}

// Stats summarizes memo usage.
type Stats struct {
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
}

// GetStats returns the current memo statistics.
func (m *Memo[K, V]) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{Entries: len(m.entries), Misses: m.misses}
	for _, e := range m.entries {
		s.Hits += e.Hits
	}
	return s
}

// Len returns the number of memoized keys.
func (m *Memo[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
