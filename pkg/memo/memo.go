// Package memo provides a generic, thread-safe memoization store for
// computed analysis results. There is no eviction: result sets grow
// monotonically for the life of their container, and statistics are always
// tracked so cache behavior stays observable.
package memo

import "sync"

// Store memoizes values of type V under string keys.
type Store[V any] struct {
	mu    sync.RWMutex
	items map[string]V
	stats *Statistics
}

// NewStore creates an empty memoization store.
func NewStore[V any]() *Store[V] {
	return &Store[V]{
		items: make(map[string]V),
		stats: NewStatistics(),
	}
}

// Get retrieves a value by key, recording a hit or miss.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	value, exists := s.items[key]
	s.mu.RUnlock()

	if exists {
		s.stats.Hit()
	} else {
		s.stats.Miss()
	}
	return value, exists
}

// Set stores a value. Returns true if the entry is new.
func (s *Store[V]) Set(key string, value V) bool {
	s.mu.Lock()
	_, exists := s.items[key]
	s.items[key] = value
	size := len(s.items)
	s.mu.Unlock()

	s.stats.Set()
	s.stats.UpdateSize(int64(size))
	return !exists
}

// Clear removes all entries.
func (s *Store[V]) Clear() {
	s.mu.Lock()
	s.items = make(map[string]V)
	s.mu.Unlock()
	s.stats.UpdateSize(0)
}

// Size returns the current number of entries.
func (s *Store[V]) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Keys returns all keys currently stored.
func (s *Store[V]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.items))
	for key := range s.items {
		keys = append(keys, key)
	}
	return keys
}

// Stats returns the store's statistics tracker.
func (s *Store[V]) Stats() *Statistics {
	return s.stats
}
