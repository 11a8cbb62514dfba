package memo

import "sync/atomic"

// Statistics tracks memoization effectiveness.
type Statistics struct {
	hits   int64
	misses int64
	sets   int64

	size    int64
	maxSize int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{}
}

// Hit records a lookup that found a value.
func (s *Statistics) Hit() { atomic.AddInt64(&s.hits, 1) }

// Miss records a lookup that found nothing.
func (s *Statistics) Miss() { atomic.AddInt64(&s.misses, 1) }

// Set records a store operation.
func (s *Statistics) Set() { atomic.AddInt64(&s.sets, 1) }

// UpdateSize records the current entry count.
func (s *Statistics) UpdateSize(size int64) {
	atomic.StoreInt64(&s.size, size)
	for {
		max := atomic.LoadInt64(&s.maxSize)
		if size <= max || atomic.CompareAndSwapInt64(&s.maxSize, max, size) {
			return
		}
	}
}

// Hits returns the total number of hits.
func (s *Statistics) Hits() int64 { return atomic.LoadInt64(&s.hits) }

// Misses returns the total number of misses.
func (s *Statistics) Misses() int64 { return atomic.LoadInt64(&s.misses) }

// Sets returns the total number of store operations.
func (s *Statistics) Sets() int64 { return atomic.LoadInt64(&s.sets) }

// CurrentSize returns the current entry count.
func (s *Statistics) CurrentSize() int64 { return atomic.LoadInt64(&s.size) }

// MaxSize returns the highest entry count observed.
func (s *Statistics) MaxSize() int64 { return atomic.LoadInt64(&s.maxSize) }

// HitRatio returns hits / (hits + misses), 0 when nothing was looked up.
func (s *Statistics) HitRatio() float64 {
	hits := s.Hits()
	total := hits + s.Misses()
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total)
}

// Summary is a snapshot of all statistics.
type Summary struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Sets        int64   `json:"sets"`
	CurrentSize int64   `json:"current_size"`
	MaxSize     int64   `json:"max_size"`
	HitRatio    float64 `json:"hit_ratio"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() Summary {
	return Summary{
		Hits:        s.Hits(),
		Misses:      s.Misses(),
		Sets:        s.Sets(),
		CurrentSize: s.CurrentSize(),
		MaxSize:     s.MaxSize(),
		HitRatio:    s.HitRatio(),
	}
}
