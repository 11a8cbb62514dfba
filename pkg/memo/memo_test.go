package memo

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreGetSet(t *testing.T) {
	s := NewStore[int]()

	_, ok := s.Get("a")
	assert.False(t, ok)

	assert.True(t, s.Set("a", 1))
	assert.False(t, s.Set("a", 2))

	v, ok := s.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, s.Size())
}

func TestStoreStatistics(t *testing.T) {
	s := NewStore[string]()

	s.Get("missing")
	s.Set("k", "v")
	s.Get("k")
	s.Get("k")

	stats := s.Stats().Summary()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(1), stats.CurrentSize)
	assert.InDelta(t, 2.0/3.0, stats.HitRatio, 1e-9)
}

func TestStoreClear(t *testing.T) {
	s := NewStore[int]()
	s.Set("a", 1)
	s.Set("b", 2)
	assert.Len(t, s.Keys(), 2)

	s.Clear()
	assert.Equal(t, 0, s.Size())
	assert.Equal(t, int64(2), s.Stats().MaxSize())
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore[int]()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := string(rune('a' + j%26))
				s.Set(key, n)
				s.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 26, s.Size())
}
