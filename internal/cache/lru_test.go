// Affinity - Match Embedding and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[int](3, time.Minute)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	// a becomes most recent, so b is the eviction victim.
	c.Get("a")
	c.Add("d", 4)

	_, ok := c.Get("b")
	assert.False(t, ok, "b evicted")
	for _, k := range []string{"a", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, k)
	}
	assert.Equal(t, 3, c.Len())
}

func TestLRU_UpdateExisting(t *testing.T) {
	c := NewLRU[string](2, time.Minute)
	c.Add("a", "old")
	c.Add("a", "new")

	v, _ := c.Get("a")
	assert.Equal(t, "new", v)
	assert.Equal(t, 1, c.Len())
}

func TestLRU_Expiry(t *testing.T) {
	clock := newFakeClock()
	c := NewLRU[int](10, time.Minute)
	c.now = clock.Now

	c.Add("a", 1)
	c.AddWithTTL("b", 2, time.Hour)

	clock.Advance(2 * time.Minute)
	_, ok := c.Get("a")
	assert.False(t, ok, "a expired")
	_, ok = c.Get("b")
	assert.True(t, ok, "b has its own TTL")

	c.Add("c", 3)
	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, c.CleanupExpired())
}

func TestLRU_RemovePrefix(t *testing.T) {
	c := NewLRU[int](10, time.Minute)
	c.Add("recs:a", 1)
	c.Add("recs:b", 2)
	c.Add("other", 3)

	assert.Equal(t, 2, c.RemovePrefix("recs:"))
	_, ok := c.Get("other")
	require.True(t, ok, "unrelated key kept")
	assert.True(t, c.Remove("other"))
	assert.False(t, c.Remove("other"), "already removed")
}

func TestLRU_Stats(t *testing.T) {
	clock := newFakeClock()
	c := NewLRU[struct{}](10, time.Minute)
	c.now = clock.Now

	c.Get("msg-1")
	c.Add("msg-1", struct{}{})
	c.Get("msg-1")

	clock.Advance(2 * time.Minute)
	_, ok := c.Get("msg-1")
	assert.False(t, ok, "expired id")

	hits, misses, size := c.Stats()
	assert.Equal(t, []int64{1, 2}, []int64{hits, misses})
	assert.Equal(t, 0, size, "expired entry dropped on read")
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int](100, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", (g*500+i)%150)
				c.Add(key, i)
				c.Get(key)
				c.Remove(key)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 100)
}
