package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheSetGet(t *testing.T) {
	c := New[string, int](time.Minute)

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	c := New[string, string](time.Minute, WithClock[string, string](func() time.Time { return clock() }))

	c.Set("k", "v")
	_, ok := c.Get("k")
	assert.True(t, ok)

	// Advance past the TTL.
	now = now.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok, "expired entry should be gone")
	assert.Equal(t, 0, c.Len())
}

func TestCacheRefreshResetsExpiry(t *testing.T) {
	now := time.Now()
	c := New[string, string](time.Minute, WithClock[string, string](func() time.Time { return now }))

	c.Set("k", "v1")
	now = now.Add(50 * time.Second)
	c.Set("k", "v2")
	now = now.Add(30 * time.Second)

	v, ok := c.Get("k")
	assert.True(t, ok, "refreshed entry should still be fresh")
	assert.Equal(t, "v2", v)
}

func TestCacheZeroTTLNeverExpires(t *testing.T) {
	now := time.Now()
	c := New[string, string](0, WithClock[string, string](func() time.Time { return now }))

	c.Set("k", "v")
	now = now.Add(24 * time.Hour)

	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestCacheDeleteAndPurge(t *testing.T) {
	c := New[string, int](time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New[int, int](time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			c.Set(n%10, n)
		}(i)
		go func(n int) {
			defer wg.Done()
			c.Get(n % 10)
		}(i)
	}
	wg.Wait()
}
