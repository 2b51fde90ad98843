package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	_, ok := c.Get("a")
	require.True(t, ok)
	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestLRUCache_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute).WithClock(clock.now)
	c.Set("k", "v")
	c.Set("other", "w")

	clock.advance(30 * time.Second)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	clock.advance(30 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)

	assert.Equal(t, 1, c.CleanExpired())
	assert.Zero(t, c.Size())

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestLRUCache_SetReplacesAndDelete(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("a", 2)
	v, _ := c.Get("a")
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Size())

	c.Delete("a")
	c.Delete("missing")
	assert.Zero(t, c.Size())
}

func TestManager_CleanAll(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)}
	a := NewLRUCache[int](10, time.Second).WithClock(clock.now)
	b := NewLRUCache[int](10, time.Hour).WithClock(clock.now)
	a.Set("x", 1)
	b.Set("y", 2)

	m := NewManager(nil)
	m.Register("a", a)
	m.Register("b", b)
	clock.advance(time.Minute)

	assert.Equal(t, 1, m.CleanAll(context.Background()))
	assert.Equal(t, 1, b.Size())

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx, time.Hour)
	cancel()
	m.Wait()
}
