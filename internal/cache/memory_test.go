package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(time.Minute, 0)

	c.Set(ctx, "k", 42)
	v, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	c.Delete(ctx, "k")
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(time.Minute, 0)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set(ctx, "a", "x")
	now = now.Add(2 * time.Minute)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestStopCleanupTwice(t *testing.T) {
	c := NewInMemoryCache(time.Minute, time.Millisecond)
	c.StartCleanup(context.Background())

	c.StopCleanup()
	c.StopCleanup()
}
