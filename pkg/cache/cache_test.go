package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_SetGet(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("a", 1)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_NoTTLNeverExpires(t *testing.T) {
	c := NewCache(0)
	c.Set("scope", "display-1")

	item := &CacheItem{Value: "x", CreatedAt: time.Now()}
	assert.False(t, item.IsExpired())

	v, ok := c.Get("scope")
	assert.True(t, ok)
	assert.Equal(t, "display-1", v)
}

func TestCache_Expiry(t *testing.T) {
	c := NewCache(time.Minute)
	c.SetWithTTL("a", 1, time.Nanosecond)
	time.Sleep(time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCache_GetOrSet(t *testing.T) {
	c := NewCache(0)
	calls := 0
	fallback := func(ctx context.Context) (interface{}, error) {
		calls++
		return "built", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrSet(context.Background(), "k", fallback)
		assert.NoError(t, err)
		assert.Equal(t, "built", v)
	}
	assert.Equal(t, 1, calls)
}

func TestCache_GetOrSet_FallbackError(t *testing.T) {
	c := NewCache(0)
	_, err := c.GetOrSet(context.Background(), "k", func(ctx context.Context) (interface{}, error) {
		return nil, fmt.Errorf("boom")
	})
	assert.Error(t, err)
	assert.Equal(t, 0, c.Size())
}
