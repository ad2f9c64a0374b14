package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchchat/internal/cache"
	"github.com/oggyb/matchchat/internal/config"
)

func newCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	c := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestLikeCountRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	_, ok, err := c.GetLikeCount(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := c.SetLikeCountIfVersion(ctx, 7, 12, 0)
	require.NoError(t, err)
	require.True(t, stored)
	n, ok, err := c.GetLikeCount(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(12), n)
	assert.Equal(t, cache.LikeCountTTL, mr.TTL(c.KeyForLikeCount(7)))

	require.NoError(t, c.InvalidateLikeCount(ctx, 7))
	_, ok, err = c.GetLikeCount(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLikeCountExpires(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	_, err := c.SetLikeCountIfVersion(ctx, 1, 3, 0)
	require.NoError(t, err)
	mr.FastForward(cache.LikeCountTTL + time.Second)

	_, ok, err := c.GetLikeCount(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestStaleFillIsDiscarded: a reader that counted before an invalidation
// must not write its count back afterwards.
func TestStaleFillIsDiscarded(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	v, err := c.LikeCountVersion(ctx, 5)
	require.NoError(t, err)
	assert.Zero(t, v)

	// a like lands between the reader's DB count and its cache write
	require.NoError(t, c.InvalidateLikeCount(ctx, 5))

	stored, err := c.SetLikeCountIfVersion(ctx, 5, 1, v)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists(c.KeyForLikeCount(5)))

	v, err = c.LikeCountVersion(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	stored, err = c.SetLikeCountIfVersion(ctx, 5, 2, v)
	require.NoError(t, err)
	assert.True(t, stored)
	n, ok, err := c.GetLikeCount(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), n)
}

func TestCorruptLikeCountIsAMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	require.NoError(t, mr.Set(c.KeyForLikeCount(2), "garbage"))
	_, ok, err := c.GetLikeCount(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPublishSubscribe(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	sub, err := c.PSubscribe(ctx, "chat:match:*")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, c.Publish(ctx, "chat:match:5", []byte(`{"x":1}`)))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "chat:match:5", msg.Channel)
		assert.Equal(t, `{"x":1}`, msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
