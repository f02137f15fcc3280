package cache

import (
	"context"
	"testing"
	"time"

	"github.com/athebyme/funpay-bridge/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	_, err := c.Get(ctx, "job:1")
	assert.ErrorIs(t, err, errors.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "job:1", []byte(`{"status":"queued"}`), time.Minute))
	val, err := c.Get(ctx, "job:1")
	require.NoError(t, err)
	assert.Equal(t, `{"status":"queued"}`, string(val))

	require.NoError(t, c.Delete(ctx, "job:1"))
	_, err = c.Get(ctx, "job:1")
	assert.ErrorIs(t, err, errors.ErrCacheMiss)
}

func TestMemoryCacheExpiration(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	require.NoError(t, c.Set(ctx, "short", []byte("x"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, errors.ErrCacheMiss)
}

func TestMemoryCacheIncrement(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	v, err := c.Increment(ctx, "copy-stats:1:copied", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	v, err = c.Increment(ctx, "copy-stats:1:copied", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
}

func TestMemoryCacheLock(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	ok, err := c.Lock(ctx, "account", "first", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Lock(ctx, "account", "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second lock on the same key must fail")

	require.NoError(t, c.Unlock(ctx, "account", "first"))
	ok, err = c.Lock(ctx, "account", "second", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCacheUnlockChecksOwner(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	// первая блокировка истекла, ключ занял второй владелец
	ok, err := c.Lock(ctx, "account", "first", 20*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	time.Sleep(40 * time.Millisecond)

	ok, err = c.Lock(ctx, "account", "second", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	err = c.Unlock(ctx, "account", "first")
	assert.ErrorIs(t, err, errors.ErrLockNotHeld)

	ok, err = c.Lock(ctx, "account", "third", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "lock of the second owner must survive")
}
