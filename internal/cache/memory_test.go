package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *MemoryCache {
	t.Helper()
	mc := NewMemoryCache(DefaultConfig())
	t.Cleanup(func() { mc.Close() })
	return mc
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	mc := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := newTestCache(t)

	_, err := mc.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrMiss)

	var ce *CacheError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "get", ce.Op)
	assert.Equal(t, "absent", ce.Key)
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(25 * time.Millisecond)

	_, err := mc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCacheDelete(t *testing.T) {
	mc := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, mc.Set(ctx, "b", []byte("2"), time.Minute))

	require.NoError(t, mc.Delete(ctx, "a", "b", "missing"))

	_, err := mc.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = mc.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, 0, mc.Len())
}

func TestMemoryCacheDefaultTTL(t *testing.T) {
	mc := NewMemoryCache(&Config{DefaultTTL: 10 * time.Millisecond, Prefix: "t:"})
	t.Cleanup(func() { mc.Close() })
	ctx := context.Background()

	// ttl 0 picks up the default.
	require.NoError(t, mc.Set(ctx, "k", []byte("v"), 0))
	time.Sleep(25 * time.Millisecond)

	_, err := mc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCacheCloseTwice(t *testing.T) {
	mc := NewMemoryCache(nil)
	require.NoError(t, mc.Close())
	require.NoError(t, mc.Close())
}
