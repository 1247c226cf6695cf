package flowmailer_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmailer/flowmailer-go/pkg/flowmailer"
)

func newRedisCache(t *testing.T) (*flowmailer.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)

	cache, err := flowmailer.NewRedisCache(context.Background(), &flowmailer.RedisConfig{
		URL: "redis://" + server.Addr(),
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = cache.Close() })

	return cache, server
}

func TestRedisCache_SetAndGet(t *testing.T) {
	t.Parallel()

	cache, server := newRedisCache(t)
	ctx := context.Background()

	entry := flowmailer.NewCacheEntry([]byte("bearer"), time.Hour, time.Now())
	require.NoError(t, cache.Set(ctx, "token.1.client", entry))

	retrieved, err := cache.Get(ctx, "token.1.client")
	require.NoError(t, err)
	assert.Equal(t, []byte("bearer"), retrieved.Data)
	assert.True(t, cache.Has(ctx, "token.1.client"))

	assert.True(t, server.Exists(flowmailer.DefaultRedisNamespace+"token.1.client"))
	assert.InDelta(t, time.Hour.Seconds(), server.TTL(flowmailer.DefaultRedisNamespace+"token.1.client").Seconds(), 5)
}

func TestRedisCache_Expiry(t *testing.T) {
	t.Parallel()

	cache, server := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", flowmailer.NewCacheEntry([]byte("v"), 10*time.Second, time.Now())))
	server.FastForward(11 * time.Second)

	_, err := cache.Get(ctx, "short")
	require.ErrorIs(t, err, flowmailer.ErrCacheKeyNotFound)

	stale := &flowmailer.CacheEntry{Data: []byte("v"), ExpiresAt: time.Now().Add(-time.Second)}
	require.NoError(t, cache.Set(ctx, "stale", stale))
	assert.False(t, server.Exists(flowmailer.DefaultRedisNamespace+"stale"))
}

func TestRedisCache_DeleteAndClear(t *testing.T) {
	t.Parallel()

	cache, server := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, server.Set("unrelated", "keep"))

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, cache.Set(ctx, key, &flowmailer.CacheEntry{Data: []byte(key)}))
	}

	require.NoError(t, cache.Delete(ctx, "a"))
	assert.False(t, cache.Has(ctx, "a"))
	require.NoError(t, cache.Delete(ctx, "missing"))

	require.NoError(t, cache.Clear(ctx))
	assert.False(t, cache.Has(ctx, "b"))
	assert.False(t, cache.Has(ctx, "c"))
	assert.True(t, server.Exists("unrelated"))
}

func TestRedisCache_SharedClient(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})

	defer func() { _ = client.Close() }()

	cache, err := flowmailer.NewCacheFromConfig(context.Background(), &flowmailer.CacheConfig{
		Type:    flowmailer.CacheTypeRedis,
		Redis:   &flowmailer.RedisConfig{Client: client, Namespace: "app:"},
		Options: &flowmailer.CacheOptions{KeyPrefix: "flowmailer."},
	})
	require.NoError(t, err)

	require.NoError(t, cache.Set(context.Background(), "token.9.c", &flowmailer.CacheEntry{Data: []byte("t")}))
	assert.True(t, server.Exists("app:flowmailer.token.9.c"))
}

func TestNewCacheFromConfig_RedisWithLocalTier(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	ctx := context.Background()

	cache, err := flowmailer.NewCacheBuilder().
		Redis(&flowmailer.RedisConfig{URL: "redis://" + server.Addr()}).
		Memory(10).
		Build(ctx)
	require.NoError(t, err)

	entry := flowmailer.NewCacheEntry([]byte("bearer"), time.Hour, time.Now())
	require.NoError(t, cache.Set(ctx, "token.1.c", entry))
	assert.True(t, server.Exists(flowmailer.DefaultRedisNamespace+"flowmailer.token.1.c"))

	server.FlushAll()

	cached, err := cache.Get(ctx, "token.1.c")
	require.NoError(t, err)
	assert.Equal(t, []byte("bearer"), cached.Data)
}

func TestNewRedisCache_Errors(t *testing.T) {
	t.Parallel()

	_, err := flowmailer.NewRedisCache(context.Background(), nil)
	require.ErrorIs(t, err, flowmailer.ErrRedisConfigRequired)

	_, err = flowmailer.NewRedisCache(context.Background(), &flowmailer.RedisConfig{URL: "http://localhost:6379"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse Redis URL")
}
