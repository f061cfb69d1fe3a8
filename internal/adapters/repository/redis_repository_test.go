package repository

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-programs/internal/adapters/cache"
)

func setupTestRedis(t *testing.T) *redis.Client {
	_ = godotenv.Load("../../../.env")

	db, _ := strconv.Atoi(getEnv("REDIS_TEST_DB", "1"))
	rdb, err := cache.NewRedisClient(cache.Options{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", "secret_redis_pass_local"),
		DB:       db,
	})
	if err != nil {
		t.Skipf("Skipping Redis integration test: %v", err)
	}

	require.NoError(t, rdb.FlushDB(context.Background()).Err(), "Failed to flush test DB")
	return rdb
}

func TestRedisStore_Integration(t *testing.T) {
	rdb := setupTestRedis(t)
	defer rdb.Close()

	store := NewRedisStore(rdb, "kanso-test")
	runKeyValueContract(t, store)

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "habit_userId", "user_ns"))

	raw, err := rdb.Get(ctx, "kanso-test:habit_userId").Result()
	require.NoError(t, err)
	assert.Equal(t, "user_ns", raw)

	ttl, err := rdb.TTL(ctx, "kanso-test:habit_userId").Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "Stored keys never expire")
}

func TestCachedStore_Integration(t *testing.T) {
	rdb := setupTestRedis(t)
	defer rdb.Close()

	ctx := context.Background()

	t.Run("Contract", func(t *testing.T) {
		runKeyValueContract(t, NewCachedStore(NewMemoryStore(), rdb, time.Minute))
	})

	t.Run("Read-through fills the cache", func(t *testing.T) {
		backing := NewMemoryStore()
		store := NewCachedStore(backing, rdb, time.Minute)
		require.NoError(t, backing.Set(ctx, "habit_userData_u1", `{"totalPoints":10}`))

		v, err := store.Get(ctx, "habit_userData_u1")
		require.NoError(t, err)
		assert.Equal(t, `{"totalPoints":10}`, v)

		cached, err := rdb.Get(ctx, "kv:habit_userData_u1").Result()
		require.NoError(t, err)
		assert.Equal(t, v, cached)
	})

	t.Run("Writes invalidate", func(t *testing.T) {
		backing := NewMemoryStore()
		store := NewCachedStore(backing, rdb, time.Minute)
		require.NoError(t, store.Set(ctx, "habit_userData_u2", "old"))
		_, _ = store.Get(ctx, "habit_userData_u2")

		require.NoError(t, store.Set(ctx, "habit_userData_u2", "new"))

		_, err := rdb.Get(ctx, "kv:habit_userData_u2").Result()
		assert.ErrorIs(t, err, redis.Nil)

		v, err := store.Get(ctx, "habit_userData_u2")
		require.NoError(t, err)
		assert.Equal(t, "new", v)
	})
}
