package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-programs/internal/core/domain"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// runKeyValueContract checks the behaviour every Storage Provider shares.
func runKeyValueContract(t *testing.T, store domain.KeyValueStore) {
	ctx := context.Background()

	t.Run("Missing key", func(t *testing.T) {
		_, err := store.Get(ctx, "habit_userData_nobody")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("Set then Get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "habit_userId", "user_1"))

		v, err := store.Get(ctx, "habit_userId")
		require.NoError(t, err)
		assert.Equal(t, "user_1", v)
	})

	t.Run("Last writer wins", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "habit_savedData_user_1", `{"strength":{}}`))
		require.NoError(t, store.Set(ctx, "habit_savedData_user_1", `{"cardio":{}}`))

		v, err := store.Get(ctx, "habit_savedData_user_1")
		require.NoError(t, err)
		assert.Equal(t, `{"cardio":{}}`, v)
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "habit_userData_user_1", "{}"))
		require.NoError(t, store.Remove(ctx, "habit_userData_user_1"))

		_, err := store.Get(ctx, "habit_userData_user_1")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)

		assert.NoError(t, store.Remove(ctx, "habit_userData_user_1"), "Removing twice is fine")
	})

	t.Run("Concurrent writers", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				key := fmt.Sprintf("concurrent_key_%d", id)
				assert.NoError(t, store.Set(ctx, key, "val"))
				_, err := store.Get(ctx, key)
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()
	})
}
