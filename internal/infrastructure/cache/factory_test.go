package cache

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_ConversationLocker(t *testing.T) {
	t.Run("without redis locks in process", func(t *testing.T) {
		locker := NewFactory(WithLockTiming(time.Second, time.Millisecond)).ConversationLocker()
		assert.IsType(t, &InMemoryLocker{}, locker)
	})

	t.Run("redis locker uses configured timing", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
		t.Cleanup(func() { _ = client.Close() })

		locker, ok := NewFactory(
			WithRedisClient(client),
			WithLockTiming(90*time.Second, 20*time.Millisecond),
		).ConversationLocker().(*RedisLocker)
		require.True(t, ok)
		assert.Equal(t, 90*time.Second, locker.lease)
		assert.Equal(t, 20*time.Millisecond, locker.retry)
	})

	t.Run("zero timing keeps locker defaults", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
		t.Cleanup(func() { _ = client.Close() })

		locker, ok := NewFactory(WithRedisClient(client), WithLockTiming(0, 0)).ConversationLocker().(*RedisLocker)
		require.True(t, ok)
		assert.Equal(t, 3*time.Minute, locker.lease)
		assert.Equal(t, 50*time.Millisecond, locker.retry)
	})
}

func TestFactory_IdempotencyStoreFallsBackInProcess(t *testing.T) {
	store := NewFactory().IdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
}
