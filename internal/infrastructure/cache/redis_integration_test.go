//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/freely/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := NewRedisClient(ctx, config.RedisConfig{Host: host, Port: port.Int()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisIdempotencyStore(t *testing.T) {
	client := newTestRedis(t)
	store := NewRedisIdempotencyStore(client, "")
	ctx := context.Background()

	isNew, err := store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	assert.False(t, isNew)

	ttl, err := client.TTL(ctx, DefaultIdempotencyPrefix+"evt_1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	require.NoError(t, store.Release(ctx, "evt_1"))
	processed, err := store.IsProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestRedisLocker(t *testing.T) {
	client := newTestRedis(t)
	locker := NewRedisLocker(client, WithRetryInterval(10*time.Millisecond))
	id := uuid.New()

	unlock, err := locker.Lock(context.Background(), id)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, id)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()

	unlock, err = locker.Lock(context.Background(), id)
	require.NoError(t, err)
	unlock()
}

func TestRedisLocker_ExpiredLeaseIsNotReleasedByOldHolder(t *testing.T) {
	client := newTestRedis(t)
	locker := NewRedisLocker(client, WithLease(50*time.Millisecond), WithRetryInterval(10*time.Millisecond))
	id := uuid.New()
	ctx := context.Background()

	stale, err := locker.Lock(ctx, id)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	fresh, err := locker.Lock(ctx, id)
	require.NoError(t, err)
	defer fresh()

	stale()

	exists, err := client.Exists(ctx, "freely:chat:lock:"+id.String()).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists, "the new holder keeps its lock")
}
