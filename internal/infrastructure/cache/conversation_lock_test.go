package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLocker_SerializesOneConversation(t *testing.T) {
	locker := NewInMemoryLocker()
	ctx := context.Background()
	id := uuid.New()

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, id)
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, locker.Held(), "idle conversations are forgotten")
}

func TestInMemoryLocker_IndependentConversations(t *testing.T) {
	locker := NewInMemoryLocker()
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, uuid.New())
	require.NoError(t, err)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := locker.Lock(ctx, uuid.New())
		if err == nil {
			unlockB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on another conversation blocked")
	}
}

func TestInMemoryLocker_ContextCancel(t *testing.T) {
	locker := NewInMemoryLocker()
	id := uuid.New()

	unlock, err := locker.Lock(context.Background(), id)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, id)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	assert.Equal(t, 0, locker.Held())

	unlock, err = locker.Lock(context.Background(), id)
	require.NoError(t, err)
	unlock()
}

func TestFactory_FallsBackWithoutRedis(t *testing.T) {
	f := NewFactory()

	store := f.IdempotencyStore()
	defer store.Close()
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	assert.IsType(t, &InMemoryLocker{}, f.ConversationLocker())
}
