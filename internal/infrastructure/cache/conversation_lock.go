package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/freely/backend/internal/domain/chat"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InMemoryLocker serializes sends per conversation within one process.
// Entries are dropped once no caller holds or waits for them.
type InMemoryLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

// NewInMemoryLocker creates an InMemoryLocker
func NewInMemoryLocker() *InMemoryLocker {
	return &InMemoryLocker{locks: make(map[uuid.UUID]*lockEntry)}
}

// Lock blocks until the conversation is free or ctx is done
func (l *InMemoryLocker) Lock(ctx context.Context, conversationID uuid.UUID) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[conversationID]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		l.locks[conversationID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(conversationID, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(conversationID, e)
		})
	}, nil
}

func (l *InMemoryLocker) release(id uuid.UUID, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, id)
	}
}

// Held returns the number of conversations with a holder or waiter
func (l *InMemoryLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// releaseScript deletes the lock only while it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLockerOption configures a RedisLocker
type RedisLockerOption func(*RedisLocker)

// WithLease sets how long a lock survives a crashed holder
func WithLease(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		l.lease = d
	}
}

// WithRetryInterval sets the polling interval while waiting for a lock
func WithRetryInterval(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		l.retry = d
	}
}

// WithLockLogger sets the logger used for release failures
func WithLockLogger(logger *zap.Logger) RedisLockerOption {
	return func(l *RedisLocker) {
		l.logger = logger
	}
}

// RedisLocker serializes sends per conversation across instances with
// SET NX PX. The lease must outlast the slowest model call.
type RedisLocker struct {
	client    redis.UniversalClient
	keyPrefix string
	lease     time.Duration
	retry     time.Duration
	logger    *zap.Logger
}

// NewRedisLocker creates a RedisLocker on a shared client
func NewRedisLocker(client redis.UniversalClient, opts ...RedisLockerOption) *RedisLocker {
	l := &RedisLocker{
		client:    client,
		keyPrefix: "freely:chat:lock:",
		lease:     3 * time.Minute,
		retry:     50 * time.Millisecond,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock polls until the conversation key is acquired or ctx is done
func (l *RedisLocker) Lock(ctx context.Context, conversationID uuid.UUID) (func(), error) {
	key := l.keyPrefix + conversationID.String()
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to lock conversation %s: %w", conversationID, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn("Failed to release conversation lock",
					zap.String("conversation_id", conversationID.String()),
					zap.Error(err))
			}
		})
	}, nil
}

var (
	_ chat.Locker = (*InMemoryLocker)(nil)
	_ chat.Locker = (*RedisLocker)(nil)
)
