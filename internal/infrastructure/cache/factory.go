package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/freely/backend/internal/domain/chat"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/freely/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects to the configured Redis server and pings it
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Factory builds the coordination stores from an optional Redis client.
// Without a client it falls back to in-process implementations, which only
// hold across a single instance.
type Factory struct {
	client   *redis.Client
	logger   *zap.Logger
	lockOpts []RedisLockerOption
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithRedisClient uses client for the stores
func WithRedisClient(client *redis.Client) FactoryOption {
	return func(f *Factory) {
		f.client = client
	}
}

// WithLockTiming sets the lease and retry interval of Redis conversation locks.
// Zero values keep the locker defaults.
func WithLockTiming(lease, retry time.Duration) FactoryOption {
	return func(f *Factory) {
		if lease > 0 {
			f.lockOpts = append(f.lockOpts, WithLease(lease))
		}
		if retry > 0 {
			f.lockOpts = append(f.lockOpts, WithRetryInterval(retry))
		}
	}
}

// NewFactory creates a Factory
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IdempotencyStore returns the webhook event ledger
func (f *Factory) IdempotencyStore() shared.IdempotencyStore {
	if f.client != nil {
		f.logger.Info("Using Redis idempotency store")
		return NewRedisIdempotencyStore(f.client, DefaultIdempotencyPrefix)
	}
	f.logger.Warn("Redis not configured, using in-memory idempotency store. " +
		"Webhook deliveries are only deduplicated per instance.")
	return NewInMemoryIdempotencyStore()
}

// ConversationLocker returns the per-conversation send lock
func (f *Factory) ConversationLocker() chat.Locker {
	if f.client != nil {
		opts := append([]RedisLockerOption{WithLockLogger(f.logger)}, f.lockOpts...)
		return NewRedisLocker(f.client, opts...)
	}
	return NewInMemoryLocker()
}
