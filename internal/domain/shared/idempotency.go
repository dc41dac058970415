package shared

import (
	"context"
	"time"
)

// IdempotencyStore records processed keys (gateway event IDs) so that a
// redelivered event is handled at most once.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release removes a key so the event can be processed again
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a processed key is remembered
	TTL time.Duration
	// Enabled determines whether idempotency checking is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration.
// Stripe retries failed deliveries for up to three days.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     72 * time.Hour,
		Enabled: true,
	}
}

// IdempotencyConfigWithTTL returns an enabled config remembering keys for ttl.
// A non-positive ttl keeps the default.
func IdempotencyConfigWithTTL(ttl time.Duration) IdempotencyConfig {
	cfg := DefaultIdempotencyConfig()
	if ttl > 0 {
		cfg.TTL = ttl
	}
	return cfg
}
