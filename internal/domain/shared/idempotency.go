package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers natural document keys that have already been
// posted, so a retried create after an ambiguous network failure can be caught
// before it double-posts. The remote system itself enforces no dedup key.
type IdempotencyStore interface {
	// MarkPosted marks a document key as posted with a TTL.
	// Returns true if the key was newly marked, false if it was already known.
	MarkPosted(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsPosted checks if a document key has already been posted
	IsPosted(ctx context.Context, key string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for duplicate-posting checks
type IdempotencyConfig struct {
	// TTL is how long a posted document key is remembered.
	// Default: 24 hours.
	TTL time.Duration

	// Enabled determines whether the duplicate check runs at all.
	// When disabled, create operations behave exactly like the remote
	// system: no dedup, retries are the caller's responsibility.
	Enabled bool
}

// DefaultIdempotencyConfig returns the default duplicate-check configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
