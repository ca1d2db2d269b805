// Package idempotency remembers which externally supplied event IDs have already been
// handled, so a redelivered webhook is applied at most once.
package idempotency

import (
	"context"
	"time"
)

// Store claims keys for a limited time.
type Store interface {
	// Acquire claims key and reports whether this caller is the first to do so.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release forgets key so a failed attempt can be retried.
	Release(ctx context.Context, key string) error
}
