// Package ratelimit provides bounded-rate admission control per identifier.
//
// The counter is a fixed-window approximation: the count resets fully when
// the window elapses, so bursts straddling a window boundary can see up to
// twice the configured rate. Acceptable for the low-stakes forms it guards.
package ratelimit

import (
	"context"
	"time"
)

// Store counts hits per key within a fixed time window. Implementations must
// be safe for concurrent use.
type Store interface {
	// Incr increments the counter for key within the current window and
	// returns the new count. A count of 1 starts a fresh window.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter performs admission checks against a Store.
type Limiter struct {
	store Store
}

func New(store Store) *Limiter {
	return &Limiter{store: store}
}

// Allow reports whether the identifier is within max requests for the
// window. Store errors fail open: an unreachable counter backend should not
// take the public forms down with it.
func (l *Limiter) Allow(ctx context.Context, identifier string, max int64, window time.Duration) bool {
	count, err := l.store.Incr(ctx, identifier, window)
	if err != nil {
		return true
	}
	return count <= max
}
