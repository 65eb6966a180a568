package ports

import (
	"context"
	"time"
)

// LockoutState is the current attempt counter for a key.
type LockoutState struct {
	FailedCount int
	LockedUntil *time.Time
}

// LockoutStore keeps short-lived attempt counters for login, code verification and
// code delivery.
type LockoutStore interface {
	Get(ctx context.Context, key string) (LockoutState, error)
	RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (LockoutState, error)
	Clear(ctx context.Context, key string) error
}

// ResetTokenStore is the key-value store behind password reset tokens.
// GetAndDelete is atomic: a value is returned to at most one caller.
// A missing key yields domain.ErrNotFound.
type ResetTokenStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	GetAndDelete(ctx context.Context, key string) ([]byte, error)
}
