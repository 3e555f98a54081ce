package providers

import (
	"context"
	"errors"
	"time"
)

// ErrLockNotAcquired is returned when a lock is still held by someone else
// after the wait budget is spent
var ErrLockNotAcquired = errors.New("lock not acquired")

// Lock is a held mutual-exclusion lease
type Lock interface {
	// Release gives the lease back. Releasing an expired lease is not an error.
	Release(ctx context.Context) error
}

// LockProvider defines a lock shared by every engine instance
type LockProvider interface {
	// Acquire blocks until the lease on key is taken, wait elapses, or ctx is done.
	// The lease expires on its own after ttl.
	Acquire(ctx context.Context, key string, ttl, wait time.Duration) (Lock, error)
}
