// Package lock provides the mutual exclusion the sequencer relies on:
// exactly one sequencer may provision a given device at a time.
package lock

import "context"

// Locker provides mutual exclusion with context support.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
	TryLock(ctx context.Context) (bool, error)
}

