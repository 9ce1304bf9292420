package localstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// ErrLocked reports that another lingocast process holds the state lock.
var ErrLocked = errors.New("another lingocast process is modifying local state")

const lockPollInterval = 50 * time.Millisecond

// Lock is a cross-process exclusive lock on the state directory.
type Lock struct {
	fl *flock.Flock
}

// NewLock prepares a lock on path without acquiring it.
func NewLock(path string) *Lock {
	return &Lock{fl: flock.New(path)}
}

// TryAcquire takes the lock without waiting.
func (l *Lock) TryAcquire() error {
	ok, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("acquire state lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// Acquire waits for the lock until ctx is done.
func (l *Lock) Acquire(ctx context.Context) error {
	ok, err := l.fl.TryLockContext(ensureContext(ctx), lockPollInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %w", ErrLocked, err)
		}
		return fmt.Errorf("acquire state lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}

// WithLock runs fn while holding the lock at path.
func WithLock(ctx context.Context, path string, fn func() error) error {
	lock := NewLock(path)
	if err := lock.Acquire(ctx); err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()
	return fn()
}
