package querycache

import (
	"context"
	"sync/atomic"
)

// Callbacks run after a mutation settles. Any of them may be nil.
type Callbacks[T any] struct {
	OnSuccess func(T)
	OnError   func(error)
	OnSettled func(T, error)
}

// Mutation runs an imperative write and tracks whether one is in flight.
// The zero value is ready to use.
type Mutation[T any] struct {
	inflight atomic.Int32
}

// Pending reports whether a call to Mutate has not yet returned.
func (m *Mutation[T]) Pending() bool {
	return m.inflight.Load() > 0
}

// Mutate runs fn once. OnSuccess or OnError fires first, then OnSettled.
func (m *Mutation[T]) Mutate(ctx context.Context, fn func(context.Context) (T, error), cb Callbacks[T]) (T, error) {
	m.inflight.Add(1)
	defer m.inflight.Add(-1)

	result, err := fn(ctx)
	if err != nil {
		if cb.OnError != nil {
			cb.OnError(err)
		}
	} else if cb.OnSuccess != nil {
		cb.OnSuccess(result)
	}
	if cb.OnSettled != nil {
		cb.OnSettled(result, err)
	}
	return result, err
}
