package taskrun

import (
	"context"
	"sync"
)

// ResultHandle is a single-consumer-safe (though safe to read from many
// goroutines) handle to the outcome of a computation submitted via
// SubmitWithResult. Fulfillment is one-shot: the wrapping task is the
// sole writer, and it stores its result before the scheduler's
// activeTaskCounter is decremented. A completed Get/Wait therefore does
// not imply the task has been retired: Stats().InFlight may still count
// it for a short while afterwards.
type ResultHandle[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newResultHandle[T any]() *ResultHandle[T] {
	return &ResultHandle[T]{done: make(chan struct{})}
}

// fulfill stores the outcome and unblocks any waiter. Safe to call at
// most meaningfully once; subsequent calls are no-ops because the
// wrapping task closure is the only caller and only runs once.
func (h *ResultHandle[T]) fulfill(value T, err error) {
	h.once.Do(func() {
		h.value = value
		h.err = err
		close(h.done)
	})
}

// IsReady reports whether the result is available without blocking.
func (h *ResultHandle[T]) IsReady() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Get blocks until the computation completes or ctx is done, whichever
// happens first. On success it returns the stored value and the task's
// own error (nil on normal completion, non-nil if the task returned an
// error or panicked). If ctx is done first, it returns the zero value of
// T and ctx.Err().
func (h *ResultHandle[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-h.done:
		return h.value, h.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Wait blocks until the computation completes or ctx is done, discarding
// the result value. Returns ctx.Err() on timeout/cancellation, nil once
// the task has completed (regardless of the task's own error).
func (h *ResultHandle[T]) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitWithResult wraps fn into a fire-and-forget task that stores its
// return value (or a recovered panic, converted to an error) into the
// returned ResultHandle, then submits that task to p. It returns the
// same errors Submit would (ErrNilTask, ErrShuttingDown) without ever
// invoking fn if submission is rejected.
func SubmitWithResult[T any](p *Pool, fn func() (T, error)) (*ResultHandle[T], error) {
	if fn == nil {
		return nil, ErrNilTask
	}

	handle := newResultHandle[T]()

	wrapped := func() {
		var (
			value T
			err   error
		)
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = &taskPanicError{recovered: r}
				}
			}()
			value, err = fn()
		}()
		handle.fulfill(value, err)
	}

	if err := p.Submit(wrapped); err != nil {
		return nil, err
	}
	return handle, nil
}
