package taskrun

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the scheduler. Use errors.Is to test for
// these. NewPool returns ErrInvalidConfig wrapped in a *PoolError;
// Submit and SubmitWithResult return ErrShuttingDown or ErrNilTask
// unwrapped.
var (
	// ErrInvalidConfig is returned by NewPool when the supplied Config
	// fails validation. No worker is spawned when this is returned.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrShuttingDown is returned by Submit/SubmitWithResult once the
	// pool's shutdown flag has been observed. The pool's state is left
	// unchanged by a rejected submission.
	ErrShuttingDown = errors.New("pool is shutting down")

	// ErrNilTask is returned when Submit or SubmitWithResult is called
	// with a nil function.
	ErrNilTask = errors.New("task is nil")
)

// PoolError wraps a sentinel error with additional context about the
// pool operation that produced it. It supports errors.Is/errors.As via
// Unwrap.
type PoolError struct {
	op  string
	err error
}

func (e *PoolError) Error() string {
	return fmt.Sprintf("taskrun: %s: %v", e.op, e.err)
}

// Unwrap allows errors.Is(err, ErrInvalidConfig) etc. to succeed.
func (e *PoolError) Unwrap() error {
	return e.err
}

func newPoolError(op string, err error) *PoolError {
	return &PoolError{op: op, err: err}
}

// taskPanicError wraps a recovered panic value from a user task into an
// error, preserving the original value's text via %v formatting so a
// caller matching on substring (see ResultHandle.Get callers) still sees
// the panic's message.
type taskPanicError struct {
	recovered any
}

func (e *taskPanicError) Error() string {
	return fmt.Sprintf("taskrun: task panicked: %v", e.recovered)
}
