package taskrun

import (
	"runtime"
	"time"

	"go.uber.org/zap"
)

// StealPolicy selects how a worker picks a victim when its own deque
// comes up empty. Stealing is tried before the overflow store.
type StealPolicy int

const (
	// Random draws a uniformly random victim index on every attempt.
	// Self may be drawn; that attempt is counted as a failed steal.
	Random StealPolicy = iota

	// RoundRobin tries (self+1)%N, (self+2)%N, ... so that
	// StealAttempts >= N-1 guarantees every peer is sampled at least
	// once.
	RoundRobin
)

func (p StealPolicy) String() string {
	switch p {
	case Random:
		return "random"
	case RoundRobin:
		return "round-robin"
	default:
		return "unknown"
	}
}

// Config holds all configuration for a Pool. NewPool starts from
// DefaultConfig, applies the given With* options, and validates the
// result.
type Config struct {
	// Workers is the number of worker goroutines. DefaultConfig sets it
	// to runtime.GOMAXPROCS(0), floored at 1. Must be > 0; an explicit
	// zero is rejected.
	Workers int

	// StealAttempts is the number of victim-sampling attempts a worker
	// makes per idle round before falling back to the overflow deque.
	// Must be > 0.
	StealAttempts int

	// IdleSleep is how long a worker sleeps after a round that found no
	// work anywhere (own deque, every sampled peer, overflow).
	IdleSleep time.Duration

	// MaxQueueTasks is the soft per-worker-deque capacity; a Submit
	// that would exceed it on the chosen worker routes to the overflow
	// deque instead. Must be > 0.
	MaxQueueTasks int

	// StealPolicy selects the victim-selection algorithm.
	StealPolicy StealPolicy

	// Logger receives structured diagnostics (worker start/stop,
	// recovered panics). Defaults to zap's no-op logger so a library
	// consumer never gets unsolicited log output.
	Logger *zap.SugaredLogger

	// PanicHandler, if set, is called with the worker id and the
	// recovered value instead of the default log line.
	PanicHandler func(workerID int, recovered any)

	// PinWorkerThreads locks each worker goroutine to its OS thread for
	// the lifetime of the pool (runtime.LockOSThread). Off by default;
	// only useful when profiling shows a cache-locality benefit, and it
	// reduces the Go scheduler's flexibility to rebalance goroutines
	// across threads.
	PinWorkerThreads bool
}

// Option mutates a Config in place; pass a sequence of Options to NewPool.
type Option func(*Config)

// WithWorkers sets the worker count.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithStealAttempts sets the number of victim-sampling attempts per idle
// round.
func WithStealAttempts(n int) Option {
	return func(c *Config) { c.StealAttempts = n }
}

// WithIdleSleep sets the sleep duration after an empty steal round.
func WithIdleSleep(d time.Duration) Option {
	return func(c *Config) { c.IdleSleep = d }
}

// WithMaxQueueTasks sets the per-worker deque soft capacity.
func WithMaxQueueTasks(n int) Option {
	return func(c *Config) { c.MaxQueueTasks = n }
}

// WithStealPolicy sets the victim-selection algorithm.
func WithStealPolicy(p StealPolicy) Option {
	return func(c *Config) { c.StealPolicy = p }
}

// WithLogger installs a structured logger for worker diagnostics.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithPanicHandler installs a custom panic handler, overriding the
// default log line.
func WithPanicHandler(h func(workerID int, recovered any)) Option {
	return func(c *Config) { c.PanicHandler = h }
}

// WithPinWorkerThreads enables or disables OS-thread pinning for workers.
func WithPinWorkerThreads(pin bool) Option {
	return func(c *Config) { c.PinWorkerThreads = pin }
}

// DefaultConfig returns a Config populated with the scheduler's
// documented defaults.
func DefaultConfig() Config {
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	return Config{
		Workers:       workers,
		StealAttempts: 4,
		IdleSleep:     time.Millisecond,
		MaxQueueTasks: 65536,
		StealPolicy:   Random,
		Logger:        zap.NewNop().Sugar(),
	}
}

// validate checks the configuration and returns a *PoolError wrapping
// ErrInvalidConfig on the first violation found. Called before any
// worker is spawned.
func (c *Config) validate() error {
	if c.Workers <= 0 {
		return newPoolError("NewPool", &configViolation{"Workers must be > 0"})
	}
	if c.StealAttempts <= 0 {
		return newPoolError("NewPool", &configViolation{"StealAttempts must be > 0"})
	}
	if c.MaxQueueTasks <= 0 {
		return newPoolError("NewPool", &configViolation{"MaxQueueTasks must be > 0"})
	}
	if c.IdleSleep < 0 {
		return newPoolError("NewPool", &configViolation{"IdleSleep must be >= 0"})
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop().Sugar()
	}
	return nil
}

type configViolation struct {
	msg string
}

func (v *configViolation) Error() string { return v.msg }

func (v *configViolation) Is(target error) bool {
	return target == ErrInvalidConfig
}
