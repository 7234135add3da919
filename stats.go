package taskrun

import (
	"sync/atomic"
	"time"
)

// statsCounters holds the scheduler's monotonic, relaxed counters. Every
// field is updated with a plain atomic add; readers get an
// eventually-consistent snapshot via (*Pool).Stats(). No cross-counter
// invariant is guaranteed: a snapshot may transiently show
// TasksSubmitted > TasksExecuted + InFlight by a small margin.
type statsCounters struct {
	tasksSubmitted atomic.Uint64
	tasksExecuted  atomic.Uint64
	tasksStolen    atomic.Uint64
	stealAttempts  atomic.Uint64
	failedSteals   atomic.Uint64
}

// Stats is a point-in-time snapshot of pool-wide and per-worker counters.
// All fields are copies taken without holding any lock across the whole
// snapshot, so values may be slightly inconsistent relative to each other
// during concurrent operation.
type Stats struct {
	// Submitted is the total number of tasks accepted by Submit since
	// pool creation. Rejected submissions (nil task, shutdown) are not
	// counted here.
	Submitted uint64

	// Executed is the total number of tasks that finished running,
	// including tasks whose closure panicked.
	Executed uint64

	// Stolen is the total number of tasks retrieved by a worker from a
	// peer's deque (as opposed to its own deque or the overflow store).
	Stolen uint64

	// StealAttempts is the total number of victim-sampling attempts
	// made across all workers, successful or not.
	StealAttempts uint64

	// FailedSteals is the subset of StealAttempts that did not yield a
	// task (victim was self, or the victim's deque was empty, or lost a
	// race to another thief).
	FailedSteals uint64

	// InFlight is the number of tasks submitted but not yet executed.
	// Equivalent to the scheduler's active task count at snapshot time.
	InFlight int64

	// NumWorkers is the pool's fixed worker count.
	NumWorkers int

	// WorkerStats carries one entry per worker, indexed by worker id.
	WorkerStats []WorkerStats

	// Uptime is the time elapsed since the pool was constructed.
	Uptime time.Duration
}

// WorkerStats carries per-worker counters, useful for spotting an
// imbalanced workload (one worker executing far more than its peers) or
// runaway stealing.
type WorkerStats struct {
	WorkerID      int
	TasksExecuted uint64
	TasksStolen   uint64
	QueueDepth    int
	State         string
}
