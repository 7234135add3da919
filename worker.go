package taskrun

import (
	"runtime"
	"sync/atomic"
	"time"
)

// workerState is reported in Stats().WorkerStats[i].State for
// observability; it carries no synchronization meaning of its own.
type workerState int32

const (
	workerRunning workerState = iota
	workerStealing
	workerIdle
)

func (s workerState) String() string {
	switch s {
	case workerRunning:
		return "running"
	case workerStealing:
		return "stealing"
	case workerIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// worker owns one deque (its "local" deque) and runs the scheduler's
// five-step loop: pop local, steal from a peer, drain the overflow
// store, or sleep. It never blocks on another goroutine's deque: every
// cross-goroutine operation is a non-blocking try*.
type worker struct {
	id    int
	pool  *Pool
	local *deque
	rng   *xorshift32

	state         atomic.Int32
	tasksExecuted atomic.Uint64
	tasksStolen   atomic.Uint64
}

func newWorker(id int, pool *Pool) *worker {
	return &worker{
		id:    id,
		pool:  pool,
		local: newDeque(64),
		rng:   newXorshift32(seedFor(id)),
	}
}

// run is the worker's goroutine entry point. It loops until the pool's
// shutdown flag is set AND the scheduler's active task count reaches
// zero, both conditions, never the flag alone, so a task that submits
// further work near shutdown cannot strand it.
func (w *worker) run() {
	if w.pool.config.PinWorkerThreads {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	for {
		if task, ok := w.local.tryPopBack(); ok {
			w.execute(task)
			continue
		}

		w.state.Store(int32(workerStealing))
		if task, ok := w.trySteal(); ok {
			w.state.Store(int32(workerRunning))
			w.tasksStolen.Add(1)
			w.pool.stats.tasksStolen.Add(1)
			w.execute(task)
			continue
		}

		if task, ok := w.pool.overflow.tryStealFront(); ok {
			w.state.Store(int32(workerRunning))
			w.execute(task)
			continue
		}

		if w.pool.shutdown.Load() && w.pool.active.load() == 0 {
			w.state.Store(int32(workerIdle))
			return
		}

		w.state.Store(int32(workerIdle))
		time.Sleep(w.pool.config.IdleSleep)
	}
}

// trySteal samples up to config.StealAttempts victims using the
// scheduler's configured policy, returning the first task found. Every
// attempt counts against stats.StealAttempts unconditionally, even one
// that lands on self (counted as a failed steal) or runs against a
// single-worker pool where no peer could ever be found.
func (w *worker) trySteal() (scheduledTask, bool) {
	n := len(w.pool.workers)

	for attempt := 1; attempt <= w.pool.config.StealAttempts; attempt++ {
		w.pool.stats.stealAttempts.Add(1)

		if n <= 1 {
			w.pool.stats.failedSteals.Add(1)
			continue
		}

		victim := w.pool.nextVictim(w.id, attempt, w.rng)
		if victim == w.id {
			w.pool.stats.failedSteals.Add(1)
			continue
		}

		if task, ok := w.pool.workers[victim].local.tryStealFront(); ok {
			return task, true
		}
		w.pool.stats.failedSteals.Add(1)
	}

	return scheduledTask{}, false
}

// execute runs task under a scoped taskGuard and panic recovery. The
// guard's release is deferred before task.fn is invoked, so activeTasks
// is decremented exactly once regardless of how the call returns.
func (w *worker) execute(task scheduledTask) {
	guard := w.pool.active.acquireGuard()
	defer guard.release()

	defer func() {
		if r := recover(); r != nil {
			w.handlePanic(task.traceID, r)
		}
	}()

	task.fn()

	w.tasksExecuted.Add(1)
	w.pool.stats.tasksExecuted.Add(1)
}

func (w *worker) handlePanic(traceID string, recovered any) {
	w.tasksExecuted.Add(1)
	w.pool.stats.tasksExecuted.Add(1)

	if w.pool.config.PanicHandler != nil {
		w.pool.config.PanicHandler(w.id, recovered)
		return
	}

	w.pool.config.Logger.Named("taskrun").Errorw("task panicked",
		"worker_id", w.id,
		"trace_id", traceID,
		"recovered", recovered,
	)
}

func (w *worker) snapshot() WorkerStats {
	return WorkerStats{
		WorkerID:      w.id,
		TasksExecuted: w.tasksExecuted.Load(),
		TasksStolen:   w.tasksStolen.Load(),
		QueueDepth:    w.local.size(),
		State:         workerState(w.state.Load()).String(),
	}
}
