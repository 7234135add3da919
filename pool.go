// Package taskrun provides an in-process task execution engine: a
// fixed-size pool of worker goroutines that cooperatively execute short,
// independent units of work submitted by application code.
//
// The core is a work-stealing scheduler: each worker owns a mutex-guarded
// local deque (LIFO for the owner, FIFO for thieves), backed by a shared
// overflow deque for submissions that arrive faster than a target
// worker's deque can absorb them. A scheduler-wide active-task counter
// drives both Wait (block until quiescent) and each worker's shutdown
// check (exit only once the pool has been told to stop AND no task is
// still in flight).
//
// # Quick start
//
//	pool, err := taskrun.NewPool()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Shutdown()
//
//	for i := 0; i < 100; i++ {
//	    i := i
//	    if err := pool.Submit(func() {
//	        fmt.Println("task", i)
//	    }); err != nil {
//	        log.Printf("submit failed: %v", err)
//	    }
//	}
//	pool.Wait()
//
// # Results
//
// Use SubmitWithResult when a task needs to return a value or an error:
//
//	handle, err := taskrun.SubmitWithResult(pool, func() (int, error) {
//	    return 42, nil
//	})
//	v, err := handle.Get(context.Background())
//
// # Shutdown
//
// Shutdown is idempotent: it sets the shutdown flag, lets every worker
// drain whatever work it can still reach (including stealing from
// peers), and joins all worker goroutines. There is no implicit shutdown
// on garbage collection; callers are expected to defer pool.Shutdown().
package taskrun

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Pool is a fixed-size work-stealing scheduler. The zero value is not
// usable; construct one with NewPool.
type Pool struct {
	config   Config
	workers  []*worker
	overflow *deque

	active *activeTaskCounter
	stats  statsCounters

	shutdown     atomic.Bool
	shutdownOnce sync.Once
	wg           sync.WaitGroup

	submitMu  sync.Mutex
	submitRNG *xorshift32

	startedAt time.Time
}

// NewPool constructs a pool with the given options applied on top of
// DefaultConfig, validates the result, and starts all worker goroutines
// before returning. It returns a *PoolError wrapping ErrInvalidConfig
// (without starting any worker) if the configuration is invalid.
func NewPool(opts ...Option) (*Pool, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		config:    cfg,
		workers:   make([]*worker, cfg.Workers),
		overflow:  newDeque(256),
		active:    newActiveTaskCounter(),
		submitRNG: newXorshift32(uint32(time.Now().UnixNano())),
		startedAt: time.Now(),
	}

	for i := range p.workers {
		p.workers[i] = newWorker(i, p)
	}

	p.wg.Add(cfg.Workers)
	for _, w := range p.workers {
		w := w
		go func() {
			defer p.wg.Done()
			w.run()
		}()
	}

	return p, nil
}

// Submit enqueues task for fire-and-forget execution on some worker.
// Returns ErrNilTask if task is nil, ErrShuttingDown if the pool has
// already been told to stop. A successful Submit guarantees the task
// will run exactly once (modulo a recovered panic, which still counts
// as having run).
//
// Submit stamps task with a fresh trace ID, carried alongside it through
// whichever deque it lands in, so that a panic recovered on whatever
// worker or thief ends up running it can still be logged against this
// call site.
func (p *Pool) Submit(task func()) error {
	if task == nil {
		return ErrNilTask
	}
	if p.shutdown.Load() {
		return ErrShuttingDown
	}

	guard := p.active.acquireSubmitGuard()
	defer guard.release()
	// Shutdown may have let every worker exit between the check above and
	// the increment; reject rather than strand the task.
	if p.shutdown.Load() {
		return ErrShuttingDown
	}
	p.stats.tasksSubmitted.Add(1)

	st := scheduledTask{fn: task, traceID: uuid.New().String()}

	target := p.nextSubmitTarget()
	if !p.workers[target].local.tryPushBack(st, p.config.MaxQueueTasks) {
		p.overflow.pushBack(st)
	}

	guard.commit()
	return nil
}

// nextSubmitTarget draws a uniformly random worker index to route a
// fresh submission to, matching random_worker() in the original
// implementation. Submit is called from arbitrary caller goroutines, so
// the generator is guarded by a mutex rather than owned per-goroutine
// like a worker's steal-victim rng.
func (p *Pool) nextSubmitTarget() int {
	p.submitMu.Lock()
	v := p.submitRNG.intn(len(p.workers))
	p.submitMu.Unlock()
	return v
}

// nextVictim implements the scheduler's configured steal policy. attempt
// is 1-based, matching the worker loop's retry counter.
func (p *Pool) nextVictim(self, attempt int, rng *xorshift32) int {
	n := len(p.workers)
	switch p.config.StealPolicy {
	case RoundRobin:
		v := (self + attempt) % n
		return v
	default: // Random
		return rng.intn(n)
	}
}

// Wait blocks until every task submitted before this call (and any task
// they transitively submitted) has completed. It does not shut the pool
// down; new tasks may still be submitted afterward. Must not be called
// from within a task running on this pool: the task counts itself as
// active and would block its own retirement.
func (p *Pool) Wait() {
	p.active.waitForZero()
}

// Shutdown stops the pool: it sets the shutdown flag, lets every worker
// run until it can find no more work anywhere (its own deque, every
// peer's deque via stealing, and the overflow store) and the active task
// count has reached zero, then joins all worker goroutines. Shutdown is
// idempotent and safe to call more than once; only the first call has
// any effect.
func (p *Pool) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.shutdown.Store(true)
		p.wg.Wait()
	})
}

// IsShutdown reports whether Shutdown has been called.
func (p *Pool) IsShutdown() bool {
	return p.shutdown.Load()
}

// NumWorkers returns the pool's fixed worker count.
func (p *Pool) NumWorkers() int {
	return len(p.workers)
}

// Stats returns a point-in-time snapshot of the pool's counters. It takes
// each worker deque's lock and the active counter's lock briefly, one at
// a time, to read queue depths and the in-flight count.
func (p *Pool) Stats() Stats {
	workerStats := make([]WorkerStats, len(p.workers))
	for i, w := range p.workers {
		workerStats[i] = w.snapshot()
	}

	return Stats{
		Submitted:     p.stats.tasksSubmitted.Load(),
		Executed:      p.stats.tasksExecuted.Load(),
		Stolen:        p.stats.tasksStolen.Load(),
		StealAttempts: p.stats.stealAttempts.Load(),
		FailedSteals:  p.stats.failedSteals.Load(),
		InFlight:      p.active.load(),
		NumWorkers:    len(p.workers),
		WorkerStats:   workerStats,
		Uptime:        time.Since(p.startedAt),
	}
}
