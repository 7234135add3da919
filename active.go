package taskrun

import "sync"

// activeTaskCounter tracks the number of tasks that have been submitted
// but not yet completed, and lets any number of goroutines block until it
// reaches zero. It is the pool's quiescence primitive: Wait and the
// worker loop's shutdown check both read it through waitForZero /
// a direct load.
type activeTaskCounter struct {
	mu sync.Mutex
	cv *sync.Cond
	n  int64
}

func newActiveTaskCounter() *activeTaskCounter {
	c := &activeTaskCounter{}
	c.cv = sync.NewCond(&c.mu)
	return c
}

// increment records one more in-flight task. Must happen before the task
// becomes visible in any deque, so that a concurrent Wait cannot observe
// a false quiescence.
func (c *activeTaskCounter) increment() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

// decrement records that one task has completed (normally or via a
// recovered panic). If this is the last in-flight task, every goroutine
// blocked in waitForZero is woken.
func (c *activeTaskCounter) decrement() {
	c.mu.Lock()
	c.n--
	if c.n == 0 {
		c.cv.Broadcast()
	}
	c.mu.Unlock()
}

// waitForZero blocks until the counter reaches zero. Spurious wakeups
// are handled by the loop condition. Re-entrant across distinct callers;
// must never be called from a worker goroutine executing a task tracked
// by this same counter (the task would be waiting on its own retirement).
func (c *activeTaskCounter) waitForZero() {
	c.mu.Lock()
	for c.n != 0 {
		c.cv.Wait()
	}
	c.mu.Unlock()
}

// load returns a snapshot of the in-flight count.
func (c *activeTaskCounter) load() int64 {
	c.mu.Lock()
	n := c.n
	c.mu.Unlock()
	return n
}

// taskGuard decrements the counter exactly once, on release, regardless
// of whether the task it guards returned normally or panicked. Callers
// must defer release() before invoking the guarded task so a panic still
// triggers the decrement.
type taskGuard struct {
	counter *activeTaskCounter
}

func (c *activeTaskCounter) acquireGuard() taskGuard {
	return taskGuard{counter: c}
}

func (g taskGuard) release() {
	g.counter.decrement()
}

// submitGuard decrements the counter unless committed. The counter is
// incremented at acquisition time, before the submitted task is visible
// in any deque, so a concurrent Wait can never observe false quiescence;
// if something goes wrong between acquiring the guard and publishing the
// task (a panic, or Submit finding the shutdown flag set after the
// increment), release() undoes that increment instead of leaking it.
// Once the task is published (pushBack to the overflow deque never
// fails) commit() is always reached, so release() is a no-op there.
type submitGuard struct {
	counter   *activeTaskCounter
	committed bool
}

func (c *activeTaskCounter) acquireSubmitGuard() *submitGuard {
	c.increment()
	return &submitGuard{counter: c}
}

func (g *submitGuard) commit() {
	g.committed = true
}

func (g *submitGuard) release() {
	if !g.committed {
		g.counter.decrement()
	}
}
