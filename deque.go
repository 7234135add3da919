package taskrun

import "sync"

// scheduledTask pairs a unit of work with the trace ID generated for it
// at submission time, so a panic recovered far away (on whichever
// worker or thief ends up running it) can still be logged against the
// call site that produced it.
type scheduledTask struct {
	fn      func()
	traceID string
}

// deque is a mutex-guarded, double-ended task container. Only the owning
// worker calls tryPopBack; submitters on any goroutine add tasks with
// pushBack/tryPushBack; any goroutine, including the owner, may call
// tryStealFront. All state transitions happen under lock; the lock is
// never held across task execution.
//
// Owner operations are LIFO (tryPopBack removes the most recently pushed
// task, favoring cache-hot, recently spawned work). Steals are FIFO
// (tryStealFront removes the oldest task, favoring coarse-grained work
// that is less likely to still be hot for the owner). This split is the
// standard work-stealing trade-off.
type deque struct {
	mu    sync.Mutex
	tasks []scheduledTask
}

func newDeque(capacityHint int) *deque {
	return &deque{tasks: make([]scheduledTask, 0, capacityHint)}
}

// pushBack appends a task unconditionally. Any goroutine may call this;
// Submit uses it for the overflow deque.
func (d *deque) pushBack(task scheduledTask) {
	d.mu.Lock()
	d.tasks = append(d.tasks, task)
	d.mu.Unlock()
}

// tryPushBack appends a task iff the current size is below cap. On
// failure the caller still holds task and is responsible for routing it
// elsewhere (the overflow deque). Any goroutine may call this; Submit
// calls it from the submitting goroutine.
func (d *deque) tryPushBack(task scheduledTask, cap int) bool {
	d.mu.Lock()
	if len(d.tasks) >= cap {
		d.mu.Unlock()
		return false
	}
	d.tasks = append(d.tasks, task)
	d.mu.Unlock()
	return true
}

// tryPopBack removes and returns the most recently pushed task. Only the
// owner should call this.
func (d *deque) tryPopBack() (scheduledTask, bool) {
	d.mu.Lock()
	n := len(d.tasks)
	if n == 0 {
		d.mu.Unlock()
		return scheduledTask{}, false
	}
	task := d.tasks[n-1]
	d.tasks[n-1] = scheduledTask{} // drop the reference so the backing array doesn't pin it
	d.tasks = d.tasks[:n-1]
	d.mu.Unlock()
	return task, true
}

// tryStealFront removes and returns the oldest task. Any goroutine may
// call this concurrently with the owner's pushBack/tryPopBack and with
// other thieves.
func (d *deque) tryStealFront() (scheduledTask, bool) {
	d.mu.Lock()
	if len(d.tasks) == 0 {
		d.mu.Unlock()
		return scheduledTask{}, false
	}
	task := d.tasks[0]
	d.tasks[0] = scheduledTask{}
	d.tasks = d.tasks[1:]
	d.mu.Unlock()
	return task, true
}

// size returns a snapshot of the current length. Advisory only: it may
// be stale by the time the caller observes it.
func (d *deque) size() int {
	d.mu.Lock()
	n := len(d.tasks)
	d.mu.Unlock()
	return n
}

// empty reports whether the deque appeared empty at the time of the
// call.
func (d *deque) empty() bool {
	return d.size() == 0
}
