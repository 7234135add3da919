package taskrun

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Property 1: completion counting for K in {1, 10, 10^4}.
func TestProperty_CompletionCounting(t *testing.T) {
	for _, k := range []int{1, 10, 10_000} {
		k := k
		t.Run(strconv.Itoa(k), func(t *testing.T) {
			pool, err := NewPool(WithWorkers(4))
			require.NoError(t, err)
			defer pool.Shutdown()

			var counter atomic.Int64
			for i := 0; i < k; i++ {
				require.NoError(t, pool.Submit(func() {
					counter.Add(1)
				}))
			}
			pool.Wait()

			assert.Equal(t, int64(k), counter.Load())
		})
	}
}

func TestProperty_CompletionCounting_Stress(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 10^6-task stress test in -short mode")
	}

	pool, err := NewPool(WithWorkers(8))
	require.NoError(t, err)
	defer pool.Shutdown()

	const k = 1_000_000
	var counter atomic.Int64
	for i := 0; i < k; i++ {
		require.NoError(t, pool.Submit(func() {
			counter.Add(1)
		}))
	}
	pool.Wait()

	assert.Equal(t, int64(k), counter.Load())
}

// Property 2: no lost tasks under overflow with a tiny per-worker cap.
func TestProperty_NoLostTasksUnderOverflow(t *testing.T) {
	pool, err := NewPool(WithWorkers(2), WithMaxQueueTasks(10))
	require.NoError(t, err)
	defer pool.Shutdown()

	var counter atomic.Int64
	const k = 100
	for i := 0; i < k; i++ {
		require.NoError(t, pool.Submit(func() {
			time.Sleep(time.Millisecond)
			counter.Add(1)
		}))
	}
	pool.Wait()

	assert.Equal(t, int64(k), counter.Load())
}

// Property 3: nested submission, 10 outer tasks each submit 5 inner tasks.
func TestProperty_NestedSubmission(t *testing.T) {
	pool, err := NewPool(WithWorkers(4))
	require.NoError(t, err)
	defer pool.Shutdown()

	var outer, inner atomic.Int64
	var wg sync.WaitGroup
	wg.Add(10)

	for i := 0; i < 10; i++ {
		require.NoError(t, pool.Submit(func() {
			defer wg.Done()
			outer.Add(1)
			for j := 0; j < 5; j++ {
				_ = pool.Submit(func() {
					inner.Add(1)
				})
			}
		}))
	}

	wg.Wait()
	pool.Wait()

	assert.Equal(t, int64(10), outer.Load())
	assert.Equal(t, int64(50), inner.Load())
}

// Property 4: fire-and-forget error (panic) isolation.
func TestProperty_FireAndForgetPanicIsolation(t *testing.T) {
	pool, err := NewPool(WithWorkers(4))
	require.NoError(t, err)
	defer pool.Shutdown()

	var completed atomic.Int64
	for i := 0; i < 20; i++ {
		i := i
		require.NoError(t, pool.Submit(func() {
			if i%5 == 0 {
				panic("boom")
			}
			completed.Add(1)
		}))
	}
	pool.Wait()

	assert.Equal(t, int64(16), completed.Load())
	assert.NoError(t, pool.Submit(func() {}))
}

// Property 5: result handle error propagation (see future_test.go for the
// dedicated E5/E6 scenarios; this checks the message substring contract).
func TestProperty_ResultHandleErrorPropagation(t *testing.T) {
	pool, err := NewPool(WithWorkers(2))
	require.NoError(t, err)
	defer pool.Shutdown()

	handle, err := SubmitWithResult(pool, func() (int, error) {
		panic("boom")
	})
	require.NoError(t, err)

	_, getErr := handle.Get(context.Background())
	require.Error(t, getErr)
	assert.Contains(t, getErr.Error(), "boom")
}

// Property 6: round-robin steal policy reachability.
func TestProperty_RoundRobinReachability(t *testing.T) {
	const n = 4
	pool, err := NewPool(WithWorkers(n), WithStealPolicy(RoundRobin), WithStealAttempts(n-1))
	require.NoError(t, err)
	defer pool.Shutdown()

	for self := 0; self < n; self++ {
		reached := map[int]bool{}
		for attempt := 1; attempt <= n-1; attempt++ {
			v := pool.nextVictim(self, attempt, nil)
			if v != self {
				reached[v] = true
			}
		}
		for peer := 0; peer < n; peer++ {
			if peer == self {
				continue
			}
			assert.Truef(t, reached[peer], "worker %d never reached peer %d within %d attempts", self, peer, n-1)
		}
	}
}

// Property 7: Wait returns only once InFlight is 0.
func TestProperty_Quiescence(t *testing.T) {
	pool, err := NewPool(WithWorkers(4))
	require.NoError(t, err)
	defer pool.Shutdown()

	for i := 0; i < 500; i++ {
		require.NoError(t, pool.Submit(func() {
			time.Sleep(time.Microsecond)
		}))
	}
	pool.Wait()

	assert.Equal(t, int64(0), pool.Stats().InFlight)
}

// Property 8: Shutdown drains pending work without an explicit Wait.
func TestProperty_ShutdownDrains(t *testing.T) {
	pool, err := NewPool(WithWorkers(3))
	require.NoError(t, err)

	var counter atomic.Int64
	const k = 200
	for i := 0; i < k; i++ {
		require.NoError(t, pool.Submit(func() {
			counter.Add(1)
		}))
	}

	pool.Shutdown()

	assert.Equal(t, int64(k), counter.Load())
}

// Property 9: Submit after shutdown is rejected without side effects.
func TestProperty_SubmitAfterShutdown(t *testing.T) {
	pool, err := NewPool(WithWorkers(2))
	require.NoError(t, err)
	pool.Shutdown()

	before := pool.Stats().Submitted
	err = pool.Submit(func() {})
	assert.ErrorIs(t, err, ErrShuttingDown)
	assert.Equal(t, before, pool.Stats().Submitted)
}

func TestPool_ShutdownIsIdempotent(t *testing.T) {
	pool, err := NewPool(WithWorkers(2))
	require.NoError(t, err)

	pool.Shutdown()
	assert.NotPanics(t, func() { pool.Shutdown() })
	assert.True(t, pool.IsShutdown())
}

// Property 10: no ordering guarantee, assert the multiset of completions,
// not the sequence.
func TestProperty_NoOrderingGuarantee(t *testing.T) {
	pool, err := NewPool(WithWorkers(4))
	require.NoError(t, err)
	defer pool.Shutdown()

	const k = 200
	var mu sync.Mutex
	seen := make([]int, 0, k)

	for i := 0; i < k; i++ {
		i := i
		require.NoError(t, pool.Submit(func() {
			mu.Lock()
			seen = append(seen, i)
			mu.Unlock()
		}))
	}
	pool.Wait()

	require.Len(t, seen, k)
	counts := make(map[int]int, k)
	for _, v := range seen {
		counts[v]++
	}
	for i := 0; i < k; i++ {
		assert.Equal(t, 1, counts[i], "task %d observed %d times, want exactly once", i, counts[i])
	}

	inOrder := true
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			inOrder = false
			break
		}
	}
	_ = inOrder // ordering is explicitly not guaranteed; no assertion on it
}

func TestPool_SubmitNilTask(t *testing.T) {
	pool, err := NewPool(WithWorkers(1))
	require.NoError(t, err)
	defer pool.Shutdown()

	assert.ErrorIs(t, pool.Submit(nil), ErrNilTask)
}

func TestPool_StatsWorkerBreakdown(t *testing.T) {
	pool, err := NewPool(WithWorkers(3))
	require.NoError(t, err)
	defer pool.Shutdown()

	for i := 0; i < 300; i++ {
		require.NoError(t, pool.Submit(func() {}))
	}
	pool.Wait()

	stats := pool.Stats()
	require.Len(t, stats.WorkerStats, 3)

	var total uint64
	for _, ws := range stats.WorkerStats {
		total += ws.TasksExecuted
	}
	assert.Equal(t, uint64(300), total)
}
