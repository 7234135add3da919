package taskrun

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveTaskCounter_WaitForZero(t *testing.T) {
	c := newActiveTaskCounter()

	done := make(chan struct{})
	go func() {
		c.waitForZero()
		close(done)
	}()

	c.increment()
	c.increment()

	select {
	case <-done:
		t.Fatal("waitForZero returned before counter reached zero")
	case <-time.After(20 * time.Millisecond):
	}

	c.decrement()
	select {
	case <-done:
		t.Fatal("waitForZero returned with one task still in flight")
	case <-time.After(20 * time.Millisecond):
	}

	c.decrement()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waitForZero did not return after the counter reached zero")
	}
}

func TestActiveTaskCounter_MultipleWaiters(t *testing.T) {
	c := newActiveTaskCounter()
	c.increment()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.waitForZero()
		}()
	}

	time.Sleep(10 * time.Millisecond)
	c.decrement()

	waitCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
	case <-time.After(time.Second):
		t.Fatal("not all waiters woke up after the counter reached zero")
	}
}

func TestTaskGuard_ReleasesOnPanic(t *testing.T) {
	c := newActiveTaskCounter()
	c.increment()

	func() {
		guard := c.acquireGuard()
		defer guard.release()
		defer func() { recover() }()
		panic("boom")
	}()

	assert.Equal(t, int64(0), c.load())
}

func TestSubmitGuard_RollbackWithoutCommit(t *testing.T) {
	c := newActiveTaskCounter()

	guard := c.acquireSubmitGuard()
	require.Equal(t, int64(1), c.load())

	guard.release()
	assert.Equal(t, int64(0), c.load())
}

func TestSubmitGuard_CommitSuppressesRollback(t *testing.T) {
	c := newActiveTaskCounter()

	guard := c.acquireSubmitGuard()
	guard.commit()
	guard.release()

	assert.Equal(t, int64(1), c.load())
	c.decrement()
}
