// Package parallel provides thin range-decomposition adapters on top of
// a taskrun.Pool: For runs an index range concurrently for side effects,
// Reduce runs it concurrently and folds per-chunk partial results with a
// user-supplied associative operator. Both are intentionally simple:
// once the scheduler core is correct, chunking a range and joining
// futures is the easy part.
package parallel

import (
	"context"
	"fmt"

	"github.com/Baizho/taskrun"
)

// RangeOption configures chunking behavior for For and Reduce.
type RangeOption func(*rangeConfig)

type rangeConfig struct {
	chunkSize int
}

// WithChunkSize fixes the number of indices handled per submitted task.
// If omitted or zero, a chunk size is derived from the pool's worker
// count so that every worker receives roughly four chunks, enough to
// smooth over uneven chunk durations via work-stealing without making
// each task so small that scheduling overhead dominates.
func WithChunkSize(n int) RangeOption {
	return func(c *rangeConfig) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

func resolveChunkSize(lo, hi int, pool *taskrun.Pool, opts []RangeOption) int {
	cfg := rangeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.chunkSize > 0 {
		return cfg.chunkSize
	}

	total := hi - lo
	workers := pool.NumWorkers()
	if workers < 1 {
		workers = 1
	}
	targetChunks := workers * 4
	chunk := total / targetChunks
	if chunk < 1 {
		chunk = 1
	}
	return chunk
}

func chunks(lo, hi, size int) [][2]int {
	if hi <= lo {
		return nil
	}
	var out [][2]int
	for start := lo; start < hi; start += size {
		end := start + size
		if end > hi {
			end = hi
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// For splits [lo, hi) into chunks and submits one task per chunk to
// pool, each invoking f sequentially for every index in its chunk. It
// blocks until every chunk has completed or ctx is done, returning the
// first error encountered (chunk completion order, and therefore which
// error is "first", is unspecified). f must be safe to call
// concurrently with itself on distinct indices; For does not serialize
// calls across chunks.
func For(ctx context.Context, pool *taskrun.Pool, lo, hi int, f func(i int) error, opts ...RangeOption) error {
	if hi <= lo {
		return nil
	}

	size := resolveChunkSize(lo, hi, pool, opts)
	ranges := chunks(lo, hi, size)

	handles := make([]*taskrun.ResultHandle[struct{}], len(ranges))
	for idx, r := range ranges {
		r := r
		handle, err := taskrun.SubmitWithResult(pool, func() (struct{}, error) {
			for i := r[0]; i < r[1]; i++ {
				if err := f(i); err != nil {
					return struct{}{}, err
				}
			}
			return struct{}{}, nil
		})
		if err != nil {
			return fmt.Errorf("parallel.For: submit chunk %d: %w", idx, err)
		}
		handles[idx] = handle
	}

	var firstErr error
	for _, h := range handles {
		if _, err := h.Get(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Reduce splits [lo, hi) into chunks, maps each index with mapFn,
// combines each chunk's partial results with reduceFn seeded at init,
// then combines the per-chunk partials with reduceFn again to produce
// the final value. reduceFn must be associative; the order chunks are
// combined in is unspecified. Reduce returns ctx.Err() (and the zero
// value of T) if ctx is done before every chunk completes, or the first
// task error encountered.
func Reduce[T any](ctx context.Context, pool *taskrun.Pool, lo, hi int, init T, mapFn func(i int) T, reduceFn func(a, b T) T, opts ...RangeOption) (T, error) {
	var zero T
	if hi <= lo {
		return init, nil
	}

	size := resolveChunkSize(lo, hi, pool, opts)
	ranges := chunks(lo, hi, size)

	handles := make([]*taskrun.ResultHandle[T], len(ranges))
	for idx, r := range ranges {
		r := r
		handle, err := taskrun.SubmitWithResult(pool, func() (T, error) {
			acc := init
			for i := r[0]; i < r[1]; i++ {
				acc = reduceFn(acc, mapFn(i))
			}
			return acc, nil
		})
		if err != nil {
			return zero, fmt.Errorf("parallel.Reduce: submit chunk %d: %w", idx, err)
		}
		handles[idx] = handle
	}

	acc := init
	for _, h := range handles {
		v, err := h.Get(ctx)
		if err != nil {
			return zero, err
		}
		acc = reduceFn(acc, v)
	}
	return acc, nil
}
