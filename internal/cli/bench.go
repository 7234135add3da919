package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Baizho/taskrun"
)

func newBenchCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Submit/steal micro-benchmark, reporting per-task latency percentiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, _ := cmd.Flags().GetInt("workers")
			stealAttempts, _ := cmd.Flags().GetInt("steal-attempts")

			opts := []taskrun.Option{taskrun.WithStealAttempts(stealAttempts)}
			if workers > 0 {
				opts = append(opts, taskrun.WithWorkers(workers))
			}

			pool, err := taskrun.NewPool(opts...)
			if err != nil {
				return fmt.Errorf("new pool: %w", err)
			}
			defer pool.Shutdown()

			latencies := make([]time.Duration, count)
			start := time.Now()
			for i := 0; i < count; i++ {
				i := i
				submitted := time.Now()
				if err := pool.Submit(func() {
					latencies[i] = time.Since(submitted)
				}); err != nil {
					return fmt.Errorf("submit: %w", err)
				}
			}
			pool.Wait()
			total := time.Since(start)

			sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
			p50 := latencies[len(latencies)/2]
			p99 := latencies[int(float64(len(latencies))*0.99)]

			stats := pool.Stats()
			fmt.Printf("total=%v tasks=%d p50=%v p99=%v stolen=%d steal_attempts=%d\n",
				total, count, p50, p99, stats.Stolen, stats.StealAttempts)
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 100_000, "number of tasks to submit")
	return cmd
}
