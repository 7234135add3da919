package cli

import (
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/Baizho/taskrun"
)

func newRunCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit N trivial tasks and print the resulting Stats()",
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

			var completed atomic.Int64
			for i := 0; i < count; i++ {
				if err := pool.Submit(func() {
					completed.Add(1)
				}); err != nil {
					return fmt.Errorf("submit: %w", err)
				}
			}
			pool.Wait()

			stats := pool.Stats()
			fmt.Printf("submitted=%d executed=%d stolen=%d completed(observed)=%d\n",
				stats.Submitted, stats.Executed, stats.Stolen, completed.Load())
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 1000, "number of tasks to submit")
	return cmd
}
