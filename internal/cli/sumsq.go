package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Baizho/taskrun"
	"github.com/Baizho/taskrun/parallel"
)

func newSumSqCmd() *cobra.Command {
	var n int64

	cmd := &cobra.Command{
		Use:   "sumsq",
		Short: "Compute sum of i*i for i in [0, N) via parallel.Reduce",
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

			sum, err := parallel.Reduce(context.Background(), pool, 0, int(n), int64(0),
				func(i int) int64 { return int64(i) * int64(i) },
				func(a, b int64) int64 { return a + b },
			)
			if err != nil {
				return fmt.Errorf("reduce: %w", err)
			}

			fmt.Println(sum)
			return nil
		},
	}

	cmd.Flags().Int64Var(&n, "n", 10_000_000, "upper bound (exclusive)")
	return cmd
}
