package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the taskrunctl command tree: run, sumsq, bench.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskrunctl",
		Short: "Demo and benchmark harness for the taskrun scheduler",
	}

	root.PersistentFlags().Int("workers", 0, "worker count (0 = runtime.GOMAXPROCS)")
	root.PersistentFlags().Int("steal-attempts", 4, "steal attempts per idle round")

	root.AddCommand(newRunCmd())
	root.AddCommand(newSumSqCmd())
	root.AddCommand(newBenchCmd())

	return root
}
