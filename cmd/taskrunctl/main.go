// Command taskrunctl is a demo and micro-benchmark harness for the
// taskrun scheduler. It is not part of the library's public surface,
// it exists to exercise Submit/Wait/parallel.For/parallel.Reduce end to
// end from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/Baizho/taskrun/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
