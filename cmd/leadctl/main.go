// Command leadctl is the operator CLI for the leadwatch worker: it exposes
// the same run-once tick that the worker's internal HTTP API offers at
// /admin/collect-messages, plus schema migration and tick-history
// inspection, which have no HTTP counterpart (spec.md §6 notes run_once is reachable both ways, the way
// pdtkts-goclaw exposes its agent commands alongside its HTTP surface).
package main

import (
	"fmt"
	"os"

	"github.com/leadwatch/leadwatch/cmd/leadctl/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
