// Command tscheck runs TypeScript type checks in a background worker.
package main

import (
	"fmt"
	"os"

	"github.com/wharflab/tscheck/cmd/tscheck/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cmd.ExitFatal)
	}
}
