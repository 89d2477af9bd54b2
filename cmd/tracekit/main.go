// Command tracekit is the CLI entry point for the tracing engine: it parses
// flags, builds a TracerConfig, and streams per-hop results to stdout as
// they arrive.
package main

import (
	"fmt"
	"os"
)

func main() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tracekit:", err)
		os.Exit(1)
	}
}
