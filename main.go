// ABOUTME: Entry point for the clientcd blog client
// ABOUTME: Runs the command-line interface, or the TUI when no subcommand is given

package main

import (
	"fmt"
	"os"

	"github.com/ToniTF/clientcd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
