// Package main is the entry point for the petitiondesk application.
package main

import (
	"fmt"
	"os"

	"github.com/ASHISH26940/petitiondesk/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
