// Package main provides the entry point for the refdex CLI.
package main

import (
	"os"

	"github.com/refdex/refdex/cmd/refdex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
