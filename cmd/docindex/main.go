// Package main provides the entry point for the docindex CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/docindex/cmd/docindex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		cmd.ReportError(os.Stderr, err)
		os.Exit(1)
	}
}
