// Package main provides the entry point for the hemin CLI.
package main

import (
	"os"

	"github.com/mpgirro/hemin/cmd/hemin/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
