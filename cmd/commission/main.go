// Package main is the entry point for the commission CLI.
package main

import (
	"os"

	"github.com/warp/commission-engine/cmd/commission/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
