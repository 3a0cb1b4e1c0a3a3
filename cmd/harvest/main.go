// Package main provides the harvest CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/harvest/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
