// Package main provides the entry point for the girs CLI.
package main

import (
	"fmt"
	"os"

	"github.com/raphaelgruber/girs/internal/cli"
	"github.com/raphaelgruber/girs/internal/client"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", client.UserMessage(err))
		os.Exit(1)
	}
}
