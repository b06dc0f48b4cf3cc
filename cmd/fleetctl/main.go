package main

import (
	"os"

	"github.com/coderun-dev/fleet/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
