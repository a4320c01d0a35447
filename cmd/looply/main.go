package main

import (
	"os"

	"github.com/celerix-dev/looply/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
