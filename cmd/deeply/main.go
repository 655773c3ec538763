package main

import (
	"os"

	"github.com/bpradana/deeply/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
