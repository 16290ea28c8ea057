package main

import (
	"os"

	"github.com/RichardoC/dehost/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
