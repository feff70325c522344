package main

import (
	"os"

	"github.com/ppiankov/wiresync/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
