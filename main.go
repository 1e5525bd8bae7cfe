package main

import (
	"os"

	"github.com/backsoul/intake/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
