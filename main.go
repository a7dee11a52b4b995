package main

import (
	"os"

	"github.com/tobiasweide/ragent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
