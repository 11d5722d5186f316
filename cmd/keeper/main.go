package main

import (
	"os"

	"keeper/cmd/keeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
