package main

import (
	"os"

	"github.com/recordql/recordql/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
