package main

import (
	"os"

	"github.com/ClausMunch/PIMMeUpScotty/cmd/pim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
