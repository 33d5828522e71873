package main

import (
	"fmt"
	"os"

	"github.com/anvilos/ingot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ingot: %v\n", err)
		os.Exit(1)
	}
}
