package main

import (
	"os"

	"corpus-manager/internal/cli"

	"github.com/fatih/color"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
