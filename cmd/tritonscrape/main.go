// Package main is the entry point for the tritonscrape CLI.
package main

import (
	"os"

	"github.com/jmylchreest/tritonscrape/cmd/tritonscrape/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
