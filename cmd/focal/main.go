// Package main is the entry point for the focal CLI.
package main

import (
	"os"

	"github.com/roach88/focal/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		cmd.PrintErrln("Error:", err.Error())
		os.Exit(cli.GetExitCode(err))
	}
}
