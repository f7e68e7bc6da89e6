package main

import (
	"fmt"
	"os"

	"github.com/alcyonehq/alcyone/cmd/cli/commands"
)

func main() {
	// The jobs command group talks to a running server; the rest of the
	// commands drive the pipeline directly over SSH.
	commands.RootCmd.AddCommand(commands.GetJobsCmd())

	if err := commands.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
