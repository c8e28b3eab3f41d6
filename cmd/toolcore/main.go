// Command toolcore wires the Tool Registry, Permission Checker, Hook
// Lifecycle Engine, File Lock Manager, and Pipeline into a runnable
// harness: a one-shot "call" command and a "serve-mcp" command that
// exposes the registry over the Model Context Protocol.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "toolcore",
		Short:   "Tool execution core for an AI coding assistant",
		Version: version,
	}
	cmd.AddCommand(newCallCommand())
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newServeMCPCommand())
	return cmd
}
