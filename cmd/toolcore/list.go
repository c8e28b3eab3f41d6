package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every registered tool",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := buildRegistry()
			if err != nil {
				return err
			}
			for _, decl := range registry.ListDeclarations() {
				fmt.Printf("%s\t%s\n", decl.Name, decl.Description)
			}
			return nil
		},
	}
}
