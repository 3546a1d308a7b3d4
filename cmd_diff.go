package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jordanstarrk/mcp-preflight/internal/engine"
)

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <before.json> <after.json>",
		Short: "Structurally compare two saved probe reports",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			before, err := engine.LoadReport(args[0])
			if err != nil {
				return err
			}
			after, err := engine.LoadReport(args[1])
			if err != nil {
				return err
			}
			fmt.Print(engine.DiffReports(before, after))
			return nil
		},
	}
}
