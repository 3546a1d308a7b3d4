package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// osExit is swapped out in tests.
var osExit = os.Exit

func main() {
	// Load .env
	loadDotenv(".env")

	root := &cobra.Command{
		Use:           "mcp-preflight",
		Short:         "See what an MCP server does before you trust it",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newScanCmd())
	root.AddCommand(newDiffCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mcp-preflight: %v\n", err)
		osExit(1)
	}
}
