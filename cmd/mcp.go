package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/auto-analyst/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing analyst sessions as tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()

		mcpserver.Version = Version
		fmt.Fprintf(os.Stderr, "analyst MCP server started on stdio (data=%s)\n", a.cfg.DataDir)
		return mcpserver.NewServer(a.service).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
