package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sdd-tools/specflow/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Run a Model Context Protocol server exposing workflow operations as
tools. AI assistants connected over stdio can propose task injections,
start and complete tasks, and read workflow status.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEngine(); err != nil {
			return err
		}
		server := mcp.NewServer(Engine, appVersion)
		return server.Run(context.Background())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
