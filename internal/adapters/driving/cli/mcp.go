package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/carat/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The newest model is loaded (or trained) first. By default the server talks
JSON-RPC over stdio; use --port to serve HTTP instead.

Examples:
  carat mcp serve
  carat mcp serve --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "carat": {
        "command": "/path/to/carat",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	a, _, err := openApp(nil)
	if err != nil {
		return err
	}
	if _, err := a.lifecycle.Bootstrap(cmd.Context()); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	server, err := mcp.NewServer(&mcp.Ports{Lifecycle: a.lifecycle})
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
