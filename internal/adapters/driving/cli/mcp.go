package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/wirestore/internal/adapters/driving/mcp"
	"github.com/custodia-labs/wirestore/internal/core/ports/driving"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can read and
write records and trigger a sync.

By default, the server communicates over stdio using JSON-RPC.
Use --port to start an HTTP server instead.

Tools:     record_get, record_set, record_delete, record_list, sync_now
Resources: wirestore://status, wirestore://types, wirestore://records/{type}

Examples:
  # Stdio mode (default)
  wirestore mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  wirestore mcp serve --port 8080`,
	Args: cobra.NoArgs,
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

	a, session, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer session.Close()
	followConfig(cmd.Context(), a, session)

	ports := &mcp.Ports{
		Records: make(map[string]driving.RecordService, len(session.Types())),
		Sync:    session.Engine(),
	}
	for _, t := range session.Types() {
		c, err := session.Collection(t)
		if err != nil {
			return err
		}
		ports.Records[t] = c
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
