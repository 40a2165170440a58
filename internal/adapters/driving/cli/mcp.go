package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chartrail/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can query the
classification index, find missing documents and inspect stored artifacts.

By default, the server communicates over stdio using JSON-RPC.
Use --port to start an HTTP server instead. The HTTP server binds to
127.0.0.1 unless --host says otherwise; captured records are patient data.

Examples:
  # Stdio mode (default)
  chartrail mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  chartrail mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "chartrail": {
        "command": "/path/to/chartrail",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

var (
	mcpPort int
	mcpHost string
)

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().StringVar(&mcpHost, "host", "127.0.0.1", "HTTP bind address")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if mcpPort < 0 || mcpPort > 65535 {
		return fmt.Errorf("invalid port %d", mcpPort)
	}

	ports := &mcp.Ports{
		Index:     indexService,
		Capture:   captureService,
		Retrieval: retrievalService,
		Artifact:  artifactService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if mcpPort > 0 {
		addr := net.JoinHostPort(mcpHost, strconv.Itoa(mcpPort))
		cmd.Printf("MCP server listening on http://%s/\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
