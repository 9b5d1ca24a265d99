package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	ermcp "github.com/ajitpratap0/erschema/internal/mcp"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  resolve_schema  convert a diagram, optionally answering decisions automatically
  apply_decision  record a decision and resolve again
  save_schema     store a fully decided schema
  get_schema      fetch a stored schema by ID
  stats           store statistics

If Neo4j is unavailable at startup the server still starts; the storage
tools return MCP error responses.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			st, storeErr := newStore(logger)
			if storeErr != nil {
				logger.Error("mcp: failed to connect to store; storage tools will fail", "error", storeErr)
			} else {
				defer func() { _ = st.Close() }()
			}

			srv := ermcp.NewServer(st, newAdvisor(logger), logger, cfg.Resolve.MaxRounds)

			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: erschema MCP server starting", "transport", "stdio")

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	return cmd
}
