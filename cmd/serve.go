package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/giantswarm/cirra-mcp/internal/agent"
)

var (
	serverTransport string
	listenAddr      string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose Cirra AI to local MCP hosts",
		Long: `Runs a local MCP server that forwards to Cirra AI using the stored tokens.

MCP hosts that cannot perform the OAuth flow themselves can start this process
instead. It offers two tools:
- list_tools: the Cirra AI tool catalogue as JSON
- call_tool:  call a Cirra AI tool by name with an arguments object

With --transport stdio (the default) the server speaks MCP on stdin/stdout.
With --transport streamable-http it listens on --listen-addr at /mcp.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serverTransport, "transport", agent.ServerTransportStdio, "Transport for the local MCP server (stdio, streamable-http)")
	cmd.Flags().StringVar(&listenAddr, "listen-addr", ":8899", "Listen address for the streamable-http transport (path is fixed to /mcp)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	setupSignalHandler(cancel, logger)

	client, _, err := connect(cfg, logger, io.Discard)
	if err != nil {
		return err
	}

	server, err := agent.NewMCPServer(client, serverTransport, version, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	addr := listenAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	logger.Info("Starting cirra-mcp MCP server (transport: %s)...", serverTransport)
	if err := server.Start(ctx, addr); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
