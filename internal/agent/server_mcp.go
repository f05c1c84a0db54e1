package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server transports supported by MCPServer.
const (
	ServerTransportStdio          = "stdio"
	ServerTransportStreamableHTTP = "streamable-http"
)

// MCPServer re-exposes the Cirra AI tools through a local MCP server
type MCPServer struct {
	client          *Client
	logger          *Logger
	mcpServer       *server.MCPServer
	serverTransport string

	// upstream serialises calls on the single Cirra session
	upstream sync.Mutex
}

// NewMCPServer creates a new MCP server that proxies to the given client
func NewMCPServer(client *Client, serverTransport, version string, logger *Logger) (*MCPServer, error) {
	switch serverTransport {
	case ServerTransportStdio, ServerTransportStreamableHTTP:
	default:
		return nil, fmt.Errorf("unsupported server transport: %s", serverTransport)
	}

	mcpServer := server.NewMCPServer(
		"cirra-mcp",
		version,
		server.WithToolCapabilities(false),
	)

	ms := &MCPServer{
		client:          client,
		logger:          logger,
		mcpServer:       mcpServer,
		serverTransport: serverTransport,
	}

	ms.registerTools()

	return ms, nil
}

// Start starts the MCP server using stdio or streamable-http transport
func (m *MCPServer) Start(ctx context.Context, listenAddr string) error {
	switch m.serverTransport {
	case ServerTransportStdio:
		return server.ServeStdio(m.mcpServer)
	case ServerTransportStreamableHTTP:
		httpServer := server.NewStreamableHTTPServer(
			m.mcpServer,
			server.WithEndpointPath("/mcp"),
		)
		m.logger.Info("Serving MCP on http://%s/mcp", listenAddr)

		errCh := make(chan error, 1)
		go func() { errCh <- httpServer.Start(listenAddr) }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			m.logger.Info("Shutting down MCP server...")
			return httpServer.Shutdown(context.Background())
		}
	default:
		return fmt.Errorf("unsupported server transport: %s", m.serverTransport)
	}
}

// registerTools registers all MCP tools
func (m *MCPServer) registerTools() {
	listToolsTool := mcp.NewTool("list_tools",
		mcp.WithDescription("List the tools offered by the Cirra AI MCP server"),
	)
	m.mcpServer.AddTool(listToolsTool, m.handleListTools)

	callToolTool := mcp.NewTool("call_tool",
		mcp.WithDescription("Execute a Cirra AI tool with the given arguments"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the tool to call"),
		),
		mcp.WithObject("arguments",
			mcp.Description("Arguments to pass to the tool (as JSON object)"),
		),
	)
	m.mcpServer.AddTool(callToolTool, m.handleCallTool)
}
