// Package agent is the user-facing side of cirra-mcp.
//
// It turns a transport session into something an operator can drive:
//
//   - Client: lists and invokes Cirra AI tools and renders their results
//   - ParseToolArgs: the "--key value" / "key:value" argument grammar
//   - REPL: an interactive shell over one session, with tab completion
//   - MCPServer: re-exposes the remote tools through a local MCP server
//   - Logger: formatted logging with color support and JSON-RPC tracing
//
// All diagnostics go to the logger's writer (stderr by default); results
// are written to the configured output so they can be piped.
package agent
