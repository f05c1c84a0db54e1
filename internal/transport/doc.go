// Package transport speaks JSON-RPC 2.0 to a remote MCP server over HTTP.
//
// A Session owns the request-id counter and the server-assigned
// Mcp-Session-Id. Responses are accepted either as a single JSON body or as
// a text/event-stream, in which case the first data frame carrying a
// JSON-RPC response is used.
package transport
