package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMCPGoServer stands up a real streamable-http MCP server with one tool.
func newMCPGoServer(t *testing.T) *httptest.Server {
	t.Helper()

	s := server.NewMCPServer("cirra-test", "1.0.0", server.WithToolCapabilities(false))
	s.AddTool(
		mcp.NewTool("echo",
			mcp.WithDescription("Echo the given text"),
			mcp.WithString("text", mcp.Required()),
		),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})
			text, _ := args["text"].(string)
			if text == "" {
				return mcp.NewToolResultError("text is required"), nil
			}
			return mcp.NewToolResultText("echo: " + text), nil
		},
	)

	mux := http.NewServeMux()
	mux.Handle("/mcp", server.NewStreamableHTTPServer(s, server.WithEndpointPath("/mcp")))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSession_RoundTripWithMCPServer(t *testing.T) {
	srv := newMCPGoServer(t)
	s := NewSession(Config{Endpoint: srv.URL + "/mcp", ClientName: "cirra-mcp", ClientVersion: "test"})
	ctx := context.Background()

	require.NoError(t, s.Initialize(ctx))
	assert.Equal(t, "cirra-test", s.ServerInfo().Name)
	assert.NotEmpty(t, s.SessionID())

	raw, err := s.ListTools(ctx)
	require.NoError(t, err)

	var list struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list.Tools, 1)
	assert.Equal(t, "echo", list.Tools[0].Name)

	raw, err = s.CallTool(ctx, "echo", map[string]interface{}{"text": "hi"})
	require.NoError(t, err)

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Equal(t, "echo: hi", result.Content[0].Text)

	raw, err = s.CallTool(ctx, "echo", map[string]interface{}{})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.True(t, result.IsError)
}
