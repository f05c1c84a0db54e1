package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// handleListTools handles the list_tools tool request
func (m *MCPServer) handleListTools(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m.upstream.Lock()
	result, err := m.client.ListTools(ctx)
	m.upstream.Unlock()
	if err != nil {
		m.logger.Error("list_tools failed: %v", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

// handleCallTool handles the call_tool request
func (m *MCPServer) handleCallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments type"), nil
	}

	toolName, ok := args["name"].(string)
	if !ok || toolName == "" {
		return mcp.NewToolResultError("missing or invalid 'name' argument"), nil
	}

	var toolArgs map[string]interface{}
	if argValue, exists := args["arguments"]; exists && argValue != nil {
		toolArgs, ok = argValue.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("'arguments' must be an object"), nil
		}
	}

	m.upstream.Lock()
	result, err := m.client.CallTool(ctx, toolName, toolArgs)
	m.upstream.Unlock()
	if err != nil {
		m.logger.Error("call_tool %s failed: %v", toolName, err)
		return mcp.NewToolResultError(fmt.Sprintf("tool call failed: %v", err)), nil
	}

	return proxyResult(result), nil
}

// proxyResult turns a Cirra tools/call result into a local one: every
// content item is passed through as text and isError is preserved.
func proxyResult(raw json.RawMessage) *mcp.CallToolResult {
	var envelope struct {
		Content []json.RawMessage `json:"content"`
		IsError bool              `json:"isError"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Content == nil {
		out := mcp.NewToolResultText(PrettyJSON(raw))
		out.IsError = envelope.IsError
		return out
	}

	out := &mcp.CallToolResult{IsError: envelope.IsError}
	for _, item := range envelope.Content {
		out.Content = append(out.Content, mcp.NewTextContent(renderContentItem(item)))
	}
	return out
}
