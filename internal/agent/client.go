package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/giantswarm/cirra-mcp/internal/transport"
)

// ToolError is returned when a tool ran but flagged its result isError.
type ToolError struct {
	Tool string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q reported an error", e.Tool)
}

// ToolInfo is the part of a tool definition the agent works with. Raw keeps
// the full definition as the server sent it.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Raw         json.RawMessage `json:"-"`
}

// Session is the remote MCP session the client drives.
type Session interface {
	ListTools(ctx context.Context) (json.RawMessage, error)
	CallTool(ctx context.Context, name string, args map[string]interface{}) (json.RawMessage, error)
}

// Client invokes tools on the Cirra AI MCP server and renders their results.
type Client struct {
	session Session
	logger  *Logger
	out     io.Writer

	mu         sync.RWMutex
	toolCache  []ToolInfo
	lastResult json.RawMessage
}

// ClientConfig holds configuration for creating a new Client
type ClientConfig struct {
	Session Session
	Logger  *Logger

	// Output receives results. Defaults to stdout.
	Output io.Writer
}

// NewClient creates a new agent client from a configuration
func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = NewDevNullLogger()
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	return &Client{
		session: cfg.Session,
		logger:  cfg.Logger,
		out:     cfg.Output,
	}
}

// ListTools fetches tools/list, refreshes the tool cache and returns the raw result.
func (c *Client) ListTools(ctx context.Context) (json.RawMessage, error) {
	result, err := c.session.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	var list struct {
		Tools []json.RawMessage `json:"tools"`
	}
	if err := json.Unmarshal(result, &list); err != nil {
		c.logger.Warning("Could not read tool definitions: %v", err)
	}

	tools := make([]ToolInfo, 0, len(list.Tools))
	for _, raw := range list.Tools {
		var info ToolInfo
		if err := json.Unmarshal(raw, &info); err != nil || info.Name == "" {
			continue
		}
		info.Raw = raw
		tools = append(tools, info)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })

	c.mu.Lock()
	c.toolCache = tools
	c.lastResult = result
	c.mu.Unlock()

	return result, nil
}

// CallTool calls a tool and returns the raw result. A result flagged isError
// is still returned without error; see Invoke.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (json.RawMessage, error) {
	result, err := c.session.CallTool(ctx, name, args)
	if err != nil {
		return nil, fmt.Errorf("failed to call tool %s: %w", name, err)
	}

	c.mu.Lock()
	c.lastResult = result
	c.mu.Unlock()

	return result, nil
}

// PrintTools lists the tools and writes the result as indented JSON.
func (c *Client) PrintTools(ctx context.Context) error {
	result, err := c.ListTools(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, PrettyJSON(result))
	return err
}

// Invoke calls a tool and renders its content. A result flagged isError is
// rendered first and then returned as a ToolError.
func (c *Client) Invoke(ctx context.Context, name string, args map[string]interface{}) error {
	result, err := c.CallTool(ctx, name, args)
	if err != nil {
		return err
	}

	isError, err := RenderToolResult(c.out, result)
	if err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	if isError {
		return &ToolError{Tool: name}
	}
	return nil
}

// Tools returns the cached tool definitions from the last ListTools call.
func (c *Client) Tools() []ToolInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]ToolInfo(nil), c.toolCache...)
}

// Tool returns a cached tool definition by name.
func (c *Client) Tool(name string) (ToolInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.toolCache {
		if t.Name == name {
			return t, true
		}
	}
	return ToolInfo{}, false
}

// LastResult returns the raw result of the most recent call.
func (c *Client) LastResult() json.RawMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastResult
}

var _ Session = (*transport.Session)(nil)
