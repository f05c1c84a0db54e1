package transport

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyStreamResponse is returned when an event stream ends without any
// frame carrying a JSON-RPC response.
var ErrEmptyStreamResponse = errors.New("event stream ended without a JSON-RPC response")

// TransportError reports a non-2xx HTTP status from the MCP endpoint.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("MCP request failed with HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("MCP request failed with HTTP %d: %s", e.StatusCode, e.Body)
}

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("JSON-RPC error %d: %s (%s)", e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("JSON-RPC error %d: %s", e.Code, e.Message)
}

// SessionInitializationError wraps any failure of the initialize handshake.
type SessionInitializationError struct {
	Err error
}

func (e *SessionInitializationError) Error() string {
	return fmt.Sprintf("MCP session initialization failed: %v", e.Err)
}

func (e *SessionInitializationError) Unwrap() error {
	return e.Err
}
