package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	// HeaderSessionID carries the server-assigned MCP session id.
	HeaderSessionID = "Mcp-Session-Id"

	acceptHeader = "application/json, text/event-stream"

	methodNotifyInitialized = "notifications/initialized"

	// maxErrorBody caps how much of a non-2xx body is kept.
	maxErrorBody = 64 * 1024
)

// TokenSource yields the bearer token for an operation. It is consulted once
// per Call, before any request of that Call is sent, so it can refresh an
// expiring token without refreshing again mid-operation.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Tracer receives the JSON-RPC traffic of a session.
type Tracer interface {
	Request(method string, params interface{})
	Response(method string, result interface{})
	Debug(format string, args ...interface{})
}

type nopTracer struct{}

func (nopTracer) Request(string, interface{})  {}
func (nopTracer) Response(string, interface{}) {}
func (nopTracer) Debug(string, ...interface{}) {}

// Config configures a Session.
type Config struct {
	// Endpoint is the full MCP URL, e.g. https://mcp.cirra.ai/mcp.
	Endpoint string

	HTTPClient *http.Client

	// Tokens supplies the bearer token. Nil sends no Authorization header.
	Tokens TokenSource

	// ClientName and ClientVersion are sent as clientInfo on initialize.
	ClientName    string
	ClientVersion string

	Tracer Tracer
}

// Session is one MCP session against a remote server.
//
// Calls are safe for concurrent use, but each request is independent; callers
// that need ordering must serialise themselves.
type Session struct {
	endpoint   string
	httpClient *http.Client
	tokens     TokenSource
	clientInfo mcp.Implementation
	tracer     Tracer

	mu          sync.Mutex
	nextID      int64
	sessionID   string
	initialized bool
	serverInfo  mcp.Implementation
	protocol    string
}

// NewSession creates an uninitialized session. The first request id is 1.
func NewSession(cfg Config) *Session {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Tracer == nil {
		cfg.Tracer = nopTracer{}
	}
	return &Session{
		endpoint:   cfg.Endpoint,
		httpClient: cfg.HTTPClient,
		tokens:     cfg.Tokens,
		clientInfo: mcp.Implementation{Name: cfg.ClientName, Version: cfg.ClientVersion},
		tracer:     cfg.Tracer,
		nextID:     1,
	}
}

// SessionID returns the captured Mcp-Session-Id, empty until the server sends one.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// ServerInfo returns the server implementation reported on initialize.
func (s *Session) ServerInfo() mcp.Implementation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverInfo
}

// ProtocolVersion returns the protocol version agreed on initialize.
func (s *Session) ProtocolVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.protocol
}

// Initialized reports whether the handshake has completed.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

type initializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    mcp.ClientCapabilities `json:"capabilities"`
	ClientInfo      mcp.Implementation     `json:"clientInfo"`
}

type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ServerInfo      mcp.Implementation `json:"serverInfo"`
}

// Initialize performs the MCP handshake. Any failure is returned as a
// SessionInitializationError. The follow-up notifications/initialized is
// best-effort: its failures are traced and dropped.
func (s *Session) Initialize(ctx context.Context) error {
	token, err := s.accessToken(ctx)
	if err != nil {
		return &SessionInitializationError{Err: err}
	}
	return s.initialize(ctx, token)
}

func (s *Session) initialize(ctx context.Context, token string) error {
	raw, err := s.request(ctx, token, string(mcp.MethodInitialize), initializeParams{
		ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
		Capabilities:    mcp.ClientCapabilities{},
		ClientInfo:      s.clientInfo,
	})
	if err != nil {
		return &SessionInitializationError{Err: err}
	}

	var result initializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return &SessionInitializationError{Err: fmt.Errorf("invalid initialize result: %w", err)}
	}

	s.mu.Lock()
	s.initialized = true
	s.serverInfo = result.ServerInfo
	s.protocol = result.ProtocolVersion
	s.mu.Unlock()

	if err := s.notify(ctx, token, methodNotifyInitialized, nil); err != nil {
		s.tracer.Debug("Ignoring %s failure: %v", methodNotifyInitialized, err)
	}
	return nil
}

// Call issues a JSON-RPC request and returns the raw result member. The
// session is initialized first if needed.
//
// The token source is consulted once per Call; the handshake, the
// notification and the request itself all carry that token.
func (s *Session) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	if !s.Initialized() {
		if err := s.initialize(ctx, token); err != nil {
			return nil, err
		}
	}
	return s.request(ctx, token, method, params)
}

// ListTools calls tools/list and returns the raw result.
func (s *Session) ListTools(ctx context.Context) (json.RawMessage, error) {
	return s.Call(ctx, string(mcp.MethodToolsList), struct{}{})
}

type callToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// CallTool calls tools/call with the given arguments and returns the raw result.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]interface{}) (json.RawMessage, error) {
	if args == nil {
		args = map[string]interface{}{}
	}
	return s.Call(ctx, string(mcp.MethodToolsCall), callToolParams{Name: name, Arguments: args})
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      *int64      `json:"id,omitempty"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// notify sends a JSON-RPC notification. Any response body is ignored.
func (s *Session) notify(ctx context.Context, token, method string, params interface{}) error {
	s.tracer.Request(method, params)

	resp, err := s.post(ctx, token, rpcRequest{JSONRPC: mcp.JSONRPC_VERSION, Method: method, Params: params})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// accessToken asks the token source for the bearer token of one operation.
// Without a source no Authorization header is sent.
func (s *Session) accessToken(ctx context.Context) (string, error) {
	if s.tokens == nil {
		return "", nil
	}
	return s.tokens.AccessToken(ctx)
}

// request sends one JSON-RPC request and decodes its response.
func (s *Session) request(ctx context.Context, token, method string, params interface{}) (json.RawMessage, error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.mu.Unlock()

	s.tracer.Request(method, params)

	resp, err := s.post(ctx, token, rpcRequest{JSONRPC: mcp.JSONRPC_VERSION, ID: &id, Method: method, Params: params})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := readResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	var msg rpcResponse
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%s: invalid JSON-RPC response: %w", method, err)
	}
	if msg.Error != nil {
		return nil, msg.Error
	}

	s.tracer.Response(method, msg.Result)
	return msg.Result, nil
}

// post sends a JSON-RPC message. The returned response always has a 2xx
// status; anything else is turned into a TransportError.
func (s *Session) post(ctx context.Context, token string, msg rpcRequest) (*http.Response, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", msg.Method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", acceptHeader)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := s.SessionID(); id != "" {
		req.Header.Set(HeaderSessionID, id)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", msg.Method, err)
	}

	if id := resp.Header.Get(HeaderSessionID); id != "" {
		s.mu.Lock()
		if s.sessionID != id {
			s.tracer.Debug("MCP session id: %s", id)
		}
		s.sessionID = id
		s.mu.Unlock()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(errBody))}
	}
	return resp, nil
}

// readResponse extracts the JSON-RPC response from a 2xx body, choosing the
// decoder by content type.
func readResponse(resp *http.Response) (json.RawMessage, error) {
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/event-stream" {
		return readEventStream(resp.Body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
