package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/giantswarm/cirra-mcp/internal/agent"
	"github.com/giantswarm/cirra-mcp/internal/config"
	"github.com/giantswarm/cirra-mcp/internal/credentials"
)

// executeCommand runs the root command with args and returns what was
// written to stdout. Package-level flag values are reset first because cobra
// only assigns flags that appear on the command line.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	configFile = filepath.Join(t.TempDir(), "missing.yaml")
	baseURL = ""
	tokenFile = ""
	verbose = false
	noColor = true
	jsonRPC = false
	callList = false
	serverTransport = agent.ServerTransportStdio
	listenAddr = ":8899"

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// writeTokenFile stores cred in a fresh token file and returns its path.
// The environment source is cleared so the file is the one resolved.
func writeTokenFile(t *testing.T, cred *credentials.Credential) string {
	t.Helper()
	t.Setenv(config.EnvCredentials, "")

	path := filepath.Join(t.TempDir(), "mcp-oauth.json")
	require.NoError(t, credentials.NewFileStore(path).Save(cred))
	return path
}

func readTokenFile(t *testing.T, path string) *credentials.Credential {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cred credentials.Credential
	require.NoError(t, json.Unmarshal(data, &cred))
	return &cred
}

type rpcCall struct {
	Method string
	Params map[string]interface{}
	Auth   string
}

// cirraStub is a Cirra-like origin serving /token and /mcp. Tool calls are
// answered over an event stream, everything else as plain JSON.
type cirraStub struct {
	*httptest.Server

	mu            sync.Mutex
	calls         []rpcCall
	tokenRequests int
	toolResult    string
	tokenBody     string
}

func newCirraStub(t *testing.T) *cirraStub {
	t.Helper()

	s := &cirraStub{
		toolResult: `{"content":[{"type":"text","text":"hello from cirra"}]}`,
		tokenBody:  `{"access_token":"fresh","refresh_token":"rotated","token_type":"Bearer","expires_in":3600}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", s.handleToken)
	mux.HandleFunc("/mcp", s.handleMCP)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *cirraStub) handleToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.tokenRequests++
	body := s.tokenBody
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (s *cirraStub) handleMCP(w http.ResponseWriter, r *http.Request) {
	var msg struct {
		ID     json.RawMessage        `json:"id"`
		Method string                 `json:"method"`
		Params map[string]interface{} `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, rpcCall{Method: msg.Method, Params: msg.Params, Auth: r.Header.Get("Authorization")})
	toolResult := s.toolResult
	s.mu.Unlock()

	if msg.ID == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	var result string
	switch msg.Method {
	case "initialize":
		w.Header().Set("Mcp-Session-Id", "session-1")
		result = `{"protocolVersion":"2025-06-18","capabilities":{"tools":{}},"serverInfo":{"name":"cirra","version":"1.0.0"}}`
	case "tools/list":
		result = `{"tools":[{"name":"soql_query","description":"Run a SOQL query"}]}`
	case "tools/call":
		w.Header().Set("Content-Type", "text/event-stream")
		frame := `{"jsonrpc":"2.0","id":` + string(msg.ID) + `,"result":` + toolResult + `}`
		_, _ = w.Write([]byte("event: message\ndata: " + frame + "\n\n"))
		return
	default:
		http.Error(w, "unknown method", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(msg.ID) + `,"result":` + result + `}`))
}

func (s *cirraStub) recorded() []rpcCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rpcCall(nil), s.calls...)
}

func (s *cirraStub) lastCall(method string) (rpcCall, bool) {
	calls := s.recorded()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Method == method {
			return calls[i], true
		}
	}
	return rpcCall{}, false
}

func (s *cirraStub) tokenCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenRequests
}

func validCredential(url string) *credentials.Credential {
	return &credentials.Credential{
		Server:       config.DefaultServerName,
		URL:          url,
		ClientID:     "client-1",
		AccessToken:  "stored",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
	}
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
