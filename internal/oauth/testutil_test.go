package oauth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// mockAuthServer is a minimal Cirra-like authorization server exposing
// /register and /token.
//
// SECURITY NOTE: test-only. It does not validate PKCE or client identity.
type mockAuthServer struct {
	*httptest.Server
	t *testing.T

	mu                sync.Mutex
	registerStatus    int
	registerBody      string
	tokenStatus       int
	tokenBody         string
	registrations     []registrationRequest
	tokenRequests     []url.Values
	tokenRequestCount int
}

func newMockAuthServer(t *testing.T) *mockAuthServer {
	t.Helper()

	m := &mockAuthServer{
		t:              t,
		registerStatus: http.StatusCreated,
		registerBody:   `{"client_id":"abc","client_name":"cirra-mcp"}`,
		tokenStatus:    http.StatusOK,
		tokenBody:      `{"access_token":"AT1","refresh_token":"RT1","token_type":"Bearer","expires_in":3600,"scope":"mcp"}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/register", m.handleRegister)
	mux.HandleFunc("/token", m.handleToken)
	m.Server = httptest.NewServer(mux)
	t.Cleanup(m.Close)
	return m
}

func (m *mockAuthServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.registrations = append(m.registrations, req)
	status, body := m.registerStatus, m.registerBody
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (m *mockAuthServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.tokenRequests = append(m.tokenRequests, r.PostForm)
	m.tokenRequestCount++
	status, body := m.tokenStatus, m.tokenBody
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (m *mockAuthServer) setToken(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenStatus, m.tokenBody = status, body
}

func (m *mockAuthServer) setRegister(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registerStatus, m.registerBody = status, body
}

func (m *mockAuthServer) tokenCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokenRequestCount
}

func (m *mockAuthServer) lastTokenRequest() url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tokenRequests) == 0 {
		return nil
	}
	return m.tokenRequests[len(m.tokenRequests)-1]
}
