package oauth

import (
	"context"
	"crypto/subtle"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"
)

// CallbackPath is the only route served by the callback listener.
const CallbackPath = "/callback"

//go:embed templates/callback_success.html
var callbackSuccessHTML string

//go:embed templates/callback_error.html
var callbackErrorHTML string

var (
	successTemplate = template.Must(template.New("success").Parse(callbackSuccessHTML))
	errorTemplate   = template.Must(template.New("error").Parse(callbackErrorHTML))
)

// CodeExchanger turns an authorization code into tokens. It runs inside the
// callback request so the browser learns whether the exchange succeeded.
type CodeExchanger func(ctx context.Context, code string) error

// CallbackServer is a temporary loopback HTTP server that receives exactly one
// OAuth redirect, validates it, runs the code exchange and reports the outcome.
type CallbackServer struct {
	listener net.Listener
	server   *http.Server
	port     int

	// Set by Serve.
	ctx      context.Context
	state    string
	exchange CodeExchanger

	resultCh chan error
	errorCh  chan error
	once     sync.Once
	stopOnce sync.Once
}

// ListenCallback binds the callback listener on 127.0.0.1:port.
// Port 0 picks a free port, which tests rely on.
func ListenCallback(port int) (*CallbackServer, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}

	return &CallbackServer{
		listener: listener,
		port:     listener.Addr().(*net.TCPAddr).Port,
		resultCh: make(chan error, 1),
		errorCh:  make(chan error, 1),
	}, nil
}

// RedirectURI returns the URI to register and send in the authorization request.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d%s", s.port, CallbackPath)
}

// Port returns the bound port.
func (s *CallbackServer) Port() int {
	return s.port
}

// Serve starts handling requests. The callback is accepted only if its state
// equals expectedState; only then is exchange called with the code.
func (s *CallbackServer) Serve(ctx context.Context, expectedState string, exchange CodeExchanger) {
	s.ctx = ctx
	s.state = expectedState
	s.exchange = exchange

	// Isolated ServeMux: anything but /callback gets a 404 and changes nothing
	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, s.handleCallback)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errorCh <- err:
			default:
			}
		}
	}()
}

// Wait blocks until the callback has been processed, the timeout elapses or
// ctx is cancelled, whichever happens first.
func (s *CallbackServer) Wait(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-s.resultCh:
		return err
	case err := <-s.errorCh:
		return fmt.Errorf("callback server error: %w", err)
	case <-timer.C:
		return ErrAuthorizationTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handleCallback processes the first request to /callback; later ones are rejected.
func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	var handled bool
	s.once.Do(func() {
		handled = true
		err := s.processCallback(w, r)
		select {
		case s.resultCh <- err:
		default:
		}
	})

	if !handled {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
	}
}

// processCallback validates the redirect and runs the exchange.
// Called exactly once via sync.Once.
func (s *CallbackServer) processCallback(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")

	query := r.URL.Query()

	if code := query.Get("error"); code != "" {
		authErr := &AuthorizationError{Code: code, Description: query.Get("error_description")}
		renderError(w, http.StatusBadRequest, authErr.Code, authErr.Description)
		return authErr
	}

	if subtle.ConstantTimeCompare([]byte(query.Get("state")), []byte(s.state)) != 1 {
		renderError(w, http.StatusBadRequest, "invalid_state", "The state parameter did not match this authorization attempt.")
		return ErrCSRF
	}

	code := query.Get("code")
	if code == "" {
		authErr := &AuthorizationError{Code: "missing_code", Description: "callback did not include an authorization code"}
		renderError(w, http.StatusBadRequest, authErr.Code, authErr.Description)
		return authErr
	}

	ctx := s.ctx
	if ctx == nil {
		ctx = r.Context()
	}
	if err := s.exchange(ctx, code); err != nil {
		renderError(w, http.StatusInternalServerError, "token_exchange_failed", err.Error())
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = successTemplate.Execute(w, nil)
	return nil
}

func renderError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = errorTemplate.Execute(w, map[string]string{
		"Error":       code,
		"Description": description,
	})
}

// Stop shuts the server down, letting an in-flight response finish.
// It is safe to call more than once.
func (s *CallbackServer) Stop() {
	s.stopOnce.Do(func() {
		if s.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.server.Shutdown(ctx)
		}
		_ = s.listener.Close()
	})
}
