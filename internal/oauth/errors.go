package oauth

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// ErrCSRF is returned when the callback state does not match the one sent.
var ErrCSRF = errors.New("state mismatch - possible CSRF attack")

// ErrAuthorizationTimeout is returned when no callback arrives in time.
var ErrAuthorizationTimeout = errors.New("timed out waiting for the authorization callback")

// ClientRegistrationError reports a failed Dynamic Client Registration.
type ClientRegistrationError struct {
	StatusCode int
	Body       string
}

func (e *ClientRegistrationError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("client registration failed: %s", e.Body)
	}
	return fmt.Sprintf("client registration failed (HTTP %d): %s", e.StatusCode, e.Body)
}

// AuthorizationError carries an error reported by the authorization server
// on the redirect, such as access_denied.
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization failed: %s - %s", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization failed: %s", e.Code)
}

// TokenExchangeError reports a rejected authorization_code grant.
type TokenExchangeError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TokenExchangeError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("token exchange failed: %v", e.Err)
	}
	return fmt.Sprintf("token exchange failed (HTTP %d): %s", e.StatusCode, e.Body)
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

// TokenRefreshError reports a rejected refresh_token grant. The operator has
// to run the authorizer again; there is no automatic fallback.
type TokenRefreshError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TokenRefreshError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("token refresh failed: %v (run 'cirra-mcp auth' to re-authorize)", e.Err)
	}
	return fmt.Sprintf("token refresh failed (HTTP %d): %s (run 'cirra-mcp auth' to re-authorize)", e.StatusCode, e.Body)
}

func (e *TokenRefreshError) Unwrap() error {
	return e.Err
}

// retrieveErrorDetails extracts the HTTP status and raw body from an
// oauth2 token endpoint failure. ok is false for transport-level errors.
func retrieveErrorDetails(err error) (status int, body string, ok bool) {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return 0, "", false
	}
	status = http.StatusBadRequest
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	return status, string(re.Body), true
}
