package oauth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/giantswarm/cirra-mcp/internal/credentials"
)

// Refresher runs the refresh_token grant against {base}/token.
// It implements credentials.Refresher.
type Refresher struct {
	baseURL    string
	httpClient *http.Client
}

// NewRefresher creates a refresher. If baseURL is empty, the URL stored in
// each credential record is used.
func NewRefresher(baseURL string, httpClient *http.Client) *Refresher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Refresher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Refresh returns a new record carrying the refreshed tokens. The input is not modified.
func (r *Refresher) Refresh(ctx context.Context, cred *credentials.Credential) (*credentials.Credential, error) {
	if cred.RefreshToken == "" {
		return nil, &TokenRefreshError{Err: errors.New("credential record has no refresh_token")}
	}

	base := r.baseURL
	if base == "" {
		base = strings.TrimRight(cred.URL, "/")
	}

	conf := &oauth2.Config{
		ClientID: cred.ClientID,
		Endpoint: oauth2.Endpoint{
			TokenURL:  base + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)

	// An empty access token is never valid, so the source always hits the endpoint
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken}).Token()
	if err != nil {
		if status, body, ok := retrieveErrorDetails(err); ok {
			return nil, &TokenRefreshError{StatusCode: status, Body: body, Err: err}
		}
		return nil, &TokenRefreshError{Err: err}
	}

	next := cred.Clone()
	applyToken(next, tok)
	return next, nil
}

var _ credentials.Refresher = (*Refresher)(nil)
