package oauth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/giantswarm/cirra-mcp/internal/credentials"
)

// Logger is the subset of the agent logger the OAuth flow reports through.
type Logger interface {
	Info(format string, args ...interface{})
	Success(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})    {}
func (nopLogger) Success(string, ...interface{}) {}
func (nopLogger) Warning(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{})   {}

// AuthorizerConfig configures an Authorizer.
type AuthorizerConfig struct {
	// BaseURL is the origin hosting /register, /authorize and /token.
	BaseURL string

	// ServerName is written to the credential record's "server" field.
	ServerName string

	// ClientName is sent during Dynamic Client Registration.
	ClientName string

	// CallbackPort is the loopback port for the redirect. 0 picks a free port.
	CallbackPort int

	// Timeout bounds the wait for the browser callback.
	Timeout time.Duration

	// HTTPClient is used for registration and token requests.
	HTTPClient *http.Client

	// OpenBrowser launches the authorization URL. Defaults to OpenBrowser.
	OpenBrowser func(url string) error

	// WaitIndicator, if set, is called when the flow starts waiting for the
	// browser and returns a function that ends the indication.
	WaitIndicator func() (stop func())

	Logger Logger
}

// Authorizer obtains a fresh credential record through the OAuth 2.1
// Authorization Code flow with PKCE and Dynamic Client Registration.
type Authorizer struct {
	cfg AuthorizerConfig
}

// NewAuthorizer creates an Authorizer, filling in defaults.
func NewAuthorizer(cfg AuthorizerConfig) *Authorizer {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.OpenBrowser == nil {
		cfg.OpenBrowser = OpenBrowser
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Authorizer{cfg: cfg}
}

// Authorize runs the whole flow and returns the new credential record.
// Nothing is persisted here; the caller stores the record on success.
func (a *Authorizer) Authorize(ctx context.Context) (*credentials.Credential, error) {
	log := a.cfg.Logger

	// Bind first: a busy port should fail before a client gets registered
	callback, err := ListenCallback(a.cfg.CallbackPort)
	if err != nil {
		return nil, err
	}
	defer callback.Stop()
	redirectURI := callback.RedirectURI()
	log.Debug("Callback listener bound on %s", redirectURI)

	log.Info("Registering OAuth client with %s...", a.cfg.BaseURL)
	clientID, err := RegisterClient(ctx, a.cfg.HTTPClient, a.cfg.BaseURL+"/register", a.cfg.ClientName, redirectURI)
	if err != nil {
		return nil, err
	}
	log.Success("Client registered successfully with ID: %s", clientID)

	pkce := GeneratePKCE()
	state := GenerateState()
	conf := a.oauth2Config(clientID, redirectURI)
	authURL := conf.AuthCodeURL(state, oauth2.S256ChallengeOption(pkce.CodeVerifier))

	var cred *credentials.Credential
	callback.Serve(ctx, state, func(ctx context.Context, code string) error {
		log.Success("Authorization code received")
		log.Info("Exchanging code for access token...")
		c, err := a.exchange(ctx, conf, code, pkce.CodeVerifier)
		if err != nil {
			return err
		}
		cred = c
		return nil
	})

	log.Info("Opening browser for authorization...")
	if err := a.cfg.OpenBrowser(authURL); err != nil {
		log.Warning("Could not open browser automatically: %v", err)
		log.Info("Please open this URL in your browser:")
	}
	log.Info("Authorization URL: %s", authURL)

	stop := func() {}
	if a.cfg.WaitIndicator != nil {
		stop = a.cfg.WaitIndicator()
	}
	err = callback.Wait(ctx, a.cfg.Timeout)
	stop()
	if err != nil {
		return nil, err
	}

	log.Success("Access token obtained successfully!")
	return cred, nil
}

func (a *Authorizer) oauth2Config(clientID, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   a.cfg.BaseURL + "/authorize",
			TokenURL:  a.cfg.BaseURL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// exchange redeems the authorization code with the PKCE verifier.
func (a *Authorizer) exchange(ctx context.Context, conf *oauth2.Config, code, verifier string) (*credentials.Credential, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.cfg.HTTPClient)

	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		if status, body, ok := retrieveErrorDetails(err); ok {
			return nil, &TokenExchangeError{StatusCode: status, Body: body, Err: err}
		}
		return nil, &TokenExchangeError{Err: err}
	}

	cred := &credentials.Credential{
		Server:   a.cfg.ServerName,
		URL:      a.cfg.BaseURL,
		ClientID: conf.ClientID,
	}
	applyToken(cred, tok)
	return cred, nil
}

// applyToken copies a token endpoint response onto cred. The refresh token is
// only replaced when the server sent a new one; expires_at always follows the
// latest response.
func applyToken(cred *credentials.Credential, tok *oauth2.Token) {
	cred.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		cred.RefreshToken = tok.RefreshToken
	}
	if tok.TokenType != "" {
		cred.TokenType = tok.TokenType
	}
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		cred.Scope = scope
	}

	// oauth2 sets Expiry to receipt time + expires_in, zero when absent
	cred.ExpiresAt = nil
	if !tok.Expiry.IsZero() {
		ms := tok.Expiry.UnixMilli()
		cred.ExpiresAt = &ms
	}
}
