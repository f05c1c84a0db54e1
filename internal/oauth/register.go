package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBody caps how much of an error body we keep.
const maxResponseBody = 64 * 1024

// registrationRequest is the RFC 7591 client metadata we send.
type registrationRequest struct {
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
}

// registrationResponse holds the fields of the RFC 7591 response we use.
type registrationResponse struct {
	ClientID string `json:"client_id"`
}

// RegisterClient performs Dynamic Client Registration as a public client
// (no secret) and returns the issued client_id.
func RegisterClient(ctx context.Context, httpClient *http.Client, registrationURL, clientName, redirectURI string) (string, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	payload, err := json.Marshal(registrationRequest{
		ClientName:              clientName,
		RedirectURIs:            []string{redirectURI},
		GrantTypes:              []string{"authorization_code", "refresh_token"},
		ResponseTypes:           []string{"code"},
		TokenEndpointAuthMethod: "none",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal registration request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, registrationURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create registration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("client registration request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("failed to read registration response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ClientRegistrationError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var reg registrationResponse
	if err := json.Unmarshal(body, &reg); err != nil {
		return "", &ClientRegistrationError{StatusCode: resp.StatusCode, Body: fmt.Sprintf("invalid registration response: %v", err)}
	}
	if reg.ClientID == "" {
		return "", &ClientRegistrationError{StatusCode: resp.StatusCode, Body: "registration response did not include a client_id"}
	}

	return reg.ClientID, nil
}
