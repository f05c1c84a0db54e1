// Package oauth implements the client side of the Cirra AI authorization flow.
//
// The flow is OAuth 2.1 Authorization Code with PKCE:
//   - Dynamic Client Registration (RFC 7591) as a public client
//   - S256 code challenge (RFC 7636)
//   - a single-shot loopback callback server that checks the state parameter
//     before the code is ever exchanged
//   - refresh_token grants for the tool invoker
//
// Token endpoint requests go through golang.org/x/oauth2; failures are mapped
// to typed errors carrying the HTTP status and raw response body.
package oauth
