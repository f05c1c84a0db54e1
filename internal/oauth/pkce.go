package oauth

import (
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// pkceMethodS256 is the only code challenge method we send.
const pkceMethodS256 = "S256"

// PKCEChallenge represents a PKCE (Proof Key for Code Exchange) pair.
// It lives only for one authorization attempt and is never persisted.
type PKCEChallenge struct {
	// CodeVerifier is 32 random bytes, base64url-encoded (43 characters).
	// It is kept secret and only sent to the token endpoint.
	CodeVerifier string

	// CodeChallenge is the base64url-encoded SHA256 of the verifier.
	CodeChallenge string

	// CodeChallengeMethod is always "S256".
	CodeChallengeMethod string
}

// GeneratePKCE generates a new PKCE code verifier and S256 challenge.
func GeneratePKCE() *PKCEChallenge {
	verifier := oauth2.GenerateVerifier()
	return &PKCEChallenge{
		CodeVerifier:        verifier,
		CodeChallenge:       oauth2.S256ChallengeFromVerifier(verifier),
		CodeChallengeMethod: pkceMethodS256,
	}
}

// GenerateState returns a random state value binding the callback to this
// authorization attempt.
func GenerateState() string {
	return uuid.NewString()
}
