package oauth

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/google/uuid"
)

func TestGeneratePKCE(t *testing.T) {
	pkce := GeneratePKCE()

	if len(pkce.CodeVerifier) != 43 {
		t.Errorf("verifier length = %d, want 43", len(pkce.CodeVerifier))
	}
	if pkce.CodeChallengeMethod != "S256" {
		t.Errorf("method = %q, want S256", pkce.CodeChallengeMethod)
	}

	sum := sha256.Sum256([]byte(pkce.CodeVerifier))
	want := base64.RawURLEncoding.EncodeToString(sum[:])
	if pkce.CodeChallenge != want {
		t.Errorf("challenge = %q, want %q", pkce.CodeChallenge, want)
	}

	other := GeneratePKCE()
	if other.CodeVerifier == pkce.CodeVerifier {
		t.Error("two generated verifiers are identical")
	}
}

func TestGenerateState(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		state := GenerateState()
		if _, err := uuid.Parse(state); err != nil {
			t.Fatalf("state %q is not a UUID: %v", state, err)
		}
		if seen[state] {
			t.Fatalf("state %q generated twice", state)
		}
		seen[state] = true
	}
}
