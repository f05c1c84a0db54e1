package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoCredentials is returned when no source holds a credential record.
var ErrNoCredentials = errors.New("no credentials found: run 'cirra-mcp auth' first or set CIRRA_OAUTH_CACHE")

// errNotFound signals that a source is empty, letting a Chain try the next one.
var errNotFound = errors.New("credential source is empty")

// Source loads and stores a credential record.
type Source interface {
	// Name identifies the source in logs and status output.
	Name() string

	// Load returns the stored record. An empty source returns an error
	// matching errNotFound; a present but unreadable record is a hard error.
	Load() (*Credential, error)

	// Save persists an updated record. Read-only sources accept and drop it.
	Save(cred *Credential) error

	// Writable reports whether Save persists anything.
	Writable() bool
}

// EnvSource reads a JSON credential record from an environment variable.
// It never writes: the variable is a deployment secret owned by the operator.
type EnvSource struct {
	Variable string

	// lookup defaults to os.LookupEnv.
	lookup func(string) (string, bool)
}

// NewEnvSource creates a source backed by the named environment variable.
func NewEnvSource(variable string) *EnvSource {
	return &EnvSource{Variable: variable, lookup: os.LookupEnv}
}

// Name implements Source.
func (s *EnvSource) Name() string {
	return "env:" + s.Variable
}

// Load implements Source.
func (s *EnvSource) Load() (*Credential, error) {
	lookup := s.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	raw, ok := lookup(s.Variable)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, errNotFound
	}

	var cred Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.Variable, err)
	}
	return &cred, nil
}

// Save implements Source. The environment is never written back.
func (s *EnvSource) Save(*Credential) error {
	return nil
}

// Writable implements Source.
func (s *EnvSource) Writable() bool {
	return false
}

// FileStore persists the credential record as pretty-printed JSON.
//
// SECURITY: the file holds bearer and refresh tokens. It is written with 0600
// permissions inside a 0700 directory, and token values are never logged.
type FileStore struct {
	Path string
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Name implements Source.
func (s *FileStore) Name() string {
	return "file:" + s.Path
}

// Load implements Source.
func (s *FileStore) Load() (*Credential, error) {
	// #nosec G304 -- the path comes from configuration, not remote input
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to parse token file %s: %w", s.Path, err)
	}
	return &cred, nil
}

// Save implements Source. The record is written to a temporary file and
// renamed into place so a crash never leaves a truncated store.
func (s *FileStore) Save(cred *Credential) error {
	if cred == nil {
		return errors.New("cannot store nil credential")
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".mcp-oauth-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary token file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set token file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}

	slog.Info("SECURITY_AUDIT: OAuth credential stored",
		"event", "credential_stored",
		"path", s.Path,
		"server", cred.Server,
		"has_refresh_token", cred.RefreshToken != "",
	)
	return nil
}

// Writable implements Source.
func (s *FileStore) Writable() bool {
	return true
}

// Chain resolves credentials from the first source that holds a record.
type Chain []Source

// DefaultChain returns the standard precedence: environment first, then file.
func DefaultChain(envVariable, tokenFile string) Chain {
	return Chain{NewEnvSource(envVariable), NewFileStore(tokenFile)}
}

// Resolve returns the first record found together with the source that held it.
func (c Chain) Resolve() (*Credential, Source, error) {
	for _, src := range c {
		cred, err := src.Load()
		if errors.Is(err, errNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", src.Name(), err)
		}
		return cred, src, nil
	}
	return nil, nil, ErrNoCredentials
}
