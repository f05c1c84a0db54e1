// Package config holds the settings shared by the cirra-mcp commands.
//
// Values come from built-in defaults, then an optional YAML file, then
// command-line flags. The file is optional: a missing file yields defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultBaseURL is the Cirra AI origin hosting /register, /authorize, /token and /mcp.
	DefaultBaseURL = "https://mcp.cirra.ai"

	// DefaultServerName identifies the remote service inside the credential record.
	DefaultServerName = "cirra-ai"

	// DefaultClientName is sent during Dynamic Client Registration.
	DefaultClientName = "cirra-mcp"

	// DefaultCallbackPort is the fixed loopback port of the authorization callback.
	DefaultCallbackPort = 8765

	// DefaultAuthorizationTimeout bounds how long the callback listener stays open.
	DefaultAuthorizationTimeout = 5 * time.Minute

	// DefaultHTTPTimeout applies to every outgoing HTTP request.
	DefaultHTTPTimeout = 60 * time.Second

	// EnvCredentials names the environment variable carrying an injected credential record.
	EnvCredentials = "CIRRA_OAUTH_CACHE"

	// stateDir is the per-user directory below $HOME holding tokens and config.
	stateDir = ".cirra-ai"
)

// Config contains the settings for one cirra-mcp invocation.
type Config struct {
	// BaseURL is the origin of the Cirra AI service.
	BaseURL string `yaml:"base_url"`

	// ServerName is recorded as the "server" field of the credential record.
	ServerName string `yaml:"server_name"`

	// TokenFile is the path of the on-disk credential record.
	TokenFile string `yaml:"token_file"`

	// CallbackPort is the loopback port the authorization callback listens on.
	CallbackPort int `yaml:"callback_port"`

	// ClientName is the client_name sent during registration.
	ClientName string `yaml:"client_name"`

	// AuthorizationTimeout is how long to wait for the browser to come back.
	AuthorizationTimeout time.Duration `yaml:"authorization_timeout"`

	// HTTPTimeout applies to registration, token and MCP requests.
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// Default returns a configuration populated with the built-in defaults.
// The token file falls back to a relative path if the home directory is unknown.
func Default() *Config {
	return &Config{
		BaseURL:              DefaultBaseURL,
		ServerName:           DefaultServerName,
		TokenFile:            DefaultTokenFile(),
		CallbackPort:         DefaultCallbackPort,
		ClientName:           DefaultClientName,
		AuthorizationTimeout: DefaultAuthorizationTimeout,
		HTTPTimeout:          DefaultHTTPTimeout,
	}
}

// DefaultTokenFile returns ~/.cirra-ai/mcp-oauth.json.
func DefaultTokenFile() string {
	return filepath.Join(homeDir(), stateDir, "mcp-oauth.json")
}

// DefaultConfigFile returns ~/.cirra-ai/config.yaml.
func DefaultConfigFile() string {
	return filepath.Join(homeDir(), stateDir, "config.yaml")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// Load reads the YAML file at path on top of the defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	// #nosec G304 -- path is chosen by the user running the CLI
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.TokenFile = ExpandHome(cfg.TokenFile)
	return cfg, nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p == "~" {
		return homeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(homeDir(), p[2:])
	}
	return p
}

// Endpoint joins the base URL with an API path such as "/mcp".
func (c *Config) Endpoint(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	// Security: only allow plain HTTP for localhost/loopback addresses
	switch parsedURL.Scheme {
	case "https":
	case "http":
		hostname := parsedURL.Hostname()
		// Hostname() strips brackets from IPv6 addresses, so [::1] becomes ::1
		if hostname != "localhost" && hostname != "127.0.0.1" && hostname != "::1" {
			return fmt.Errorf("HTTP base URLs are only allowed for localhost/127.0.0.1/[::1], use HTTPS for other hosts")
		}
	default:
		return fmt.Errorf("base URL scheme must be http (localhost only) or https, got: %s", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.CallbackPort < 0 || c.CallbackPort > 65535 {
		return fmt.Errorf("callback port %d out of range", c.CallbackPort)
	}

	if c.TokenFile == "" {
		return fmt.Errorf("token file path is required")
	}

	if c.AuthorizationTimeout <= 0 {
		return fmt.Errorf("authorization timeout must be positive")
	}

	return nil
}
