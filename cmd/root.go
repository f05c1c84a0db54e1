package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/giantswarm/cirra-mcp/internal/agent"
	"github.com/giantswarm/cirra-mcp/internal/config"
	"github.com/giantswarm/cirra-mcp/internal/credentials"
	"github.com/giantswarm/cirra-mcp/internal/oauth"
	"github.com/giantswarm/cirra-mcp/internal/transport"
)

var (
	version    string
	configFile string
	baseURL    string
	tokenFile  string
	verbose    bool
	noColor    bool
	jsonRPC    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cirra-mcp",
	Short: "Use Cirra AI tools from headless agents over MCP",
	Long: `cirra-mcp connects automation agents to the Cirra AI MCP service.

Authorize once in a browser:

  cirra-mcp auth

This registers an OAuth client, runs the Authorization Code flow with PKCE and
stores the tokens in ~/.cirra-ai/mcp-oauth.json. The compact token record is
also printed so it can be copied into a secret store and injected elsewhere
through the CIRRA_OAUTH_CACHE environment variable.

Then invoke tools:

  cirra-mcp call --list
  cirra-mcp call soql_query --sObject Account --limit 5

Expired access tokens are refreshed automatically. Diagnostics go to stderr,
results to stdout.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configureAuditLog(os.Stderr)
		if noColor {
			text.DisableColors()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// SetVersion sets the version for the application
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// GetVersion returns the version set at build time
func GetVersion() string {
	return version
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultConfigFile(), "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Cirra AI base URL (default "+config.DefaultBaseURL+")")
	rootCmd.PersistentFlags().StringVar(&tokenFile, "token-file", "", "Path of the OAuth token store (default ~/.cirra-ai/mcp-oauth.json)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&jsonRPC, "json-rpc", false, "Enable full JSON-RPC message logging")

	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newCallCmd())
	rootCmd.AddCommand(newREPLCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}

// configureAuditLog routes slog, which carries the SECURITY_AUDIT records, to w.
func configureAuditLog(w io.Writer) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if tokenFile != "" {
		cfg.TokenFile = config.ExpandHome(tokenFile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger() *agent.Logger {
	return agent.NewLogger(verbose, !noColor, jsonRPC)
}

func newHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.HTTPTimeout}
}

// connect resolves the stored credentials and builds a client for the Cirra
// MCP endpoint. No request is sent until the first operation.
func connect(cfg *config.Config, logger *agent.Logger, out io.Writer) (*agent.Client, *transport.Session, error) {
	cred, source, err := credentials.DefaultChain(config.EnvCredentials, cfg.TokenFile).Resolve()
	if err != nil {
		if errors.Is(err, credentials.ErrNoCredentials) {
			return nil, nil, fmt.Errorf("%w: run 'cirra-mcp auth' or set %s", err, config.EnvCredentials)
		}
		return nil, nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	logger.Debug("Using credentials from %s", source.Name())

	httpClient := newHTTPClient(cfg)
	tokens := credentials.NewManager(cred, source, oauth.NewRefresher(cfg.BaseURL, httpClient))

	session := transport.NewSession(transport.Config{
		Endpoint:      cfg.Endpoint("/mcp"),
		HTTPClient:    httpClient,
		Tokens:        tokens,
		ClientName:    cfg.ClientName,
		ClientVersion: version,
		Tracer:        logger,
	})

	client := agent.NewClient(agent.ClientConfig{
		Session: session,
		Logger:  logger,
		Output:  out,
	})
	return client, session, nil
}

// serverSummary describes the remote end of an initialized session.
func serverSummary(session *transport.Session) string {
	info := session.ServerInfo()
	name := info.Name
	if name == "" {
		name = "unknown server"
	}
	if info.Version != "" {
		name += " " + info.Version
	}
	if protocol := session.ProtocolVersion(); protocol != "" {
		return fmt.Sprintf("%s (protocol %s)", name, protocol)
	}
	return name
}

// setupSignalHandler sets up graceful shutdown on interrupt signals
func setupSignalHandler(cancel context.CancelFunc, logger *agent.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()
}
