package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/giantswarm/cirra-mcp/internal/credentials"
	"github.com/giantswarm/cirra-mcp/internal/oauth"
)

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize cirra-mcp with Cirra AI",
		Long: `Runs the OAuth Authorization Code flow with PKCE against Cirra AI.

A client is registered dynamically, the browser is opened on the authorization
page and a local listener on http://localhost:8765/callback waits for the
redirect. The resulting tokens are written to the token store and printed as
one line of JSON on stdout, ready to be stored as CIRRA_OAUTH_CACHE.`,
		Args: cobra.NoArgs,
		RunE: runAuth,
	}
}

func runAuth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	setupSignalHandler(cancel, logger)

	authorizer := oauth.NewAuthorizer(oauth.AuthorizerConfig{
		BaseURL:       cfg.BaseURL,
		ServerName:    cfg.ServerName,
		ClientName:    cfg.ClientName,
		CallbackPort:  cfg.CallbackPort,
		Timeout:       cfg.AuthorizationTimeout,
		HTTPClient:    newHTTPClient(cfg),
		WaitIndicator: waitForBrowser,
		Logger:        logger,
	})

	cred, err := authorizer.Authorize(ctx)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	if err := credentials.NewFileStore(cfg.TokenFile).Save(cred); err != nil {
		return err
	}
	logger.Success("Tokens saved to %s", cfg.TokenFile)

	compact, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(compact))
	return err
}

// waitForBrowser shows a spinner on stderr until the callback arrives.
func waitForBrowser() func() {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " Waiting for authorization in the browser..."
	s.Start()
	return s.Stop
}
