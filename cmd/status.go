package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/giantswarm/cirra-mcp/internal/config"
	"github.com/giantswarm/cirra-mcp/internal/credentials"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which stored credentials would be used",
		Long: `Shows the credential record 'cirra-mcp call' would use: where it was found,
which client it belongs to and when its access token expires.

No network request is made and token values are never printed.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cred, source, err := credentials.DefaultChain(config.EnvCredentials, cfg.TokenFile).Resolve()
	if err != nil {
		if errors.Is(err, credentials.ErrNoCredentials) {
			return fmt.Errorf("%w: run 'cirra-mcp auth' or set %s", err, config.EnvCredentials)
		}
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	renderStatus(cmd.OutOrStdout(), cred, source, time.Now())
	return nil
}

// renderStatus writes the credential summary as a table. Token values are
// reduced to whether they are present.
func renderStatus(w io.Writer, cred *credentials.Credential, source credentials.Source, now time.Time) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{text.FgHiCyan.Sprint("FIELD"), text.FgHiCyan.Sprint("VALUE")})

	writable := "read-only"
	if source.Writable() {
		writable = "refreshed tokens are saved"
	}

	t.AppendRows([]table.Row{
		{"Source", fmt.Sprintf("%s (%s)", source.Name(), writable)},
		{"Server", valueOrNone(cred.Server)},
		{"URL", valueOrNone(cred.URL)},
		{"Client ID", valueOrNone(cred.ClientID)},
		{"Token type", valueOrNone(cred.TokenType)},
		{"Scope", valueOrNone(cred.Scope)},
		{"Access token", presence(cred.AccessToken)},
		{"Refresh token", presence(cred.RefreshToken)},
		{"Expires", expiryText(cred, now)},
		{"Refresh due", refreshText(cred, now)},
	})
	t.Render()
}

func valueOrNone(s string) string {
	if s == "" {
		return text.FgHiBlack.Sprint("<none>")
	}
	return s
}

func presence(s string) string {
	if s == "" {
		return text.FgRed.Sprint("missing")
	}
	return text.FgGreen.Sprint("present")
}

func expiryText(cred *credentials.Credential, now time.Time) string {
	expiry, ok := cred.Expiry()
	if !ok {
		return "unknown (no lifetime was given)"
	}
	if !now.Before(expiry) {
		return fmt.Sprintf("%s (expired %s ago)", expiry.Local().Format(time.RFC3339), now.Sub(expiry).Round(time.Second))
	}
	return fmt.Sprintf("%s (in %s)", expiry.Local().Format(time.RFC3339), expiry.Sub(now).Round(time.Second))
}

func refreshText(cred *credentials.Credential, now time.Time) string {
	if !cred.NeedsRefresh(now) {
		return text.FgGreen.Sprint("no")
	}
	if cred.RefreshToken == "" {
		return text.FgRed.Sprint("yes, but no refresh token is stored")
	}
	return text.FgYellow.Sprint("yes")
}
