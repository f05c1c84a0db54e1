package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/cirra-mcp/internal/agent"
)

func newREPLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Explore Cirra AI tools interactively",
		Long: `Starts an interactive shell over a single MCP session.

In the REPL you can:
- List the tools Cirra AI offers
- Show the full definition of a tool, including its input schema
- Call tools with the same argument syntax as 'cirra-mcp call'
- Inspect the raw JSON of the last result

Commands and tool names complete with TAB, and history persists between runs.`,
		Args: cobra.NoArgs,
		RunE: runREPL,
	}
}

func runREPL(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	setupSignalHandler(cancel, logger)

	client, session, err := connect(cfg, logger, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	// Fill the tool cache so names complete from the first prompt
	if _, err := client.ListTools(ctx); err != nil {
		return err
	}
	logger.Info("Connected to %s", serverSummary(session))

	repl := agent.NewREPL(client, logger, cmd.OutOrStdout())
	if err := repl.Run(ctx); err != nil {
		return fmt.Errorf("REPL error: %w", err)
	}
	return nil
}
