package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/cirra-mcp/internal/agent"
)

var callList bool

func newCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <tool> [--key value | --key=value | key:value ...]",
		Short: "Call a Cirra AI tool",
		Long: `Calls one tool on the Cirra AI MCP server and prints its result.

Arguments follow the tool name as --key value, --key=value or key:value.
Values that parse as JSON are sent as JSON, anything else as a string:

  cirra-mcp call soql_query --sObject Account --limit 5
  cirra-mcp call soql_query --fields='["Id","Name"]' sObject:Account

Use --list to print the tool catalogue instead. A tool result flagged as an
error is printed and the command exits with status 1.`,
		RunE: runCall,
	}

	cmd.Flags().BoolVar(&callList, "list", false, "List the available tools")
	// Everything after the tool name belongs to the tool
	cmd.Flags().SetInterspersed(false)

	return cmd
}

func runCall(cmd *cobra.Command, args []string) error {
	if !callList && len(args) == 0 {
		return fmt.Errorf("a tool name is required, or use --list")
	}
	if callList && len(args) > 0 {
		return fmt.Errorf("--list takes no tool name or arguments")
	}

	var (
		toolName string
		toolArgs map[string]interface{}
	)
	if !callList {
		toolName = args[0]
		parsed, err := agent.ParseToolArgs(args[1:])
		if err != nil {
			return err
		}
		toolArgs = parsed
	}

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

	if callList {
		err = client.PrintTools(ctx)
	} else {
		err = client.Invoke(ctx, toolName, toolArgs)
	}
	if session.Initialized() {
		logger.Debug("Server: %s", serverSummary(session))
	}
	return err
}
