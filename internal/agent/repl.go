package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
)

// errExit is a sentinel error used to signal REPL exit
var errExit = errors.New("exit")

// REPL is an interactive shell over a single MCP session
type REPL struct {
	client          *Client
	logger          *Logger
	out             io.Writer
	rl              *readline.Instance
	commandHandlers map[string]commandHandler
}

// NewREPL creates a new REPL instance writing results to out (stdout if nil)
func NewREPL(client *Client, logger *Logger, out io.Writer) *REPL {
	if out == nil {
		out = os.Stdout
	}
	r := &REPL{
		client: client,
		logger: logger,
		out:    out,
	}
	r.commandHandlers = r.buildCommandHandlers()
	return r
}

// Run starts the REPL
func (r *REPL) Run(ctx context.Context) error {
	historyFile := filepath.Join(os.TempDir(), ".cirra_mcp_history")

	config := &readline.Config{
		Prompt:          "cirra> ",
		HistoryFile:     historyFile,
		AutoComplete:    r.createCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	}

	rl, err := readline.NewEx(config)
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer func() { _ = rl.Close() }()
	r.rl = rl

	r.logger.Info("Cirra AI REPL started. Type 'help' for available commands. Use TAB for completion.")
	fmt.Fprintln(r.out)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("REPL shutting down...")
			return nil
		default:
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			r.logger.Info("Goodbye!")
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if err := r.executeCommand(ctx, input); err != nil {
			if errors.Is(err, errExit) {
				r.logger.Info("Goodbye!")
				return nil
			}
			r.logger.Error("Error: %v", err)
		}

		fmt.Fprintln(r.out)
	}
}

// buildPcItems converts a slice of strings to readline completer items
func buildPcItems(names []string) []readline.PrefixCompleterInterface {
	items := make([]readline.PrefixCompleterInterface, len(names))
	for i, name := range names {
		items[i] = readline.PcItem(name)
	}
	return items
}

// createCompleter builds tab completion from the commands and the cached tool names
func (r *REPL) createCompleter() *readline.PrefixCompleter {
	tools := r.client.Tools()
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
	}
	toolCompleter := buildPcItems(names)

	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("?"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
		readline.PcItem("raw"),
		readline.PcItem("list", readline.PcItem("tools")),
		readline.PcItem("describe", readline.PcItem("tool", toolCompleter...)),
		readline.PcItem("call", toolCompleter...),
	)
}

// filterInput filters input characters for readline
func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// commandHandler defines a REPL command with its handler and argument requirements
type commandHandler struct {
	minArgs int
	usage   string
	handler func(ctx context.Context, parts []string) error
}

// buildCommandHandlers creates the map of command handlers
func (r *REPL) buildCommandHandlers() map[string]commandHandler {
	return map[string]commandHandler{
		"help": {minArgs: 1, handler: func(ctx context.Context, parts []string) error {
			return r.showHelp()
		}},
		"?": {minArgs: 1, handler: func(ctx context.Context, parts []string) error {
			return r.showHelp()
		}},
		"exit": {minArgs: 1, handler: func(ctx context.Context, parts []string) error {
			return errExit
		}},
		"quit": {minArgs: 1, handler: func(ctx context.Context, parts []string) error {
			return errExit
		}},
		"list": {
			minArgs: 2,
			usage:   "usage: list tools",
			handler: func(ctx context.Context, parts []string) error {
				return r.handleList(ctx, parts[1])
			},
		},
		"describe": {
			minArgs: 3,
			usage:   "usage: describe tool <name>",
			handler: func(ctx context.Context, parts []string) error {
				return r.handleDescribe(ctx, parts[1], parts[2])
			},
		},
		"call": {
			minArgs: 2,
			usage:   "usage: call <tool-name> [--key value | --key=value | key:value ...]",
			handler: func(ctx context.Context, parts []string) error {
				return r.handleCallTool(ctx, parts[1], parts[2:])
			},
		},
		"raw": {minArgs: 1, handler: func(ctx context.Context, parts []string) error {
			return r.handleRaw()
		}},
	}
}

// executeCommand parses and executes a command
func (r *REPL) executeCommand(ctx context.Context, input string) error {
	parts, err := splitCommandLine(input)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return nil
	}

	command := strings.ToLower(parts[0])

	handler, exists := r.commandHandlers[command]
	if !exists {
		return fmt.Errorf("unknown command: %s. Type 'help' for available commands", command)
	}

	if len(parts) < handler.minArgs {
		return errors.New(handler.usage)
	}

	return handler.handler(ctx, parts)
}

// showHelp displays available commands
func (r *REPL) showHelp() error {
	fmt.Fprintln(r.out, "Available commands:")
	fmt.Fprintln(r.out, "  help, ?                      - Show this help message")
	fmt.Fprintln(r.out, "  list tools                   - List the tools offered by Cirra AI")
	fmt.Fprintln(r.out, "  describe tool <name>         - Show the full definition of a tool")
	fmt.Fprintln(r.out, "  call <tool> [args...]        - Execute a tool")
	fmt.Fprintln(r.out, "  raw                          - Show the last raw result as JSON")
	fmt.Fprintln(r.out, "  exit, quit                   - Exit the REPL")
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Arguments:")
	fmt.Fprintln(r.out, "  --key value, --key=value or key:value; values are read as JSON when they parse")
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Keyboard shortcuts:")
	fmt.Fprintln(r.out, "  TAB                          - Auto-complete commands and tool names")
	fmt.Fprintln(r.out, "  ↑/↓ (arrow keys)             - Navigate command history")
	fmt.Fprintln(r.out, "  Ctrl+R                       - Search command history")
	fmt.Fprintln(r.out, "  Ctrl+D                       - Exit REPL")
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Examples:")
	fmt.Fprintln(r.out, `  call soql_query --sObject Account --limit 5`)
	fmt.Fprintln(r.out, `  call sobject_describe sObject:Contact`)
	fmt.Fprintln(r.out, `  call soql_query --fields='["Id","Name"]' sObject:Account`)
	return nil
}

// splitCommandLine splits input on whitespace, keeping single- or
// double-quoted runs together so JSON values can contain spaces.
func splitCommandLine(input string) ([]string, error) {
	var (
		parts   []string
		current strings.Builder
		quote   rune
		inToken bool
	)

	for _, c := range input {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
				continue
			}
			current.WriteRune(c)
		case c == '"' || c == '\'':
			quote = c
			inToken = true
		case c == ' ' || c == '\t':
			if inToken {
				parts = append(parts, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(c)
			inToken = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inToken {
		parts = append(parts, current.String())
	}
	return parts, nil
}
