package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// handleList handles list commands
func (r *REPL) handleList(ctx context.Context, target string) error {
	switch strings.ToLower(target) {
	case "tools", "tool":
		return r.listTools(ctx)
	default:
		return fmt.Errorf("unknown list target: %s. Use 'tools'", target)
	}
}

// listTools fetches the tool list and renders it as a table
func (r *REPL) listTools(ctx context.Context) error {
	if _, err := r.client.ListTools(ctx); err != nil {
		return err
	}
	if r.rl != nil {
		r.rl.Config.AutoComplete = r.createCompleter()
	}

	tools := r.client.Tools()
	if len(tools) == 0 {
		fmt.Fprintf(r.out, "%s\n", text.FgYellow.Sprint("No tools available."))
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("#"),
		text.FgHiCyan.Sprint("TOOL"),
		text.FgHiCyan.Sprint("DESCRIPTION"),
	})
	for i, tool := range tools {
		desc := firstLine(tool.Description)
		if len(desc) > 80 {
			desc = desc[:77] + "..."
		}
		t.AppendRow(table.Row{i + 1, tool.Name, desc})
	}
	t.Render()

	fmt.Fprintf(r.out, "\n%s %s\n", text.FgHiBlue.Sprint("Total:"), text.FgHiWhite.Sprint(len(tools)))
	return nil
}

// handleDescribe handles describe commands
func (r *REPL) handleDescribe(ctx context.Context, targetType, name string) error {
	if strings.ToLower(targetType) != "tool" {
		return fmt.Errorf("unknown describe target: %s. Use 'tool'", targetType)
	}

	tool, ok := r.client.Tool(name)
	if !ok && len(r.client.Tools()) == 0 {
		if _, err := r.client.ListTools(ctx); err != nil {
			return err
		}
		tool, ok = r.client.Tool(name)
	}
	if !ok {
		return fmt.Errorf("tool not found: %s", name)
	}

	fmt.Fprintln(r.out, PrettyJSON(tool.Raw))
	return nil
}

// handleCallTool parses the arguments and invokes the tool
func (r *REPL) handleCallTool(ctx context.Context, name string, tokens []string) error {
	args, err := ParseToolArgs(tokens)
	if err != nil {
		return err
	}
	return r.client.Invoke(ctx, name, args)
}

// handleRaw prints the last raw result
func (r *REPL) handleRaw() error {
	last := r.client.LastResult()
	if last == nil {
		fmt.Fprintln(r.out, "No result yet.")
		return nil
	}
	fmt.Fprintln(r.out, PrettyJSON(last))
	return nil
}
