package agent

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func newTestREPL() (*REPL, *fakeSession, *bytes.Buffer) {
	session := newFakeSession()
	out := &bytes.Buffer{}
	client := NewClient(ClientConfig{Session: session, Output: out})
	return NewREPL(client, NewDevNullLogger(), out), session, out
}

func TestREPLCommands(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr string
	}{
		{
			name:  "help",
			input: "help",
			want:  []string{"list tools", "describe tool <name>", "call <tool>"},
		},
		{
			name:  "question mark",
			input: "?",
			want:  []string{"Available commands:"},
		},
		{
			name:  "list tools renders table",
			input: "list tools",
			want:  []string{"TOOL", "soql_query", "Run a SOQL query.", "apex_execute"},
		},
		{
			name:  "describe tool",
			input: "describe tool soql_query",
			want:  []string{`"name": "soql_query"`, `"inputSchema": {`},
		},
		{
			name:  "call tool",
			input: "call soql_query --sObject Account limit:5",
			want:  []string{"2 records"},
		},
		{
			name:  "raw before any call",
			input: "raw",
			want:  []string{"No result yet."},
		},
		{
			name:    "unknown command",
			input:   "frobnicate",
			wantErr: "unknown command",
		},
		{
			name:    "missing list target",
			input:   "list",
			wantErr: "usage: list tools",
		},
		{
			name:    "unknown list target",
			input:   "list prompts",
			wantErr: "unknown list target",
		},
		{
			name:    "describe unknown tool",
			input:   "describe tool nope",
			wantErr: "tool not found",
		},
		{
			name:    "call with bad arguments",
			input:   "call soql_query Account",
			wantErr: "invalid argument",
		},
		{
			name:    "unterminated quote",
			input:   `call soql_query --where "Name = 'x'`,
			wantErr: "unterminated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repl, _, out := newTestREPL()

			err := repl.executeCommand(context.Background(), tt.input)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output does not contain %q:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestREPLExit(t *testing.T) {
	repl, _, _ := newTestREPL()
	for _, cmd := range []string{"exit", "quit", "EXIT"} {
		if err := repl.executeCommand(context.Background(), cmd); !errors.Is(err, errExit) {
			t.Errorf("%s: expected errExit, got %v", cmd, err)
		}
	}
}

func TestREPLCallThenRaw(t *testing.T) {
	repl, session, out := newTestREPL()
	ctx := context.Background()

	if err := repl.executeCommand(ctx, `call soql_query --fields='["Id", "Name"]'`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(session.lastArgs["fields"], []interface{}{"Id", "Name"}) {
		t.Errorf("quoted JSON argument not parsed: %#v", session.lastArgs)
	}

	out.Reset()
	if err := repl.executeCommand(ctx, "raw"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), `"text": "2 records"`) {
		t.Errorf("unexpected raw output: %s", out.String())
	}
}

func TestREPLCallToolErrorContinues(t *testing.T) {
	repl, _, out := newTestREPL()

	err := repl.executeCommand(context.Background(), "call apex_execute")
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %v", err)
	}
	if !strings.Contains(out.String(), "Compile error") {
		t.Errorf("error result not rendered: %q", out.String())
	}
}

func TestREPLListToolsEmpty(t *testing.T) {
	repl, session, out := newTestREPL()
	session.tools = `{"tools":[]}`

	if err := repl.executeCommand(context.Background(), "list tools"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "No tools available.") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestREPLDescribeUsesCache(t *testing.T) {
	repl, session, _ := newTestREPL()
	ctx := context.Background()

	if err := repl.executeCommand(ctx, "describe tool soql_query"); err != nil {
		t.Fatal(err)
	}
	if err := repl.executeCommand(ctx, "describe tool apex_execute"); err != nil {
		t.Fatal(err)
	}
	if session.listCalls != 1 {
		t.Errorf("expected one tools/list, got %d", session.listCalls)
	}
}

func TestSplitCommandLine(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"call  soql_query\t--limit 5", []string{"call", "soql_query", "--limit", "5"}},
		{`call t --where "Name = 'Acme'"`, []string{"call", "t", "--where", "Name = 'Acme'"}},
		{`call t q:'{"a": 1}'`, []string{"call", "t", `q:{"a": 1}`}},
		{`call t --empty ""`, []string{"call", "t", "--empty", ""}},
		{"", nil},
	}

	for _, tt := range tests {
		got, err := splitCommandLine(tt.input)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.input, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%q: got %#v, want %#v", tt.input, got, tt.want)
		}
	}
}
