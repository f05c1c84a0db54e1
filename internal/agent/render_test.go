package agent

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestRenderToolResult(t *testing.T) {
	tests := []struct {
		name        string
		result      string
		want        []string
		notWant     []string
		wantIsError bool
	}{
		{
			name:   "text items verbatim and in order",
			result: `{"content":[{"type":"text","text":"first"},{"type":"text","text":"{\"a\":1}"}]}`,
			want:   []string{"first\n{\"a\":1}\n"},
		},
		{
			name:   "image summary",
			result: `{"content":[{"type":"image","data":"aGVsbG8=","mimeType":"image/png"}]}`,
			want:   []string{"[image: image/png, 5 bytes]"},
			notWant: []string{
				"aGVsbG8=",
			},
		},
		{
			name:   "audio summary",
			result: `{"content":[{"type":"audio","data":"AAECAw==","mimeType":"audio/wav"}]}`,
			want:   []string{"[audio: audio/wav, 4 bytes]"},
		},
		{
			name:   "resource link prints uri",
			result: `{"content":[{"type":"resource_link","uri":"salesforce://Account/001","name":"Acme"}]}`,
			want:   []string{"salesforce://Account/001\n"},
		},
		{
			name:   "embedded resource prints uri",
			result: `{"content":[{"type":"resource","resource":{"uri":"file:///report.csv","mimeType":"text/csv","text":"Id,Name"}}]}`,
			want:   []string{"file:///report.csv\n"},
		},
		{
			name:   "unknown item as indented json",
			result: `{"content":[{"type":"chart","series":[1,2]}]}`,
			want:   []string{`"type": "chart"`, `"series": [`},
		},
		{
			name:   "no content array prints whole result",
			result: `{"structuredContent":{"count":3}}`,
			want:   []string{"{\n  \"structuredContent\": {\n    \"count\": 3\n  }\n}\n"},
		},
		{
			name:        "error result still rendered",
			result:      `{"content":[{"type":"text","text":"INVALID_FIELD: No such column"}],"isError":true}`,
			want:        []string{"INVALID_FIELD: No such column"},
			wantIsError: true,
		},
		{
			name:   "empty content prints nothing",
			result: `{"content":[]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			isError, err := RenderToolResult(buf, json.RawMessage(tt.result))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if isError != tt.wantIsError {
				t.Errorf("isError = %v, want %v", isError, tt.wantIsError)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output %q does not contain %q", buf.String(), want)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(buf.String(), notWant) {
					t.Errorf("output %q should not contain %q", buf.String(), notWant)
				}
			}
			if len(tt.want) == 0 && buf.Len() != 0 {
				t.Errorf("expected no output, got %q", buf.String())
			}
		})
	}
}

func TestPrettyJSONKeepsKeyOrder(t *testing.T) {
	got := PrettyJSON(json.RawMessage(`{"zeta":1,"alpha":{"b":2,"a":1}}`))
	want := "{\n  \"zeta\": 1,\n  \"alpha\": {\n    \"b\": 2,\n    \"a\": 1\n  }\n}"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("\n  Run a SOQL query.\nMore details."); got != "Run a SOQL query." {
		t.Errorf("got %q", got)
	}
	if got := firstLine(""); got != "" {
		t.Errorf("got %q", got)
	}
}
