package agent

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// PrettyJSON pretty-prints a value for display. Raw JSON keeps its key order.
func PrettyJSON(v interface{}) string {
	if raw, ok := v.(json.RawMessage); ok {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err == nil {
			return buf.String()
		}
		return string(raw)
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}

func prettyJSON(v interface{}) string {
	return PrettyJSON(v)
}

// RenderToolResult writes a tools/call result to w, one content item after
// another, and reports whether the result was flagged isError.
//
// Text items print verbatim, binary items as a one-line summary, resources
// as their URI. Anything else prints as indented JSON, as does a result
// without a content array.
func RenderToolResult(w io.Writer, result json.RawMessage) (bool, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(result, &envelope); err != nil {
		_, err := fmt.Fprintln(w, PrettyJSON(result))
		return false, err
	}

	var isError bool
	_ = json.Unmarshal(envelope["isError"], &isError)

	var items []json.RawMessage
	if err := json.Unmarshal(envelope["content"], &items); err != nil || envelope["content"] == nil {
		_, err := fmt.Fprintln(w, PrettyJSON(result))
		return isError, err
	}

	for _, item := range items {
		if _, err := fmt.Fprintln(w, renderContentItem(item)); err != nil {
			return isError, err
		}
	}
	return isError, nil
}

func renderContentItem(item json.RawMessage) string {
	var fields map[string]interface{}
	if err := json.Unmarshal(item, &fields); err != nil {
		return PrettyJSON(item)
	}

	content, _ := mcp.ParseContent(fields)

	switch c := content.(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	case mcp.ImageContent:
		return binarySummary("image", c.MIMEType, c.Data)
	case *mcp.ImageContent:
		return binarySummary("image", c.MIMEType, c.Data)
	case mcp.AudioContent:
		return binarySummary("audio", c.MIMEType, c.Data)
	case *mcp.AudioContent:
		return binarySummary("audio", c.MIMEType, c.Data)
	}

	// Resources: read the URI from the wire shape, it is the same for
	// embedded resources and resource links.
	if uri := resourceURI(fields); uri != "" {
		return uri
	}
	return PrettyJSON(item)
}

func binarySummary(kind, mimeType, data string) string {
	size := len(data)
	if decoded, err := base64.StdEncoding.DecodeString(data); err == nil {
		size = len(decoded)
	}
	if mimeType == "" {
		mimeType = "unknown type"
	}
	return fmt.Sprintf("[%s: %s, %d bytes]", kind, mimeType, size)
}

func resourceURI(fields map[string]interface{}) string {
	switch fields["type"] {
	case contentTypeResourceLink:
		uri, _ := fields["uri"].(string)
		return uri
	case contentTypeResource:
		res, _ := fields["resource"].(map[string]interface{})
		uri, _ := res["uri"].(string)
		return uri
	}
	return ""
}

// firstLine returns the first non-empty line of s.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
