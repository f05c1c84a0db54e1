package transport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// maxFrameSize bounds a single event-stream line. Tool results can be large.
const maxFrameSize = 16 * 1024 * 1024

// readEventStream scans an event-stream body and returns the first data frame
// that is a JSON-RPC 2.0 message with an id. Frames that are not JSON, or
// that carry no id (notifications, progress), are skipped.
func readEventStream(r io.Reader) (json.RawMessage, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		payload := bytes.TrimPrefix(line[len("data:"):], []byte(" "))

		if isResponseFrame(payload) {
			return append(json.RawMessage(nil), payload...), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event stream: %w", err)
	}

	return nil, ErrEmptyStreamResponse
}

func isResponseFrame(payload []byte) bool {
	var frame map[string]json.RawMessage
	if err := json.Unmarshal(payload, &frame); err != nil {
		return false
	}

	var version string
	if err := json.Unmarshal(frame["jsonrpc"], &version); err != nil || version != "2.0" {
		return false
	}
	_, hasID := frame["id"]
	return hasID
}
