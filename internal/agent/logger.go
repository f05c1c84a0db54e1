package agent

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

// Logger provides formatted logging for the agent. Everything goes to the
// writer (stderr by default) so stdout only carries command results.
type Logger struct {
	verbose     bool
	useColor    bool
	jsonRPCMode bool
	writer      io.Writer
}

// NewLogger creates a new logger writing to stderr
func NewLogger(verbose, useColor, jsonRPCMode bool) *Logger {
	return NewLoggerWithWriter(verbose, useColor, jsonRPCMode, os.Stderr)
}

// NewLoggerWithWriter creates a new logger with a custom writer
func NewLoggerWithWriter(verbose, useColor, jsonRPCMode bool, writer io.Writer) *Logger {
	return &Logger{
		verbose:     verbose,
		useColor:    useColor,
		jsonRPCMode: jsonRPCMode,
		writer:      writer,
	}
}

// NewDevNullLogger returns a logger that discards everything.
func NewDevNullLogger() *Logger {
	return NewLoggerWithWriter(false, false, false, io.Discard)
}

// SetVerbose sets the verbose mode
func (l *Logger) SetVerbose(verbose bool) {
	l.verbose = verbose
}

// SetWriter sets a custom writer for the logger
func (l *Logger) SetWriter(w io.Writer) {
	l.writer = w
}

// Writer returns the writer log lines go to.
func (l *Logger) Writer() io.Writer {
	return l.writer
}

// timestamp returns the current timestamp string
func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

// colorize applies color to text if colors are enabled
func (l *Logger) colorize(text, colorCode string) string {
	if !l.useColor {
		return text
	}
	return fmt.Sprintf("%s%s%s", colorCode, text, colorReset)
}

func (l *Logger) line(colorCode, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if colorCode != "" {
		msg = l.colorize(msg, colorCode)
	}
	fmt.Fprintf(l.writer, "[%s] %s\n", l.timestamp(), msg)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.line("", format, args...)
}

// Debug logs a debug message (only in verbose mode)
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.line(colorGray, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.line(colorRed, format, args...)
}

// Success logs a success message
func (l *Logger) Success(format string, args ...interface{}) {
	l.line(colorGreen, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.line(colorYellow, format, args...)
}

// InfoVerbose logs an informational message only in verbose mode.
// Safe to call on a nil logger.
func (l *Logger) InfoVerbose(format string, args ...interface{}) {
	if l == nil || !l.verbose {
		return
	}
	l.Info(format, args...)
}

// WarningVerbose logs a warning only in verbose mode.
// Safe to call on a nil logger.
func (l *Logger) WarningVerbose(format string, args ...interface{}) {
	if l == nil || !l.verbose {
		return
	}
	l.Warning(format, args...)
}

// Request logs an outgoing JSON-RPC message
func (l *Logger) Request(method string, params interface{}) {
	if !l.jsonRPCMode {
		switch method {
		case "initialize":
			l.Info("Initializing MCP session...")
		case "tools/list":
			l.Info("Listing available tools...")
		case "tools/call":
			l.Info("Calling tool %s...", toolNameOf(params))
		default:
			l.Debug("Sending %s", method)
		}
		return
	}

	arrow := l.colorize("→", colorBlue)
	methodStr := l.colorize(fmt.Sprintf("REQUEST (%s)", method), colorBlue)
	fmt.Fprintf(l.writer, "[%s] %s %s:\n", l.timestamp(), arrow, methodStr)
	if params != nil {
		fmt.Fprintln(l.writer, l.colorize(prettyJSON(params), colorBlue))
	}
	fmt.Fprintln(l.writer)
}

// Response logs an incoming JSON-RPC result
func (l *Logger) Response(method string, result interface{}) {
	if !l.jsonRPCMode {
		fields := decodeFields(result)
		switch method {
		case "initialize":
			var version string
			_ = json.Unmarshal(fields["protocolVersion"], &version)
			if version != "" {
				l.Success("Session initialized successfully (protocol: %s)", version)
			} else {
				l.Success("Session initialized successfully")
			}
		case "tools/list":
			var tools []json.RawMessage
			if err := json.Unmarshal(fields["tools"], &tools); err == nil {
				l.Success("Found %d tools", len(tools))
			} else {
				l.Success("Retrieved tool list")
			}
		case "tools/call":
			var isError bool
			_ = json.Unmarshal(fields["isError"], &isError)
			if isError {
				l.Warning("Tool reported an error")
			} else {
				l.Success("Tool call completed")
			}
		default:
			l.Debug("Received response for: %s", method)
		}
		return
	}

	arrow := l.colorize("←", colorGreen)
	methodStr := l.colorize(fmt.Sprintf("RESPONSE (%s)", method), colorGreen)
	fmt.Fprintf(l.writer, "[%s] %s %s:\n", l.timestamp(), arrow, methodStr)
	if result != nil {
		fmt.Fprintln(l.writer, l.colorize(prettyJSON(result), colorGreen))
	}
	fmt.Fprintln(l.writer)
}

// decodeFields re-reads a result as a JSON object, whatever its Go type.
func decodeFields(v interface{}) map[string]json.RawMessage {
	var raw []byte
	switch val := v.(type) {
	case json.RawMessage:
		raw = val
	case []byte:
		raw = val
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		raw = b
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	return fields
}

func toolNameOf(params interface{}) string {
	var name string
	_ = json.Unmarshal(decodeFields(params)["name"], &name)
	return name
}
