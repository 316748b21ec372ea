// Package mcplog appends one JSON line per MCP tool call to a log file.
package mcplog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// Call is one logged tool invocation.
type Call struct {
	Time        time.Time      `json:"time"`
	Tool        string         `json:"tool"`
	Params      map[string]any `json:"params"`
	DurationMs  int64          `json:"duration_ms"`
	ResultBytes int            `json:"result_bytes"`
	// ToolError is set when the tool answered with an error result.
	ToolError bool `json:"tool_error,omitempty"`
	// Error is set when the handler itself failed.
	Error string `json:"error,omitempty"`
}

// Logger writes calls to a file. It is safe for concurrent use.
type Logger struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// Open opens path for appending, creating parent directories. An empty
// path returns a nil Logger, which discards everything.
func Open(path string) (*Logger, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mcplog: create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mcplog: open log file: %w", err)
	}
	return &Logger{f: f, enc: json.NewEncoder(f)}, nil
}

// Record appends call.
func (l *Logger) Record(call Call) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(call)
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// maxParamLen bounds logged string parameters. Longer values are logged
// as their length under "<key>_len".
const maxParamLen = 128

// SanitizeParams copies args with long strings replaced by their length.
func SanitizeParams(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok && len(s) > maxParamLen {
			out[k+"_len"] = len(s)
			continue
		}
		out[k] = v
	}
	return out
}

// ResultBytes is the encoded size of a result's content, or 0 for nil.
func ResultBytes(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	b, err := json.Marshal(result.Content)
	if err != nil {
		return 0
	}
	return len(b)
}

// Now is the clock used for call timestamps.
var Now = time.Now
