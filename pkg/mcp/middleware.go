package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/jsxusage/pkg/mcplog"
)

// loggingMiddleware records every tool call in the call log. It is only
// installed when a call log is configured.
func (s *Server) loggingMiddleware() server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			start := mcplog.Now()
			result, err := next(ctx, req)

			call := mcplog.Call{
				Time:        start.UTC(),
				Tool:        req.Params.Name,
				Params:      mcplog.SanitizeParams(req.GetArguments()),
				DurationMs:  time.Since(start).Milliseconds(),
				ResultBytes: mcplog.ResultBytes(result),
				ToolError:   result != nil && result.IsError,
			}
			if err != nil {
				call.Error = err.Error()
			}
			if werr := s.calls.Record(call); werr != nil {
				s.logger.Warn("failed to record tool call", "tool", call.Tool, "error", werr)
			}

			return result, err
		}
	}
}
