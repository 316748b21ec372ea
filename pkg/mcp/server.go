// Package mcp exposes component usage scans as MCP tools so an agent can
// ask which components a project renders and how.
package mcp

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/jsxusage/pkg/crawler"
	"github.com/gnana997/jsxusage/pkg/mcplog"
)

// Scanner runs traversals. *crawler.Engine satisfies it.
type Scanner interface {
	ScanProject(ctx context.Context) (*crawler.Result, error)
	CrawlEntry(ctx context.Context, entry string) (*crawler.Result, error)
}

// Server serves scan tools over MCP.
type Server struct {
	mcpServer *server.MCPServer
	scanner   Scanner
	calls     *mcplog.Logger // nil disables call logging
	logger    *slog.Logger

	// runMu serializes traversals; an engine runs one at a time.
	runMu sync.Mutex

	mu     sync.RWMutex
	latest *crawler.Result
	source string
}

// NewServer registers the tools backed by scanner. calls may be nil.
func NewServer(scanner Scanner, version string, calls *mcplog.Logger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{scanner: scanner, calls: calls, logger: logger}

	opts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	}
	if calls != nil {
		opts = append(opts, server.WithToolHandlerMiddleware(s.loggingMiddleware()))
	}
	s.mcpServer = server.NewMCPServer("jsxusage", version, opts...)

	s.mcpServer.AddTools(
		server.ServerTool{Tool: scanProjectTool(), Handler: s.handleScanProject},
		server.ServerTool{Tool: crawlEntryTool(), Handler: s.handleCrawlEntry},
		server.ServerTool{Tool: componentUsageTool(), Handler: s.handleComponentUsage},
		server.ServerTool{Tool: listFormattersTool(), Handler: s.handleListFormatters},
	)
	return s
}

// ServeStdio serves on stdin and stdout until the client goes away.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Latest returns the most recent traversal result and the tool that
// produced it, or nil before the first run.
func (s *Server) Latest() (*crawler.Result, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.source
}

func (s *Server) setLatest(res *crawler.Result, source string) {
	s.mu.Lock()
	s.latest = res
	s.source = source
	s.mu.Unlock()
}
