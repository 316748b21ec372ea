package main

import (
	"github.com/urfave/cli/v2"

	"github.com/gnana997/jsxusage/pkg/mcp"
	"github.com/gnana997/jsxusage/pkg/mcplog"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "Start an MCP server over stdio",
		ArgsUsage: "[tsconfig]",
		Description: `Exposes scans as MCP tools for AI agents:

  scan_project       scan every file and return a formatted summary
  crawl_entry        crawl from an entry file
  component_usage    list usage sites of one component key from the latest run
  list_formatters    list available summaries

Run "jsxusage register" to add this server to detected agents.`,
		Flags: append(runFlags(),
			&cli.StringFlag{
				Name:  "log-path",
				Usage: "Append a JSON line per tool call to this file",
			},
		),
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("log-path") {
		cfg.MCP.LogPath = c.String("log-path")
	}
	logger := newLogger(cfg)

	engine, err := newEngine(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	calls, err := mcplog.Open(cfg.MCP.LogPath)
	if err != nil {
		return err
	}
	defer calls.Close()

	logger.Info("mcp server starting", "root", engine.Root(), "call_log", cfg.MCP.LogPath)
	return mcp.NewServer(engine, version, calls, logger).ServeStdio()
}
