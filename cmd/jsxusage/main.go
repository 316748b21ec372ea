package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/gnana997/jsxusage/pkg/formatter"
)

var version = "dev" // set via ldflags at build time

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "jsxusage",
		Usage:     "Report how JSX components are used across a TypeScript project",
		Version:   version,
		ArgsUsage: "[tsconfig]",
		Description: `Without a command, scans every file the tsconfig lists, or crawls
from --entry-point when one is given.`,
		Flags:  append(globalFlags(), append(runFlags(), entryFlag(false))...),
		Action: runDefault,
		Commands: []*cli.Command{
			scanCmd(),
			crawlCmd(),
			watchCmd(),
			serveCmd(),
			registerCmd(),
			initCmd(),
			workerCmd(),
			versionCmd(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to config file (YAML, TOML, or JSON)",
			EnvVars: []string{"JSXUSAGE_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: text, json",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Hide progress and status lines",
		},
	}
}

// runFlags are shared by every command that runs a traversal.
func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "tsconfig",
			Aliases: []string{"c"},
			Usage:   "Path to tsconfig.json (default ./tsconfig.json)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the report to a file instead of stdout",
		},
		&cli.StringFlag{
			Name:    "formatter",
			Aliases: []string{"f"},
			Usage:   "Report formatter: " + strings.Join(formatter.Names(), ", "),
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Output encoding: json, table",
		},
		&cli.IntFlag{
			Name:    "parallel",
			Aliases: []string{"p"},
			Usage:   "Number of workers (default 4)",
		},
		&cli.StringFlag{
			Name:  "worker-mode",
			Usage: "Worker transport: process, inprocess",
		},
		&cli.BoolFlag{
			Name:  "no-builtins",
			Usage: "Leave intrinsic elements like <div> out of the report",
		},
	}
}

func entryFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "entry-point",
		Aliases:  []string{"e"},
		Usage:    "Crawl from this file, relative to the tsconfig directory",
		Required: required,
	}
}

func runDefault(c *cli.Context) error {
	return traverse(c, c.String("entry-point"))
}

func scanCmd() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Analyze every file the tsconfig lists",
		ArgsUsage: "[tsconfig]",
		Flags:     runFlags(),
		Action: func(c *cli.Context) error {
			return traverse(c, "")
		},
	}
}

func crawlCmd() *cli.Command {
	return &cli.Command{
		Name:      "crawl",
		Usage:     "Analyze an entry file and every local file it imports",
		ArgsUsage: "[tsconfig]",
		Flags:     append(runFlags(), entryFlag(true)),
		Action: func(c *cli.Context) error {
			return traverse(c, c.String("entry-point"))
		},
	}
}

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the version",
		Action: func(c *cli.Context) error {
			fmt.Fprintf(c.App.Writer, "jsxusage %s\n", version)
			return nil
		},
	}
}
