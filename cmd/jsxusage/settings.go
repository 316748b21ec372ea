package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/gnana997/jsxusage/pkg/config"
	"github.com/gnana997/jsxusage/pkg/crawler"
	"github.com/gnana997/jsxusage/pkg/dispatch"
	"github.com/gnana997/jsxusage/pkg/formatter"
	"github.com/gnana997/jsxusage/pkg/project"
	"github.com/gnana997/jsxusage/pkg/util"
)

// loadConfig resolves settings: flags over the config file over defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, _, err = config.LoadOrDefault()
	}
	if err != nil {
		return nil, err
	}

	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := formatter.Lookup(cfg.Output.Formatter); err != nil {
		return nil, err
	}
	if _, err := formatter.ParseFormat(cfg.Output.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("tsconfig") {
		cfg.Project.TSConfig = c.String("tsconfig")
	} else if c.Args().Present() {
		cfg.Project.TSConfig = c.Args().First()
	}
	if c.IsSet("output") {
		cfg.Output.Path = c.String("output")
	}
	if c.IsSet("formatter") {
		cfg.Output.Formatter = c.String("formatter")
	}
	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if c.IsSet("parallel") {
		cfg.Scan.Parallel = c.Int("parallel")
	}
	if c.IsSet("worker-mode") {
		cfg.Scan.WorkerMode = c.String("worker-mode")
	}
	if c.Bool("no-builtins") {
		cfg.Scan.IncludeBuiltins = false
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
}

// newLogger builds the stderr logger and installs it as the default.
func newLogger(cfg *config.Config) *slog.Logger {
	logger := util.NewLogger(util.LoggerConfig{
		Level:  util.ParseLogLevel(cfg.Log.Level),
		Format: util.ParseLogFormat(cfg.Log.Format),
		Output: os.Stderr,
	})
	util.SetDefault(logger)
	return logger
}

// newEngine loads the tsconfig and wires workers for the configured mode.
func newEngine(cfg *config.Config, logger *slog.Logger, onProgress crawler.ProgressFunc) (*crawler.Engine, error) {
	manifest, err := project.Load(cfg.Project.TSConfig)
	if err != nil {
		return nil, err
	}

	dial, err := dialer(cfg)
	if err != nil {
		return nil, err
	}

	return crawler.New(crawler.Options{
		Manifest:          manifest,
		Extensions:        cfg.Project.Extensions,
		Workers:           cfg.Scan.Parallel,
		MaxChunkSize:      cfg.Scan.MaxChunkSize,
		Dial:              dial,
		BuiltinNamespaces: cfg.Scan.BuiltinNamespaces,
		SkipBuiltins:      !cfg.Scan.IncludeBuiltins,
		LogLevel:          cfg.Log.Level,
		OnProgress:        onProgress,
		Logger:            logger,
	})
}

// dialer returns nil for in-process workers; the engine supplies its own.
func dialer(cfg *config.Config) (dispatch.Dialer, error) {
	if cfg.Scan.WorkerMode != config.WorkerModeProcess {
		return nil, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable for worker processes: %w", err)
	}
	return dispatch.ProcessDialer(exe, workerArgs(cfg), os.Stderr), nil
}

func workerArgs(cfg *config.Config) []string {
	return []string{"--log-level", cfg.Log.Level, "--log-format", cfg.Log.Format, "worker"}
}
