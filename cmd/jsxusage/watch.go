package main

import (
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/gnana997/jsxusage/pkg/config"
	"github.com/gnana997/jsxusage/pkg/crawler"
	"github.com/gnana997/jsxusage/pkg/watch"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Rescan the project whenever a source file changes",
		ArgsUsage: "[tsconfig]",
		Flags: append(runFlags(),
			&cli.IntFlag{
				Name:  "debounce",
				Usage: "Quiet period in milliseconds before a change triggers a rescan (default 200)",
			},
		),
		Action: runWatch,
	}
}

func runWatch(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("debounce") {
		cfg.Watch.DebounceMs = c.Int("debounce")
	}
	// Invalidate only reaches the in-process analyzer cache.
	cfg.Scan.WorkerMode = config.WorkerModeInProcess

	logger := newLogger(cfg)
	status := newStatus(c.App.ErrWriter, c.Bool("quiet"))

	engine, err := newEngine(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	onReport := func(res *crawler.Result, err error) {
		if err != nil {
			color.New(color.FgRed).Fprintf(status.w, "Rescan failed: %v\n", err)
			return
		}
		if err := writeReport(c.App.Writer, cfg, res); err != nil {
			color.New(color.FgRed).Fprintf(status.w, "Failed to write report: %v\n", err)
			return
		}
		status.summary(res, cfg.Output.Path, res.Summary.Elapsed)
	}

	w, err := watch.New(engine, watch.Options{
		DebounceMs:  cfg.Watch.DebounceMs,
		InitialScan: true,
	}, onReport, logger)
	if err != nil {
		return err
	}
	if err := w.Start(c.Context, engine.Root()); err != nil {
		return err
	}
	defer w.Stop()

	if !c.Bool("quiet") {
		color.New(color.FgCyan).Fprintf(status.w, "Watching %s (Ctrl+C to stop)\n", engine.Root())
	}
	<-c.Context.Done()

	logger.Info("watch stopped", "rescans", w.Stats().Rescans)
	return nil
}
