package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/gnana997/jsxusage/pkg/config"
	"github.com/gnana997/jsxusage/pkg/crawler"
	"github.com/gnana997/jsxusage/pkg/formatter"
	"github.com/gnana997/jsxusage/pkg/progress"
)

// traverse runs a whole-project scan, or a crawl when entry is set, and
// writes the report.
func traverse(c *cli.Context, entry string) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	status := newStatus(c.App.ErrWriter, c.Bool("quiet"))

	bar := &progressBar{crawl: entry != "", opts: progress.Options{Writer: c.App.ErrWriter, Quiet: c.Bool("quiet")}}
	engine, err := newEngine(cfg, logger, bar.update)
	if err != nil {
		return err
	}
	defer engine.Close()

	start := time.Now()
	var res *crawler.Result
	if entry != "" {
		res, err = engine.CrawlEntry(c.Context, entry)
	} else {
		res, err = engine.ScanProject(c.Context)
	}
	bar.finish()
	if err != nil {
		return err
	}

	if err := writeReport(c.App.Writer, cfg, res); err != nil {
		return err
	}
	status.summary(res, cfg.Output.Path, time.Since(start))
	return nil
}

// writeReport renders res to the configured file, or to stdout.
func writeReport(stdout io.Writer, cfg *config.Config, res *crawler.Result) error {
	format, err := formatter.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	if cfg.Output.Path == "" {
		return formatter.Write(stdout, cfg.Output.Formatter, format, res.Report)
	}

	f, err := os.Create(cfg.Output.Path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := formatter.Write(f, cfg.Output.Formatter, format, res.Report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// progressBar creates its tracker on the first update, once the scan
// knows how many files it has. It is only called from the coordinator.
type progressBar struct {
	crawl   bool
	opts    progress.Options
	tracker *progress.Tracker
}

func (p *progressBar) update(processed, total int) {
	if p.tracker == nil {
		if p.crawl {
			p.tracker = progress.NewSpinner("Crawling components", p.opts)
		} else {
			p.tracker = progress.NewTracker("Scanning components", total, p.opts)
		}
	}
	p.tracker.Update(processed, total)
}

func (p *progressBar) finish() {
	if p.tracker != nil {
		p.tracker.Finish()
	}
}

// status prints colored status lines to stderr.
type status struct {
	w     io.Writer
	quiet bool
}

func newStatus(w io.Writer, quiet bool) status {
	if w == nil {
		w = os.Stderr
	}
	return status{w: w, quiet: quiet}
}

func (s status) summary(res *crawler.Result, savedTo string, elapsed time.Duration) {
	if s.quiet {
		return
	}
	sum := res.Summary

	if n := len(sum.Failures); n > 0 {
		color.New(color.FgYellow).Fprintf(s.w, "Skipped %d of %d files:\n", n, sum.FilesTotal)
		for _, f := range sum.Failures {
			fmt.Fprintf(s.w, "  %s: %s\n", f.Path, f.Message)
		}
	}

	line := color.New(color.FgGreen)
	if sum.Unresolved > 0 {
		line = color.New(color.FgYellow)
	}
	line.Fprintf(s.w, "Scanned %d files, completed with %d unresolved imports\n", sum.FilesParsed, sum.Unresolved)

	if savedTo != "" {
		fmt.Fprintf(s.w, "Saved contents to %s\n", savedTo)
	}
	fmt.Fprintf(s.w, "Finished in %.2f seconds\n", elapsed.Seconds())
}
