// Package crawler decides which files get analyzed and turns worker
// replies into a report.
//
// Two traversal strategies share one engine:
//
//   - ScanProject analyzes every file the project manifest lists.
//   - CrawlEntry starts at one file and follows locally resolved imports
//     until no new file turns up.
//
// Both fan work out through pkg/dispatch. Module resolution, aggregation
// and the crawl worklist stay on the coordinator's goroutine.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gnana997/jsxusage/pkg/dispatch"
	"github.com/gnana997/jsxusage/pkg/project"
	"github.com/gnana997/jsxusage/pkg/report"
	"github.com/gnana997/jsxusage/pkg/resolver"
	"github.com/gnana997/jsxusage/pkg/util"
)

// ProgressFunc is called after each reply with the files handled so far
// and the files known. In crawl mode total grows as the crawl proceeds.
type ProgressFunc func(processed, total int)

// Options configures an Engine.
type Options struct {
	Manifest *project.Manifest

	// Extensions filters whole-project scans. Defaults to
	// project.DefaultExtensions.
	Extensions []string

	// Workers is the worker count; values below one mean util.DefaultParallel.
	Workers int

	// MaxChunkSize caps request size; 0 means dispatch.MaxChunkSize.
	MaxChunkSize int

	// Dial starts workers. Nil runs them in-process on a shared analyzer.
	Dial dispatch.Dialer

	BuiltinNamespaces []string
	SkipBuiltins      bool

	// LogLevel is forwarded to workers that build their own logger.
	LogLevel string

	// ModuleCacheSize bounds the module resolution cache.
	ModuleCacheSize int

	OnProgress ProgressFunc
	Logger     *slog.Logger
}

// Summary describes a finished run.
type Summary struct {
	FilesTotal  int                    `json:"filesTotal"`
	FilesParsed int                    `json:"filesParsed"`
	Failures    []dispatch.FileFailure `json:"failures,omitempty"`
	Unresolved  int                    `json:"unresolvedImports"`
	Workers     int                    `json:"workers"`
	Chunks      int                    `json:"chunks"`
	Elapsed     time.Duration          `json:"elapsed"`
}

// Result is the outcome of one traversal.
type Result struct {
	Report  *report.Report
	Summary Summary
}

// Engine runs traversals over one project. It can be reused for repeated
// runs, and in-process workers keep their analyzer cache between them.
type Engine struct {
	opts    Options
	modules *resolver.ModuleResolver
	opener  *dispatch.Opener
	logger  *slog.Logger
}

// New creates an engine for opts.Manifest.
func New(opts Options) (*Engine, error) {
	if opts.Manifest == nil {
		return nil, errors.New("crawler: manifest is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = project.DefaultExtensions
	}
	if opts.MaxChunkSize < 1 {
		opts.MaxChunkSize = dispatch.MaxChunkSize
	}

	modules, err := resolver.NewModuleResolver(opts.Manifest, resolver.ModuleOptions{
		CacheSize: opts.ModuleCacheSize,
		Logger:    opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		opts:    opts,
		modules: modules,
		opener:  dispatch.NewOpener(opts.Logger),
		logger:  opts.Logger,
	}
	if e.opts.Dial == nil {
		e.opts.Dial = dispatch.InProcessDialer(e.opener, opts.Logger)
	}
	return e, nil
}

// ScanProject analyzes every manifest file with a scanned extension.
// Per-file failures are collected in the summary and do not stop the scan.
func (e *Engine) ScanProject(ctx context.Context) (*Result, error) {
	start := time.Now()

	files, err := e.opts.Manifest.Files(e.opts.Extensions)
	if err != nil {
		return nil, fmt.Errorf("failed to list project files: %w", err)
	}
	e.logger.Info("scanning project", "root", e.opts.Manifest.Root, "files", len(files))

	workers := util.WorkerCount(e.opts.Workers, len(files))
	r := e.newRun(false)
	r.summary.FilesTotal = len(files)

	cursor := dispatch.NewCursor(files, workers, e.opts.MaxChunkSize)
	if err := e.execute(ctx, r, cursor, workers); err != nil {
		return nil, err
	}

	return r.result(start), nil
}

// CrawlEntry analyzes entry and, transitively, every analysable local file
// it imports. entry is taken relative to the tsconfig directory unless it
// is absolute. A malformed component name anywhere aborts the crawl.
func (e *Engine) CrawlEntry(ctx context.Context, entry string) (*Result, error) {
	start := time.Now()

	path := entry
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.opts.Manifest.Root, entry)
	}
	path = filepath.Clean(path)
	if info, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("entry point not found: %w", err)
	} else if info.IsDir() {
		return nil, fmt.Errorf("entry point %s is a directory", path)
	}
	e.logger.Info("crawling from entry point", "entry", path)

	workers := util.WorkerCount(e.opts.Workers, 0)
	worklist := NewWorklist(workers, e.opts.MaxChunkSize)
	worklist.Add(path)

	r := e.newRun(true)
	r.worklist = worklist

	if err := e.execute(ctx, r, worklist, workers); err != nil {
		return nil, err
	}
	if !worklist.Settled() {
		return nil, fmt.Errorf("crawl stopped with %d files pending and %d in flight",
			worklist.Pending(), worklist.InFlight())
	}

	r.summary.FilesTotal = worklist.Total()
	return r.result(start), nil
}

// Root is the project directory, the tsconfig's directory.
func (e *Engine) Root() string { return e.opts.Manifest.Root }

// Invalidate forgets cached analysis of path and every memoised module
// resolution. Watch mode calls it for each changed file.
func (e *Engine) Invalidate(path string) {
	e.opener.Invalidate(path)
	e.modules.Invalidate()
}

// Close releases the in-process analyzer.
func (e *Engine) Close() error {
	return e.opener.Close()
}

func (e *Engine) execute(ctx context.Context, r *run, src dispatch.Source, workers int) error {
	conns, err := dispatch.StartPool(ctx, workers, e.opts.Dial)
	if err != nil {
		return &dispatch.AbortedError{Total: src.Total(), Err: err}
	}

	coord := dispatch.NewCoordinator(dispatch.Config{
		Conns:  conns,
		Source: src,
		Handle: r.handle,
		Options: dispatch.Options{
			Root:              e.opts.Manifest.Root,
			BuiltinNamespaces: e.opts.BuiltinNamespaces,
			SkipBuiltins:      e.opts.SkipBuiltins,
			LogLevel:          e.opts.LogLevel,
		},
		Logger: e.logger,
	})

	stats, err := coord.Run(ctx)
	r.summary.Workers = stats.Workers
	r.summary.Chunks = stats.Chunks
	if err != nil {
		e.logger.Debug("run aborted", "error", err)
		return err
	}
	return nil
}

// run is the per-traversal state the reply handler mutates.
type run struct {
	engine   *Engine
	report   *report.Report
	summary  Summary
	worklist *Worklist
	// strict makes malformed component names fatal.
	strict bool
}

func (e *Engine) newRun(strict bool) *run {
	return &run{engine: e, report: report.New(), strict: strict}
}

func (r *run) handle(reply dispatch.Reply) error {
	r.summary.FilesParsed += len(reply.FilesParsed)
	if r.worklist != nil {
		r.worklist.Complete(reply.FilesParsed)
	}

	for _, f := range reply.Failures {
		if r.strict && f.Kind == dispatch.FailureMalformedName {
			return f
		}
		r.engine.logger.Warn("file skipped", "file", f.Path, "error", f.Message)
		r.summary.Failures = append(r.summary.Failures, f)
	}

	res := resolveImports(r.engine.modules, reply.Instances)
	r.report.Merge(res.instances...)
	r.summary.Unresolved += res.unresolved

	total := r.summary.FilesTotal
	if r.worklist != nil {
		for _, p := range res.locals {
			r.worklist.Add(p)
		}
		total = r.worklist.Total()
	}

	if r.engine.opts.OnProgress != nil {
		r.engine.opts.OnProgress(r.summary.FilesParsed, total)
	}
	return nil
}

func (r *run) result(start time.Time) *Result {
	r.summary.Elapsed = time.Since(start)
	r.engine.logger.Info("run complete",
		"files", r.summary.FilesParsed,
		"keys", r.report.Len(),
		"instances", r.report.Total(),
		"failures", len(r.summary.Failures),
		"unresolved", r.summary.Unresolved,
		"elapsed", r.summary.Elapsed)
	return &Result{Report: r.report, Summary: r.summary}
}
