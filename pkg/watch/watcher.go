// Package watch re-runs a whole-project scan when source files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gnana997/jsxusage/pkg/crawler"
	"github.com/gnana997/jsxusage/pkg/parser"
)

// Scanner is the part of crawler.Engine the watcher drives.
type Scanner interface {
	ScanProject(ctx context.Context) (*crawler.Result, error)
	Invalidate(path string)
}

// ReportFunc receives the outcome of every rescan.
type ReportFunc func(res *crawler.Result, err error)

// Options configure a Watcher.
type Options struct {
	// DebounceMs is the quiet period per path before it counts as changed.
	// 0 means 200.
	DebounceMs int

	// IgnorePatterns are filepath.Match patterns checked against base names.
	IgnorePatterns []string

	// InitialScan runs a scan as soon as Start is called.
	InitialScan bool
}

// ignoredDirs are never watched.
var ignoredDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"build":        true,
	".next":        true,
}

// Stats describes a running watcher.
type Stats struct {
	PendingChanges int
	Rescans        int
	IsRunning      bool
}

// Watcher watches a project tree and rescans after changes.
//
// Usage:
//
//	w, err := watch.New(engine, watch.Options{}, render, logger)
//	if err != nil {
//	    return err
//	}
//	if err := w.Start(ctx, manifest.Root); err != nil {
//	    return err
//	}
//	defer w.Stop()
type Watcher struct {
	fs       *fsnotify.Watcher
	scanner  Scanner
	onReport ReportFunc
	opts     Options
	logger   *slog.Logger

	timers   map[string]*time.Timer
	timersMu sync.Mutex

	// rescan has room for one queued request; more changes while it is
	// full fold into that one.
	rescan  chan struct{}
	rescans int

	cancel  context.CancelFunc
	loops   sync.WaitGroup
	started bool
	stopped bool
	mu      sync.Mutex
}

// New creates a watcher. onReport is called from the watcher's goroutine.
func New(scanner Scanner, opts Options, onReport ReportFunc, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DebounceMs <= 0 {
		opts.DebounceMs = 200
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		fs:       fsw,
		scanner:  scanner,
		onReport: onReport,
		opts:     opts,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
		rescan:   make(chan struct{}, 1),
	}, nil
}

// Start watches root recursively. Calling Start again is a no-op.
func (w *Watcher) Start(ctx context.Context, root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return errors.New("watcher already stopped")
	}
	if w.started {
		return nil
	}

	if err := w.addTree(root); err != nil {
		return err
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.started = true

	w.loops.Add(2)
	go w.eventLoop(ctx)
	go w.scanLoop(ctx)

	if w.opts.InitialScan {
		w.requestRescan()
	}

	w.logger.Info("file watcher started", "root", root, "debounce_ms", w.opts.DebounceMs)
	return nil
}

// Stop ends watching and waits for a running rescan to finish. It is
// idempotent.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	cancel := w.cancel
	w.mu.Unlock()

	w.timersMu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	w.timersMu.Unlock()

	err := w.fs.Close()
	if cancel != nil {
		cancel()
	}
	w.loops.Wait()

	w.logger.Info("file watcher stopped")
	return err
}

// Stats returns a snapshot of the watcher's state.
func (w *Watcher) Stats() Stats {
	w.timersMu.Lock()
	pending := len(w.timers)
	w.timersMu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		PendingChanges: pending,
		Rescans:        w.rescans,
		IsRunning:      w.started && !w.stopped,
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("failed to watch %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.shouldIgnore(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			if path == root {
				return fmt.Errorf("failed to watch %s: %w", root, err)
			}
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer w.loops.Done()
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) scanLoop(ctx context.Context) {
	defer w.loops.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.rescan:
			res, err := w.scanner.ScanProject(ctx)
			if ctx.Err() != nil {
				return
			}

			w.mu.Lock()
			w.rescans++
			w.mu.Unlock()

			if err != nil {
				w.logger.Warn("rescan failed", "error", err)
			}
			if w.onReport != nil {
				w.onReport(res, err)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	if w.shouldIgnore(path) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addTree(path); err != nil {
				w.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
			return
		}
	}

	if !parser.IsSourceFile(path) {
		return
	}

	w.logger.Debug("file event", "op", event.Op.String(), "file", path)
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.debounce(path)
	}
}

// debounce schedules path's invalidation once it has been quiet for the
// debounce period.
func (w *Watcher) debounce(path string) {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}

	w.timers[path] = time.AfterFunc(time.Duration(w.opts.DebounceMs)*time.Millisecond, func() {
		w.timersMu.Lock()
		delete(w.timers, path)
		w.timersMu.Unlock()

		w.scanner.Invalidate(path)
		w.requestRescan()
	})
}

func (w *Watcher) requestRescan() {
	select {
	case w.rescan <- struct{}{}:
	default:
	}
}

func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	if ignoredDirs[base] {
		return true
	}
	for _, pattern := range w.opts.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
