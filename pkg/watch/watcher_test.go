package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/jsxusage/pkg/crawler"
	"github.com/gnana997/jsxusage/pkg/project"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// fakeScanner counts scans and records invalidated paths.
type fakeScanner struct {
	mu          sync.Mutex
	scans       int
	invalidated []string
}

func (f *fakeScanner) ScanProject(context.Context) (*crawler.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	return &crawler.Result{}, nil
}

func (f *fakeScanner) Invalidate(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, path)
}

func (f *fakeScanner) snapshot() (int, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scans, append([]string(nil), f.invalidated...)
}

func newWatcher(t *testing.T, s Scanner, opts Options, onReport ReportFunc) *Watcher {
	t.Helper()
	w, err := New(s, opts, onReport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })
	return w
}

func TestWatcher_DebouncesAndRescans(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/App.tsx", "export const App = () => <div />;\n")

	fs := &fakeScanner{}
	reports := make(chan struct{}, 10)
	w := newWatcher(t, fs, Options{DebounceMs: 50}, func(*crawler.Result, error) {
		reports <- struct{}{}
	})
	require.NoError(t, w.Start(context.Background(), root))

	path := filepath.Join(root, "src", "App.tsx")
	for i := range 5 {
		writeFile(t, root, "src/App.tsx", "export const App = () => <div id=\""+string(rune('a'+i))+"\" />;\n")
	}

	select {
	case <-reports:
	case <-time.After(5 * time.Second):
		t.Fatal("no rescan after change")
	}

	scans, invalidated := fs.snapshot()
	assert.GreaterOrEqual(t, scans, 1)
	assert.Contains(t, invalidated, path)
	assert.True(t, w.Stats().IsRunning)
}

func TestWatcher_IgnoresNonSourceAndIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "node_modules/pkg/index.tsx", "")

	fs := &fakeScanner{}
	w := newWatcher(t, fs, Options{DebounceMs: 10, IgnorePatterns: []string{"*.gen.tsx"}}, nil)
	require.NoError(t, w.Start(context.Background(), root))

	writeFile(t, root, "README.md", "hi")
	writeFile(t, root, "node_modules/pkg/index.tsx", "changed")
	writeFile(t, root, "Thing.gen.tsx", "")

	time.Sleep(200 * time.Millisecond)
	scans, invalidated := fs.snapshot()
	assert.Zero(t, scans)
	assert.Empty(t, invalidated)
}

func TestWatcher_StartStopIdempotent(t *testing.T) {
	root := t.TempDir()
	fs := &fakeScanner{}
	w := newWatcher(t, fs, Options{InitialScan: true}, nil)

	require.NoError(t, w.Start(context.Background(), root))
	require.NoError(t, w.Start(context.Background(), root))

	assert.Eventually(t, func() bool {
		scans, _ := fs.snapshot()
		return scans == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	assert.False(t, w.Stats().IsRunning)
	assert.Error(t, w.Start(context.Background(), root))
}

func TestWatcher_MissingRoot(t *testing.T) {
	w := newWatcher(t, &fakeScanner{}, Options{}, nil)
	err := w.Start(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorContains(t, err, "failed to watch")
}

func TestWatcher_RescansEngine(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "tsconfig.json", `{}`)
	writeFile(t, root, "App.tsx", "export const App = () => <div />;\n")

	m, err := project.Load(filepath.Join(root, "tsconfig.json"))
	require.NoError(t, err)
	engine, err := crawler.New(crawler.Options{Manifest: m, Workers: 1})
	require.NoError(t, err)
	defer engine.Close()

	results := make(chan *crawler.Result, 10)
	w := newWatcher(t, engine, Options{DebounceMs: 30}, func(res *crawler.Result, err error) {
		if err == nil {
			results <- res
		}
	})
	require.NoError(t, w.Start(context.Background(), root))

	writeFile(t, root, "App.tsx", "export const App = () => <section />;\n")

	select {
	case res := <-results:
		assert.Contains(t, res.Report.Keys(), "section/section")
		assert.NotContains(t, res.Report.Keys(), "div/div")
	case <-time.After(5 * time.Second):
		t.Fatal("no rescan after change")
	}
}
