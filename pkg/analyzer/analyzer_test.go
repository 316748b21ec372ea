package analyzer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/jsxusage/pkg/extractor"
	"github.com/gnana997/jsxusage/pkg/report"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newAnalyzer(t *testing.T, opts Options) *Analyzer {
	t.Helper()
	a, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

const appSource = `import Card from "./Card";
import { Button as Btn } from "ui-kit";

function Sidebar() {
  return null;
}

export function App() {
  return (
    <div className="app">
      <Card title="Hi" />
      <Btn {...rest} disabled>Go</Btn>
      <Sidebar />
    </div>
  );
}
`

func TestAnalyze_Partials(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, "src/App.tsx", appSource)
	a := newAnalyzer(t, Options{Root: tmp})

	partials, err := a.Analyze(path)
	require.NoError(t, err)
	require.Len(t, partials, 4)

	div := partials[0]
	assert.True(t, div.Resolved())
	assert.Equal(t, "div/div", div.Instance.Key())
	assert.True(t, div.Instance.HasChildren)
	assert.Equal(t, "src/App.tsx", div.Instance.Location.File)
	assert.Equal(t, path, div.Instance.Location.AbsolutePath)
	assert.Equal(t, report.Position{Line: 10, Column: 4}, div.Instance.Location.Start)

	card := partials[1]
	require.False(t, card.Resolved())
	assert.Equal(t, "./Card", card.Import.Specifier)
	assert.Equal(t, path, card.Import.FromFile)
	assert.Equal(t, "default", card.Instance.Name)
	assert.Equal(t, "Card", card.Instance.Alias)
	assert.False(t, card.Instance.HasChildren)
	title, ok := card.Instance.Prop("title")
	require.True(t, ok)
	assert.Equal(t, report.StringValue("Hi"), title.Value)
	assert.Equal(t, "src/App.tsx:11:12", title.Location)

	btn := partials[2]
	assert.Equal(t, "ui-kit", btn.Import.Specifier)
	assert.Equal(t, "Button", btn.Instance.Name)
	assert.Equal(t, "Btn", btn.Instance.Alias)
	assert.True(t, btn.Instance.Spread)
	disabled, ok := btn.Instance.Prop("disabled")
	require.True(t, ok)
	assert.Equal(t, report.ShorthandValue(), disabled.Value)

	sidebar := partials[3]
	assert.True(t, sidebar.Resolved())
	assert.Equal(t, "src/App.tsx/Sidebar", sidebar.Instance.Key())
	assert.Equal(t, report.OriginLocal, sidebar.Instance.Origin.Kind)
}

func TestAnalyze_SkipBuiltins(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, "src/App.tsx", appSource)
	a := newAnalyzer(t, Options{Root: tmp, SkipBuiltins: true})

	partials, err := a.Analyze(path)
	require.NoError(t, err)
	require.Len(t, partials, 3)
	for _, p := range partials {
		assert.NotEqual(t, report.OriginBuiltin, p.Instance.Origin.Kind)
	}
}

func TestAnalyze_CustomNamespaces(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, "App.tsx", `const x = <><React.Fragment /><Preact.Fragment /></>;`)
	a := newAnalyzer(t, Options{Root: tmp, BuiltinNamespaces: []string{"Preact"}})

	partials, err := a.Analyze(path)
	require.NoError(t, err)
	require.Len(t, partials, 2)
	assert.Equal(t, "App.tsx/React.Fragment", partials[0].Instance.Key())
	assert.Equal(t, "Preact.Fragment/Preact.Fragment", partials[1].Instance.Key())
}

func TestAnalyze_CacheValidatedByContent(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, "App.tsx", `const a = <Button />;`)
	a := newAnalyzer(t, Options{Root: tmp})

	first, err := a.Analyze(path)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := a.Analyze(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), a.Stats().CacheHits)

	writeFile(t, tmp, "App.tsx", `const a = <><Button /><Card /></>;`)
	third, err := a.Analyze(path)
	require.NoError(t, err)
	assert.Len(t, third, 2, "changed content must be re-analyzed")
	assert.Equal(t, int64(2), a.Stats().FilesAnalyzed)
}

func TestAnalyze_ReturnsIndependentCopies(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, "App.tsx", `import { X } from "x";
const a = <X />;`)
	a := newAnalyzer(t, Options{Root: tmp})

	first, err := a.Analyze(path)
	require.NoError(t, err)
	first[0].Import.Specifier = "mutated"

	second, err := a.Analyze(path)
	require.NoError(t, err)
	assert.Equal(t, "x", second[0].Import.Specifier)
}

func TestAnalyze_Invalidate(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, "App.tsx", `const a = <Button />;`)
	a := newAnalyzer(t, Options{Root: tmp})

	_, err := a.Analyze(path)
	require.NoError(t, err)
	a.Invalidate(path)

	_, err = a.Analyze(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), a.Stats().CacheHits)
}

func TestAnalyze_Errors(t *testing.T) {
	tmp := t.TempDir()
	a := newAnalyzer(t, Options{Root: tmp})

	_, err := a.Analyze(filepath.Join(tmp, "missing.tsx"))
	assert.Error(t, err)

	bad := writeFile(t, tmp, "Bad.tsx", `const a = <A.B.C />;`)
	_, err = a.Analyze(bad)
	var malformed *extractor.MalformedComponentNameError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, bad, malformed.File)

	assert.Equal(t, int64(2), a.Stats().Failures)
}

func TestAnalyze_EmptyFile(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, "Empty.tsx", "")
	a := newAnalyzer(t, Options{Root: tmp})

	partials, err := a.Analyze(path)
	require.NoError(t, err)
	assert.Empty(t, partials)
}

func TestAnalyze_InvalidateWhileAnalyzing(t *testing.T) {
	tmp := t.TempDir()
	var b strings.Builder
	b.WriteString("export function Big() {\n  return (\n    <div>\n")
	for range 5000 {
		b.WriteString(`      <Row label="x" {...rest} />` + "\n")
	}
	b.WriteString("    </div>\n  );\n}\n")
	path := writeFile(t, tmp, "Big.tsx", b.String())
	a := newAnalyzer(t, Options{Root: tmp})

	stop := make(chan struct{})
	var invalidator sync.WaitGroup
	invalidator.Add(1)
	go func() {
		defer invalidator.Done()
		for {
			select {
			case <-stop:
				return
			default:
				a.Invalidate(path)
			}
		}
	}()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 5 {
				partials, err := a.Analyze(path)
				if !assert.NoError(t, err) {
					return
				}
				assert.Len(t, partials, 5001)
			}
		}()
	}
	wg.Wait()
	close(stop)
	invalidator.Wait()
}

func TestAnalyze_BuiltinWinsOverSameNamedImport(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, "App.tsx", `import div from "./div";
const a = <div />;`)
	a := newAnalyzer(t, Options{Root: tmp})

	partials, err := a.Analyze(path)
	require.NoError(t, err)
	require.Len(t, partials, 1)
	assert.True(t, partials[0].Resolved())
	assert.Equal(t, report.Builtin("div"), partials[0].Instance.Origin)
	assert.Equal(t, "div", partials[0].Instance.Name)
}
