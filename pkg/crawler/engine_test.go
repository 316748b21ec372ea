package crawler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/jsxusage/pkg/dispatch"
	"github.com/gnana997/jsxusage/pkg/project"
	"github.com/gnana997/jsxusage/pkg/report"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newEngine(t *testing.T, root string, opts Options) *Engine {
	t.Helper()
	m, err := project.Load(filepath.Join(root, "tsconfig.json"))
	require.NoError(t, err)

	opts.Manifest = m
	e, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// writeApp lays out a small project touching every origin kind.
func writeApp(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "tsconfig.json", `{
  "compilerOptions": { "baseUrl": ".", "paths": { "@/*": ["src/*"] } },
  "include": ["src"]
}`)
	writeFile(t, root, "src/App.tsx", `import { Button } from "./components/Button";
import Card from "@/components/Card";
import { Dialog } from "ui-kit";
import Missing from "./nope";

export function App() {
  return (
    <div>
      <Button kind="primary" />
      <Card />
      <Dialog open />
      <Missing />
    </div>
  );
}
`)
	writeFile(t, root, "src/components/Button.tsx", `export const Button = (p: any) => <button {...p} />;
`)
	writeFile(t, root, "src/components/Card.tsx", `import { Button } from "./Button";

export default function Card() {
  return <section><Button size={2} /></section>;
}
`)
	writeFile(t, root, "src/Unused.tsx", `export const Unused = () => <span />;
`)
	writeFile(t, root, "node_modules/ui-kit/package.json", `{"name": "ui-kit", "types": "index.d.ts"}`)
	writeFile(t, root, "node_modules/ui-kit/index.d.ts", `export declare const Dialog: any;
`)
	return root
}

func TestScanProject(t *testing.T) {
	root := writeApp(t)

	var lastProcessed, lastTotal int
	e := newEngine(t, root, Options{
		Workers: 2,
		OnProgress: func(processed, total int) {
			lastProcessed, lastTotal = processed, total
		},
	})

	res, err := e.ScanProject(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"./nope/default",
		"button/button",
		"div/div",
		"section/section",
		"span/span",
		"src/components/Button.tsx/Button",
		"src/components/Card.tsx/default",
		"ui-kit/Dialog",
	}, res.Report.Keys())

	buttons := res.Report.Instances("src/components/Button.tsx/Button")
	require.Len(t, buttons, 2)

	cards := res.Report.Instances("src/components/Card.tsx/default")
	require.Len(t, cards, 1)
	assert.Equal(t, "Card", cards[0].Alias)
	assert.Equal(t, report.OriginLocal, cards[0].Origin.Kind)

	dialog := res.Report.Instances("ui-kit/Dialog")[0]
	assert.Equal(t, report.OriginExternal, dialog.Origin.Kind)
	open, ok := dialog.Prop("open")
	require.True(t, ok)
	assert.Equal(t, report.PropShorthand, open.Value.Kind)

	missing := res.Report.Instances("./nope/default")[0]
	assert.Equal(t, report.OriginUnresolved, missing.Origin.Kind)

	assert.Equal(t, 4, res.Summary.FilesTotal)
	assert.Equal(t, 4, res.Summary.FilesParsed)
	assert.Equal(t, 1, res.Summary.Unresolved)
	assert.Empty(t, res.Summary.Failures)
	assert.Equal(t, 2, res.Summary.Workers)
	assert.Equal(t, 4, lastProcessed)
	assert.Equal(t, 4, lastTotal)
}

func TestCrawlEntry_FollowsLocalImports(t *testing.T) {
	root := writeApp(t)
	e := newEngine(t, root, Options{Workers: 3})

	res, err := e.CrawlEntry(context.Background(), "src/App.tsx")
	require.NoError(t, err)

	keys := res.Report.Keys()
	assert.NotContains(t, keys, "span/span")
	assert.Contains(t, keys, "src/components/Card.tsx/default")
	assert.Len(t, res.Report.Instances("src/components/Button.tsx/Button"), 2)

	assert.Equal(t, 3, res.Summary.FilesParsed)
	assert.Equal(t, 3, res.Summary.FilesTotal)
	assert.Equal(t, 1, res.Summary.Unresolved)
}

func TestCrawlEntry_DiamondAnalyzesSharedFileOnce(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "tsconfig.json", `{}`)
	writeFile(t, root, "A.tsx", `import { B } from "./B";
import { C } from "./C";
export const A = () => <><B /><C /></>;
`)
	writeFile(t, root, "B.tsx", `import { D } from "./D";
export const B = () => <D />;
`)
	writeFile(t, root, "C.tsx", `import { D } from "./D";
import { A } from "./A";
export const C = () => <D><A /></D>;
`)
	writeFile(t, root, "D.tsx", `export const D = (p: any) => <i>{p.children}</i>;
`)

	e := newEngine(t, root, Options{Workers: 4, MaxChunkSize: 1})

	res, err := e.CrawlEntry(context.Background(), "A.tsx")
	require.NoError(t, err)

	assert.Equal(t, 4, res.Summary.FilesParsed)
	assert.Equal(t, 4, res.Summary.FilesTotal)
	assert.Len(t, res.Report.Instances("i/i"), 1)
	assert.Len(t, res.Report.Instances("D.tsx/D"), 2)
	assert.Len(t, res.Report.Instances("A.tsx/A"), 1)
}

func TestMalformedName_ScanContinuesCrawlAborts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "tsconfig.json", `{}`)
	writeFile(t, root, "Main.tsx", `import { Icon } from "./Icon";
export const Main = () => <Icon />;
`)
	writeFile(t, root, "Icon.tsx", `export const Icon = () => <svg:rect />;
`)

	t.Run("scan records failure", func(t *testing.T) {
		e := newEngine(t, root, Options{Workers: 1})
		res, err := e.ScanProject(context.Background())
		require.NoError(t, err)

		require.Len(t, res.Summary.Failures, 1)
		f := res.Summary.Failures[0]
		assert.Equal(t, dispatch.FailureMalformedName, f.Kind)
		assert.Equal(t, filepath.Join(root, "Icon.tsx"), f.Path)
		assert.Equal(t, 2, res.Summary.FilesParsed)
		assert.Contains(t, res.Report.Keys(), "Icon.tsx/Icon")
	})

	t.Run("crawl aborts", func(t *testing.T) {
		e := newEngine(t, root, Options{Workers: 2})
		_, err := e.CrawlEntry(context.Background(), "Main.tsx")
		require.Error(t, err)

		var aborted *dispatch.AbortedError
		require.True(t, errors.As(err, &aborted))
		assert.Equal(t, 2, aborted.Total)

		var failure dispatch.FileFailure
		require.True(t, errors.As(err, &failure))
		assert.Equal(t, dispatch.FailureMalformedName, failure.Kind)
	})
}

func TestCrawlEntry_MissingEntry(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "tsconfig.json", `{}`)
	e := newEngine(t, root, Options{})

	_, err := e.CrawlEntry(context.Background(), "src/nope.tsx")
	assert.ErrorContains(t, err, "entry point not found")

	_, err = e.CrawlEntry(context.Background(), ".")
	assert.ErrorContains(t, err, "is a directory")
}

func TestScanProject_SkipBuiltinsAndRescan(t *testing.T) {
	root := writeApp(t)
	e := newEngine(t, root, Options{Workers: 1, SkipBuiltins: true})

	res, err := e.ScanProject(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, res.Report.Keys(), "div/div")

	writeFile(t, root, "src/Unused.tsx", `import { Button } from "./components/Button";
export const Unused = () => <Button />;
`)
	e.Invalidate(filepath.Join(root, "src/Unused.tsx"))

	res, err = e.ScanProject(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Report.Instances("src/components/Button.tsx/Button"), 3)
}

func TestNew_RequiresManifest(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
