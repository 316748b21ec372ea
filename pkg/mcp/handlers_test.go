package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/jsxusage/pkg/crawler"
	"github.com/gnana997/jsxusage/pkg/dispatch"
	"github.com/gnana997/jsxusage/pkg/mcplog"
	"github.com/gnana997/jsxusage/pkg/project"
	"github.com/gnana997/jsxusage/pkg/report"
)

// --- helpers ---

type fakeScanner struct {
	result  *crawler.Result
	err     error
	entries []string
	scans   int
}

func (f *fakeScanner) ScanProject(context.Context) (*crawler.Result, error) {
	f.scans++
	return f.result, f.err
}

func (f *fakeScanner) CrawlEntry(_ context.Context, entry string) (*crawler.Result, error) {
	f.entries = append(f.entries, entry)
	return f.result, f.err
}

func instance(origin report.Origin, name, file string, props ...report.Prop) report.ComponentInstance {
	return report.ComponentInstance{
		Name:     name,
		Origin:   origin,
		Location: report.Location{File: file, Start: report.Position{Line: 1}},
		Props:    props,
	}
}

func sampleResult() *crawler.Result {
	r := report.New()
	r.Merge(
		instance(report.ExternalPackage("@acme/ui"), "Button", "src/a.tsx",
			report.Prop{Name: "variant", Value: report.StringValue("primary")}),
		instance(report.ExternalPackage("@acme/ui"), "Button", "src/b.tsx"),
		instance(report.ExternalPackage("@acme/ui"), "Button", "src/c.tsx"),
		instance(report.ExternalPackage("@acme/ui"), "Dialog", "src/a.tsx"),
		instance(report.LocalFile("src/Card.tsx"), "default", "src/b.tsx"),
	)
	return &crawler.Result{
		Report:  r,
		Summary: crawler.Summary{FilesTotal: 3, FilesParsed: 3, Workers: 2, Chunks: 2},
	}
}

func testServer(scanner Scanner) *Server {
	return NewServer(scanner, "test", nil, nil)
}

func callTool(t *testing.T, s *Server, req mcp.CallToolRequest) *mcp.CallToolResult {
	t.Helper()
	var handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

	switch req.Params.Name {
	case "scan_project":
		handler = s.handleScanProject
	case "crawl_entry":
		handler = s.handleCrawlEntry
	case "component_usage":
		handler = s.handleComponentUsage
	case "list_formatters":
		handler = s.handleListFormatters
	default:
		t.Fatalf("unknown tool: %s", req.Params.Name)
	}

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func makeRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	var arguments any
	if args != nil {
		arguments = args
	}
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: arguments,
		},
	}
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return textContent.Text
}

// --- scan_project ---

func TestHandleScanProject(t *testing.T) {
	scanner := &fakeScanner{result: sampleResult()}
	s := testServer(scanner)

	result := callTool(t, s, makeRequest("scan_project", map[string]any{"formatter": "count"}))
	require.False(t, result.IsError, resultJSON(t, result))

	assert.JSONEq(t, `{
		"formatter": "count",
		"summary": {"filesTotal": 3, "filesParsed": 3, "unresolvedImports": 0, "workers": 2, "chunks": 2, "elapsed": 0},
		"output": {"@acme/ui/Button": 3, "@acme/ui/Dialog": 1, "src/Card.tsx/default": 1}
	}`, resultJSON(t, result))

	latest, source := s.Latest()
	assert.Same(t, scanner.result, latest)
	assert.Equal(t, "scan_project", source)
}

func TestHandleScanProject_DefaultFormatterIsRaw(t *testing.T) {
	s := testServer(&fakeScanner{result: sampleResult()})

	result := callTool(t, s, makeRequest("scan_project", nil))
	require.False(t, result.IsError)

	var payload struct {
		Formatter string `json:"formatter"`
		Output    struct {
			Usage map[string]struct {
				Instances []json.RawMessage `json:"instances"`
			} `json:"usage"`
		} `json:"output"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &payload))
	assert.Equal(t, "raw", payload.Formatter)
	assert.Len(t, payload.Output.Usage["@acme/ui/Button"].Instances, 3)
}

func TestHandleScanProject_UnknownFormatter(t *testing.T) {
	scanner := &fakeScanner{result: sampleResult()}
	s := testServer(scanner)

	result := callTool(t, s, makeRequest("scan_project", map[string]any{"formatter": "histogram"}))
	assert.True(t, result.IsError)
	assert.Contains(t, resultJSON(t, result), `unknown formatter "histogram"`)
	assert.Zero(t, scanner.scans, "no scan for a bad request")
}

func TestHandleScanProject_Aborted(t *testing.T) {
	s := testServer(&fakeScanner{err: &dispatch.AbortedError{Processed: 4, Total: 9, Err: errors.New("worker 1 failed")}})

	result := callTool(t, s, makeRequest("scan_project", nil))
	assert.True(t, result.IsError)
	assert.Contains(t, resultJSON(t, result), "aborted after processing 4 of 9 files")

	latest, _ := s.Latest()
	assert.Nil(t, latest)
}

// --- crawl_entry ---

func TestHandleCrawlEntry(t *testing.T) {
	scanner := &fakeScanner{result: sampleResult()}
	s := testServer(scanner)

	result := callTool(t, s, makeRequest("crawl_entry", map[string]any{"entry": "src/main.tsx", "formatter": "aliases"}))
	require.False(t, result.IsError, resultJSON(t, result))
	assert.Equal(t, []string{"src/main.tsx"}, scanner.entries)

	_, source := s.Latest()
	assert.Equal(t, "crawl_entry", source)
}

func TestHandleCrawlEntry_RequiresEntry(t *testing.T) {
	scanner := &fakeScanner{result: sampleResult()}
	s := testServer(scanner)

	result := callTool(t, s, makeRequest("crawl_entry", map[string]any{}))
	assert.True(t, result.IsError)
	assert.Empty(t, scanner.entries)
}

func TestHandleCrawlEntry_Error(t *testing.T) {
	s := testServer(&fakeScanner{err: errors.New("entry point not found: stat x: no such file")})

	result := callTool(t, s, makeRequest("crawl_entry", map[string]any{"entry": "x"}))
	assert.True(t, result.IsError)
	assert.Contains(t, resultJSON(t, result), "run failed: entry point not found")
}

// --- component_usage ---

func TestHandleComponentUsage(t *testing.T) {
	s := testServer(&fakeScanner{result: sampleResult()})
	callTool(t, s, makeRequest("scan_project", nil))

	result := callTool(t, s, makeRequest("component_usage", map[string]any{"key": "@acme/ui/Button", "limit": 2.0}))
	require.False(t, result.IsError, resultJSON(t, result))

	var got usageResult
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &got))
	assert.Equal(t, "@acme/ui/Button", got.Key)
	assert.Equal(t, 3, got.Count)
	assert.Len(t, got.Instances, 2)
	assert.True(t, got.Truncated)
	assert.Equal(t, "src/a.tsx", got.Instances[0].Location.File)
}

func TestHandleComponentUsage_BeforeAnyScan(t *testing.T) {
	s := testServer(&fakeScanner{result: sampleResult()})

	result := callTool(t, s, makeRequest("component_usage", map[string]any{"key": "@acme/ui/Button"}))
	assert.True(t, result.IsError)
	assert.Contains(t, resultJSON(t, result), "no report yet")
}

func TestHandleComponentUsage_SuggestsKeys(t *testing.T) {
	s := testServer(&fakeScanner{result: sampleResult()})
	callTool(t, s, makeRequest("scan_project", nil))

	result := callTool(t, s, makeRequest("component_usage", map[string]any{"key": "@acme/ui/Buton"}))
	assert.True(t, result.IsError)
	text := resultJSON(t, result)
	assert.Contains(t, text, `no usage recorded for "@acme/ui/Buton"`)
	assert.Contains(t, text, "did you mean: @acme/ui/Button")
}

func TestSuggestKeys(t *testing.T) {
	keys := []string{"@acme/ui/Button", "@acme/ui/Dialog", "src/Card.tsx/default", "react-icons/fa/FaBeer"}

	assert.Equal(t, "@acme/ui/Button", suggestKeys("Buton", keys)[0])
	assert.Equal(t, "@acme/ui/Dialog", suggestKeys("@acme/ui/dialog", keys)[0])
	assert.Empty(t, suggestKeys("zzzzzzzz", keys))
	assert.LessOrEqual(t, len(suggestKeys("a", append(keys, "a/A", "b/A", "c/A", "d/A", "e/A"))), maxSuggestions)
}

// --- list_formatters ---

func TestHandleListFormatters(t *testing.T) {
	s := testServer(&fakeScanner{})

	result := callTool(t, s, makeRequest("list_formatters", nil))
	var got []formatterInfo
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &got))
	require.Len(t, got, 7)
	assert.Equal(t, "raw", got[0].Name)
	assert.True(t, got[0].Default)
	assert.Equal(t, "prop-value-combinations", got[6].Name)
}

// --- logging middleware ---

func TestLoggingMiddleware(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.jsonl")
	calls, err := mcplog.Open(path)
	require.NoError(t, err)

	s := NewServer(&fakeScanner{result: sampleResult()}, "test", calls, nil)
	handler := s.loggingMiddleware()(s.handleComponentUsage)

	result, err := handler(context.Background(), makeRequest("component_usage", map[string]any{"key": "x/Y"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	require.NoError(t, calls.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	var call mcplog.Call
	require.NoError(t, json.Unmarshal(sc.Bytes(), &call))
	assert.Equal(t, "component_usage", call.Tool)
	assert.Equal(t, "x/Y", call.Params["key"])
	assert.True(t, call.ToolError)
	assert.Positive(t, call.ResultBytes)
	assert.False(t, sc.Scan())
}

// --- against a real engine ---

func TestServer_WithEngine(t *testing.T) {
	root := t.TempDir()
	write := func(name, content string) {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	write("tsconfig.json", `{ "include": ["src"] }`)
	write("src/main.tsx", `import { Page } from "./Page";
export const main = () => <Page title="home" />;`)
	write("src/Page.tsx", `import { Button } from "@acme/ui";
export function Page({ title }) { return <Button variant="ghost">{title}</Button>; }`)

	m, err := project.Load(filepath.Join(root, "tsconfig.json"))
	require.NoError(t, err)
	engine, err := crawler.New(crawler.Options{Manifest: m, Workers: 2})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	s := testServer(engine)

	result := callTool(t, s, makeRequest("crawl_entry", map[string]any{"entry": "src/main.tsx", "formatter": "count"}))
	require.False(t, result.IsError, resultJSON(t, result))

	var payload struct {
		Summary crawler.Summary `json:"summary"`
		Output  map[string]int  `json:"output"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &payload))
	assert.Equal(t, 2, payload.Summary.FilesParsed)
	assert.Equal(t, 1, payload.Output["@acme/ui/Button"])
	assert.Equal(t, 1, payload.Output["src/Page.tsx/Page"])

	usage := callTool(t, s, makeRequest("component_usage", map[string]any{"key": "@acme/ui/Button"}))
	require.False(t, usage.IsError, resultJSON(t, usage))
	assert.Contains(t, resultJSON(t, usage), `"variant"`)
}
