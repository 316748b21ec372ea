package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gnana997/jsxusage/pkg/crawler"
	"github.com/gnana997/jsxusage/pkg/dispatch"
	"github.com/gnana997/jsxusage/pkg/formatter"
	"github.com/gnana997/jsxusage/pkg/report"
)

const (
	defaultUsageLimit = 50
	maxSuggestions    = 5
	minSimilarity     = 0.6
)

// scanResult is the payload of scan_project and crawl_entry.
type scanResult struct {
	Formatter string          `json:"formatter"`
	Summary   crawler.Summary `json:"summary"`
	Output    any             `json:"output"`
}

type usageResult struct {
	Key       string                     `json:"key"`
	Count     int                        `json:"count"`
	Instances []report.ComponentInstance `json:"instances"`
	Truncated bool                       `json:"truncated,omitempty"`
}

type formatterInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     bool   `json:"default,omitempty"`
}

func (s *Server) handleScanProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("formatter", formatter.Default)
	if _, err := formatter.Lookup(name); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.runMu.Lock()
	res, err := s.scanner.ScanProject(ctx)
	s.runMu.Unlock()
	if err != nil {
		return runError(err), nil
	}

	s.setLatest(res, "scan_project")
	return s.scanResult(name, res)
}

func (s *Server) handleCrawlEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entry, err := req.RequireString("entry")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name := req.GetString("formatter", formatter.Default)
	if _, err := formatter.Lookup(name); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.runMu.Lock()
	res, err := s.scanner.CrawlEntry(ctx, entry)
	s.runMu.Unlock()
	if err != nil {
		return runError(err), nil
	}

	s.setLatest(res, "crawl_entry")
	return s.scanResult(name, res)
}

func (s *Server) handleComponentUsage(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", defaultUsageLimit)
	if limit < 1 {
		limit = defaultUsageLimit
	}

	latest, _ := s.Latest()
	if latest == nil {
		return mcp.NewToolResultError("no report yet: run scan_project or crawl_entry first"), nil
	}

	instances := latest.Report.Instances(key)
	if len(instances) == 0 {
		msg := fmt.Sprintf("no usage recorded for %q", key)
		if suggestions := suggestKeys(key, latest.Report.Keys()); len(suggestions) > 0 {
			msg += "; did you mean: " + strings.Join(suggestions, ", ")
		}
		return mcp.NewToolResultError(msg), nil
	}

	out := usageResult{Key: key, Count: len(instances), Instances: instances}
	if len(instances) > limit {
		out.Instances = instances[:limit]
		out.Truncated = true
	}
	return jsonResult(out)
}

func (s *Server) handleListFormatters(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	all := formatter.All()
	out := make([]formatterInfo, len(all))
	for i, f := range all {
		out[i] = formatterInfo{Name: f.Name, Description: f.Description, Default: f.Name == formatter.Default}
	}
	return jsonResult(out)
}

func (s *Server) scanResult(name string, res *crawler.Result) (*mcp.CallToolResult, error) {
	output, err := formatter.Apply(name, res.Report)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(scanResult{Formatter: name, Summary: res.Summary, Output: output})
}

// runError turns a traversal failure into a tool error. Aborted runs
// report how far they got.
func runError(err error) *mcp.CallToolResult {
	var aborted *dispatch.AbortedError
	if errors.As(err, &aborted) {
		return mcp.NewToolResultError(aborted.Error())
	}
	return mcp.NewToolResultError("run failed: " + err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// suggestKeys ranks keys by Jaro-Winkler similarity to key. Matching on
// the component name alone also counts, so "Buton" finds
// "@acme/ui/Button".
func suggestKeys(key string, keys []string) []string {
	type scored struct {
		key   string
		score float32
	}

	wantName := lastSegment(key)
	var hits []scored
	for _, k := range keys {
		full, err := edlib.StringsSimilarity(strings.ToLower(key), strings.ToLower(k), edlib.JaroWinkler)
		if err != nil {
			continue
		}
		name, err := edlib.StringsSimilarity(strings.ToLower(wantName), strings.ToLower(lastSegment(k)), edlib.JaroWinkler)
		if err != nil {
			continue
		}
		score := max(full, name)
		if score >= minSimilarity {
			hits = append(hits, scored{key: k, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].key < hits[j].key
	})

	out := make([]string, 0, min(len(hits), maxSuggestions))
	for _, h := range hits[:min(len(hits), maxSuggestions)] {
		out = append(out, h.key)
	}
	return out
}

func lastSegment(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}
