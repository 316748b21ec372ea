// Package formatter turns a report into the summaries the CLI and the MCP
// server print. Formatters are pure functions of the report; their objects
// are ordered by instance count, highest first, with ties broken by key.
package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gnana997/jsxusage/pkg/report"
)

// Default is the formatter used when none is named.
const Default = "raw"

// Formatter is one named view of a report.
type Formatter struct {
	Name        string
	Description string

	// Apply builds the JSON value.
	Apply func(r *report.Report) any

	// Table builds the per-key summary rows for the table format.
	Table func(r *report.Report) Table
}

var registry = []Formatter{
	{Name: "raw", Description: "every instance, grouped by key", Apply: raw, Table: rawTable},
	{Name: "count", Description: "instances per key", Apply: count, Table: countTable},
	{Name: "count-props", Description: "instances and prop usage per key", Apply: countProps, Table: countPropsTable},
	{Name: "aliases", Description: "distinct local aliases per key", Apply: aliases, Table: aliasesTable},
	{Name: "prop-values", Description: "value histogram per prop per key", Apply: propValues, Table: propValuesTable},
	{Name: "prop-combinations", Description: "prop-name sets used together per key", Apply: propCombinations, Table: propCombinationsTable},
	{Name: "prop-value-combinations", Description: "prop name and value sets used together per key", Apply: propValueCombinations, Table: propValueCombinationsTable},
}

// All returns every built-in formatter in registration order.
func All() []Formatter {
	return append([]Formatter(nil), registry...)
}

// Names lists the formatter names in registration order.
func Names() []string {
	names := make([]string, len(registry))
	for i, f := range registry {
		names[i] = f.Name
	}
	return names
}

// UnknownFormatterError is returned by Lookup for names not in the registry.
type UnknownFormatterError struct {
	Name string
}

func (e *UnknownFormatterError) Error() string {
	return fmt.Sprintf("unknown formatter %q (known: %s)", e.Name, strings.Join(Names(), ", "))
}

// Lookup finds a formatter by name. An empty name selects Default.
func Lookup(name string) (Formatter, error) {
	if name == "" {
		name = Default
	}
	for _, f := range registry {
		if f.Name == name {
			return f, nil
		}
	}
	return Formatter{}, &UnknownFormatterError{Name: name}
}

// Apply runs the named formatter.
func Apply(name string, r *report.Report) (any, error) {
	f, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return f.Apply(r), nil
}

// Format is an output encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ParseFormat accepts "json" and "table"; anything else is an error.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (known: json, table)", s)
	}
}

// Write renders r through formatter name to w.
func Write(w io.Writer, name string, format Format, r *report.Report) error {
	f, err := Lookup(name)
	if err != nil {
		return err
	}

	switch format {
	case FormatTable:
		return f.Table(r).Render(w)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(f.Apply(r)); err != nil {
			return fmt.Errorf("failed to encode %s output: %w", f.Name, err)
		}
		return nil
	}
}

// rankedKeys orders report keys by instance count, then key.
func rankedKeys(r *report.Report) []string {
	keys := r.Keys()
	counts := make(map[string]int, len(keys))
	for _, k := range keys {
		counts[k] = len(r.Instances(k))
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return counts[keys[i]] > counts[keys[j]]
	})
	return keys
}
