// Package queries compiles and runs the tree-sitter queries that find JSX
// elements and import declarations.
package queries

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/jsxusage/pkg/parser"
	"github.com/gnana997/jsxusage/pkg/parser/queries/elements"
	"github.com/gnana997/jsxusage/pkg/parser/queries/imports"
)

// QueryType identifies which query to execute.
type QueryType int

const (
	// QueryTypeImports matches top-level import declarations
	QueryTypeImports QueryType = iota
	// QueryTypeElements matches JSX opening and self-closing tags
	QueryTypeElements
)

func (qt QueryType) String() string {
	switch qt {
	case QueryTypeImports:
		return "imports"
	case QueryTypeElements:
		return "elements"
	default:
		return "unknown"
	}
}

type queryKey struct {
	grammar parser.Grammar
	qtype   QueryType
}

// QueryManager compiles each (grammar, query type) pair once and shares the
// compiled query between workers. Close frees them.
//
//	qm := NewQueryManager(logger)
//	defer qm.Close()
//
//	matches, err := qm.Run(tree, grammar, QueryTypeElements, source)
type QueryManager struct {
	logger *slog.Logger

	mu       sync.Mutex
	compiled map[queryKey]*ts.Query
}

// NewQueryManager creates a query manager. A nil logger uses slog.Default.
func NewQueryManager(logger *slog.Logger) *QueryManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryManager{
		logger:   logger,
		compiled: make(map[queryKey]*ts.Query),
	}
}

// GetQuery returns the compiled query for g and qtype. Element queries
// cannot be compiled for plain TypeScript, which has no JSX nodes.
func (qm *QueryManager) GetQuery(g parser.Grammar, qtype QueryType) (*ts.Query, error) {
	key := queryKey{grammar: g, qtype: qtype}

	qm.mu.Lock()
	defer qm.mu.Unlock()

	if q, ok := qm.compiled[key]; ok {
		return q, nil
	}

	src, err := querySource(g, qtype)
	if err != nil {
		return nil, err
	}
	lang, err := parser.LanguagePointer(g)
	if err != nil {
		return nil, err
	}

	q, qerr := ts.NewQuery(ts.NewLanguage(lang), src)
	if qerr != nil {
		return nil, fmt.Errorf("failed to compile %s query for %s: %s", qtype, g, qerr.Message)
	}
	qm.compiled[key] = q
	qm.logger.Debug("compiled query", "grammar", g.String(), "type", qtype.String())
	return q, nil
}

func querySource(g parser.Grammar, qtype QueryType) (string, error) {
	switch {
	case qtype == QueryTypeImports:
		return imports.Query, nil
	case qtype == QueryTypeElements && g.SupportsJSX():
		return elements.Query, nil
	case qtype == QueryTypeElements:
		return "", fmt.Errorf("grammar %s has no JSX nodes", g)
	}
	return "", fmt.Errorf("unknown query type: %d", qtype)
}

// Run executes the qtype query for g against tree.
func (qm *QueryManager) Run(tree *ts.Tree, g parser.Grammar, qtype QueryType, source []byte) ([]QueryMatch, error) {
	q, err := qm.GetQuery(g, qtype)
	if err != nil {
		return nil, err
	}
	return qm.ExecuteQuery(tree, q, source)
}

// ExecuteQuery runs query over tree. Matches come back in document order,
// by the start of their first capture.
func (qm *QueryManager) ExecuteQuery(tree *ts.Tree, query *ts.Query, source []byte) ([]QueryMatch, error) {
	if tree == nil || query == nil {
		return nil, errors.New("query needs both a tree and a compiled query")
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	names := query.CaptureNames()
	it := cursor.Matches(query, tree.RootNode(), source)

	var matches []QueryMatch
	for m := it.Next(); m != nil; m = it.Next() {
		match := QueryMatch{
			PatternIndex: uint32(m.PatternIndex),
			Captures:     make([]QueryCapture, 0, len(m.Captures)),
		}
		for _, c := range m.Captures {
			match.Captures = append(match.Captures, newCapture(names, c, source))
		}
		matches = append(matches, match)
	}

	slices.SortStableFunc(matches, func(a, b QueryMatch) int {
		return cmp.Compare(a.startByte(), b.startByte())
	})
	return matches, nil
}

func newCapture(names []string, c ts.QueryCapture, source []byte) QueryCapture {
	var name string
	if int(c.Index) < len(names) {
		name = names[c.Index]
	}
	category, field := parseCaptureName(name)
	node := c.Node
	return QueryCapture{
		Name:     name,
		Category: category,
		Field:    field,
		Node:     &node,
		Text:     node.Utf8Text(source),
		Location: NodeLocation(&node),
	}
}

// Close frees every compiled query.
func (qm *QueryManager) Close() error {
	qm.mu.Lock()
	defer qm.mu.Unlock()

	for key, q := range qm.compiled {
		q.Close()
		delete(qm.compiled, key)
	}
	return nil
}

// QueryMatch is one pattern match.
type QueryMatch struct {
	PatternIndex uint32
	Captures     []QueryCapture
}

// Capture returns the first capture with the given full name.
func (m QueryMatch) Capture(name string) (QueryCapture, bool) {
	for _, c := range m.Captures {
		if c.Name == name {
			return c, true
		}
	}
	return QueryCapture{}, false
}

func (m QueryMatch) startByte() uint32 {
	if len(m.Captures) == 0 {
		return 0
	}
	return m.Captures[0].Location.StartByte
}

// QueryCapture is one captured node. A capture named "element.tag" has
// Category "element" and Field "tag". Node is only valid while its tree is
// open.
type QueryCapture struct {
	Name     string
	Category string
	Field    string
	Node     *ts.Node
	Text     string
	Location Location
}

// Location represents a position in source code.
//
// Lines are 1-based; columns are 0-based byte offsets within the line, the
// convention ESTree-style tooling reports for JSX positions.
type Location struct {
	StartLine   uint32
	StartColumn uint32
	EndLine     uint32
	EndColumn   uint32
	StartByte   uint32
	EndByte     uint32
}

func parseCaptureName(name string) (category, field string) {
	category, field, _ = strings.Cut(name, ".")
	return category, field
}

// NodeLocation converts node's tree-sitter points to a Location.
func NodeLocation(node *ts.Node) Location {
	start, end := node.StartPosition(), node.EndPosition()
	return Location{
		StartLine:   uint32(start.Row + 1),
		StartColumn: uint32(start.Column),
		EndLine:     uint32(end.Row + 1),
		EndColumn:   uint32(end.Column),
		StartByte:   uint32(node.StartByte()),
		EndByte:     uint32(node.EndByte()),
	}
}
