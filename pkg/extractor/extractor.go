package extractor

import (
	"errors"
	"fmt"
	"log/slog"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/jsxusage/pkg/parser"
	"github.com/gnana997/jsxusage/pkg/parser/queries"
	"github.com/gnana997/jsxusage/pkg/report"
)

// Extractor runs the element and import queries over a parse tree.
//
// Usage:
//
//	ex := NewExtractor(parserManager, queryManager, logger)
//	syntax, err := ex.ExtractFile("src/App.tsx", source)
//	if err != nil {
//	    return err
//	}
//	// Use syntax.Sightings, syntax.Imports
type Extractor struct {
	parserManager *parser.ParserManager
	queryManager  *queries.QueryManager
	logger        *slog.Logger
}

// NewExtractor creates an extractor. Both managers are shared and not
// closed by the extractor.
func NewExtractor(pm *parser.ParserManager, qm *queries.QueryManager, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{
		parserManager: pm,
		queryManager:  qm,
		logger:        logger,
	}
}

// ExtractFile parses source with the grammar picked from filePath and
// extracts it. The tree is closed before returning.
func (e *Extractor) ExtractFile(filePath string, source []byte) (*FileSyntax, error) {
	g, ok := parser.GrammarFor(filePath)
	if !ok {
		return nil, fmt.Errorf("unsupported language for file: %s", filePath)
	}

	tree, err := e.parserManager.Parse(source, g)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", filePath, err)
	}
	defer tree.Close()

	syntax, err := e.Extract(tree, source, g)
	if err != nil {
		var malformed *MalformedComponentNameError
		if errors.As(err, &malformed) {
			malformed.File = filePath
		}
		return nil, err
	}

	e.logger.Debug("extracted file",
		"file", filePath,
		"sightings", len(syntax.Sightings),
		"imports", len(syntax.Imports))

	return syntax, nil
}

// Extract walks an already parsed tree. Grammars without JSX yield imports
// and no sightings.
func (e *Extractor) Extract(tree *ts.Tree, source []byte, g parser.Grammar) (*FileSyntax, error) {
	syntax := &FileSyntax{
		Sightings: []Sighting{},
		Imports:   []ImportDecl{},
	}

	importMatches, err := e.queryManager.Run(tree, g, queries.QueryTypeImports, source)
	if err != nil {
		return nil, fmt.Errorf("failed to run imports query: %w", err)
	}
	for _, m := range importMatches {
		c, ok := m.Capture("import.statement")
		if !ok {
			continue
		}
		if decl, ok := buildImport(c.Node, source); ok {
			syntax.Imports = append(syntax.Imports, decl)
		}
	}

	if !g.SupportsJSX() {
		return syntax, nil
	}

	elementMatches, err := e.queryManager.Run(tree, g, queries.QueryTypeElements, source)
	if err != nil {
		return nil, fmt.Errorf("failed to run elements query: %w", err)
	}
	for _, m := range elementMatches {
		c, ok := m.Capture("element.tag")
		if !ok {
			continue
		}
		sighting, ok, err := buildSighting(c.Node, source)
		if err != nil {
			return nil, err
		}
		if ok {
			syntax.Sightings = append(syntax.Sightings, sighting)
		}
	}

	return syntax, nil
}

func position(p ts.Point) report.Position {
	return report.Position{Line: int(p.Row) + 1, Column: int(p.Column)}
}

// namedChildren returns the named children of node, skipping comments.
func namedChildren(node *ts.Node) []*ts.Node {
	count := node.NamedChildCount()
	out := make([]*ts.Node, 0, count)
	for i := uint(0); i < count; i++ {
		child := node.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}
