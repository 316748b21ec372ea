package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"unsafe"

	ts "github.com/tree-sitter/go-tree-sitter"
	ts_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	ts_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// ParserManager hands out pooled tree-sitter parsers for the JS and TS
// grammars. A grammar's pool is created the first time a file needs it.
//
// The manager owns its parsers and must be closed. Callers own the trees
// they get back and close them after use:
//
//	manager := NewParserManager(logger, Options{})
//	defer manager.Close()
//
//	g, _ := GrammarFor("src/App.tsx")
//	tree, err := manager.Parse(source, g)
//	if err != nil {
//	    return err
//	}
//	defer tree.Close()
type ParserManager struct {
	logger   *slog.Logger
	poolSize int

	mu    sync.Mutex
	pools map[Grammar]*grammarPool

	parses     atomic.Int64
	treeErrors atomic.Int64
}

// NewParserManager creates a manager. A zero Options uses CPU-derived pool
// sizes.
func NewParserManager(logger *slog.Logger, opts Options) *ParserManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParserManager{
		logger:   logger,
		poolSize: opts.PoolSize,
		pools:    make(map[Grammar]*grammarPool),
	}
}

var errUnknownLanguage = errors.New("cannot parse unknown language")

// Parse parses source with grammar g. Trees with syntax errors are still
// returned since tree-sitter recovers around them.
func (pm *ParserManager) Parse(source []byte, g Grammar) (*ts.Tree, error) {
	if g.Lang == LanguageUnknown {
		return nil, errUnknownLanguage
	}
	pm.parses.Add(1)

	pool, err := pm.pool(g)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool for %s: %w", g, err)
	}

	p, err := pool.get()
	if err != nil {
		return nil, err
	}
	tree := p.Parse(source, nil)
	pool.put(p)

	if tree == nil {
		return nil, fmt.Errorf("%s parser returned no tree", g)
	}
	if tree.RootNode().HasError() {
		pm.treeErrors.Add(1)
		pm.logger.Debug("parse tree contains errors", "grammar", g.String())
	}
	return tree, nil
}

// Close frees every idle parser. Parsers still lent out are freed when
// they come back.
func (pm *ParserManager) Close() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	freed := 0
	for _, pool := range pm.pools {
		freed += pool.close()
	}
	pm.pools = make(map[Grammar]*grammarPool)

	pm.logger.Debug("parser manager closed",
		"parses", pm.parses.Load(),
		"trees_with_errors", pm.treeErrors.Load(),
		"parsers_freed", freed)
	return nil
}

func (pm *ParserManager) pool(g Grammar) (*grammarPool, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pool, ok := pm.pools[g]; ok {
		return pool, nil
	}

	lang, err := LanguagePointer(g)
	if err != nil {
		return nil, err
	}
	pool := newGrammarPool(g, lang, pm.poolSize, pm.logger)
	pm.pools[g] = pool
	pm.logger.Debug("created parser pool", "grammar", g.String(), "size", cap(pool.slots))
	return pool, nil
}

// LanguagePointer returns the tree-sitter grammar for g. Queries must be
// compiled against the same grammar as the tree they run on, since node
// kind ids differ between TSX and plain TypeScript.
func LanguagePointer(g Grammar) (unsafe.Pointer, error) {
	switch {
	case g.Lang == LanguageTypeScript && g.IsTSX:
		return ts_typescript.LanguageTSX(), nil
	case g.Lang == LanguageTypeScript:
		return ts_typescript.LanguageTypescript(), nil
	case g.Lang == LanguageJavaScript:
		return ts_javascript.Language(), nil
	}
	return nil, fmt.Errorf("unsupported language: %s", g.Lang.String())
}

// ParserStats counts parser usage.
type ParserStats struct {
	ParsersCreated  int
	ParsesCalled    int
	TreesWithErrors int
}

// GetStats returns usage counters. It is safe to call during parses.
func (pm *ParserManager) GetStats() ParserStats {
	pm.mu.Lock()
	created := 0
	for _, pool := range pm.pools {
		created += pool.parsersCreated()
	}
	pm.mu.Unlock()

	return ParserStats{
		ParsersCreated:  created,
		ParsesCalled:    int(pm.parses.Load()),
		TreesWithErrors: int(pm.treeErrors.Load()),
	}
}
