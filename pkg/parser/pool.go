package parser

import (
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/jsxusage/pkg/util"
)

// Options configures a ParserManager.
type Options struct {
	// PoolSize caps parsers per grammar. 0 means util.ParserPoolSize's
	// CPU-derived default. A worker process analyzes its chunk
	// sequentially and only needs one.
	PoolSize int
}

// grammarPool lends out parsers for one grammar.
//
// slots holds one token per parser that may exist; taking a token is the
// only blocking step. idle keeps parsers between uses, and a parser is
// created only when a token is taken and idle is empty.
type grammarPool struct {
	grammar Grammar
	lang    *ts.Language
	logger  *slog.Logger

	slots chan struct{}

	mu      sync.Mutex
	idle    []*ts.Parser
	created int
	closed  bool
}

func newGrammarPool(g Grammar, langPtr unsafe.Pointer, size int, logger *slog.Logger) *grammarPool {
	size = util.ParserPoolSize(size)
	return &grammarPool{
		grammar: g,
		lang:    ts.NewLanguage(langPtr),
		logger:  logger,
		slots:   make(chan struct{}, size),
	}
}

// get blocks until a parser is free.
func (p *grammarPool) get() (*ts.Parser, error) {
	p.slots <- struct{}{}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.slots
		return nil, fmt.Errorf("parser pool for %s is closed", p.grammar)
	}
	if n := len(p.idle); n > 0 {
		parser := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return parser, nil
	}
	p.created++
	created := p.created
	p.mu.Unlock()

	parser := ts.NewParser()
	if err := parser.SetLanguage(p.lang); err != nil {
		parser.Close()
		p.mu.Lock()
		p.created--
		p.mu.Unlock()
		<-p.slots
		return nil, fmt.Errorf("failed to set %s grammar: %w", p.grammar, err)
	}
	p.logger.Debug("parser created", "grammar", p.grammar.String(), "parsers", created)
	return parser, nil
}

// put returns a parser taken with get.
func (p *grammarPool) put(parser *ts.Parser) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		parser.Close()
	} else {
		p.idle = append(p.idle, parser)
		p.mu.Unlock()
	}
	<-p.slots
}

// close frees idle parsers. Parsers still lent out are freed by put.
func (p *grammarPool) close() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	n := len(p.idle)
	for _, parser := range p.idle {
		parser.Close()
	}
	p.idle = nil
	return n
}

func (p *grammarPool) parsersCreated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created
}
