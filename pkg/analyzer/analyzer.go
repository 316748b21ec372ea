// Package analyzer turns one source file into partially resolved component
// instances: it reads, parses, extracts and classifies names, leaving only
// module resolution to the caller.
package analyzer

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gnana997/jsxusage/pkg/extractor"
	"github.com/gnana997/jsxusage/pkg/parser"
	"github.com/gnana997/jsxusage/pkg/parser/queries"
	"github.com/gnana997/jsxusage/pkg/report"
	"github.com/gnana997/jsxusage/pkg/resolver"
	"github.com/gnana997/jsxusage/pkg/util"
)

// Options configures an Analyzer.
type Options struct {
	// Root is the project root report locations are relative to.
	Root string

	// BuiltinNamespaces overrides resolver.DefaultBuiltinNamespaces when
	// non-nil.
	BuiltinNamespaces []string

	// SkipBuiltins drops host intrinsics (<div>, <React.Fragment>).
	SkipBuiltins bool

	// CacheSize bounds the per-file result cache. 0 means 1024.
	CacheSize int

	// ParserPoolSize is passed to the parser manager. 0 means CPU-derived.
	ParserPoolSize int

	Logger *slog.Logger
}

// Stats counts analyzer activity.
type Stats struct {
	FilesAnalyzed int64
	CacheHits     int64
	Failures      int64

	// SourceLoads counts files read from disk, MmapFallbacks those read
	// into memory because mapping failed.
	SourceLoads   int64
	MmapFallbacks int64
}

type cachedFile struct {
	hash     uint64
	partials []report.Partial
}

// Analyzer is safe for concurrent use by several workers, and Invalidate
// may run while the same path is being analyzed.
//
// Usage:
//
//	a, err := analyzer.New(analyzer.Options{Root: manifest.Root})
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//
//	partials, err := a.Analyze("/project/src/App.tsx")
type Analyzer struct {
	opts      Options
	parsers   *parser.ParserManager
	queries   *queries.QueryManager
	extractor *extractor.Extractor
	names     *resolver.NameResolver
	sources   *util.SourceCache
	results   *lru.Cache[string, cachedFile]
	logger    *slog.Logger

	analyzed atomic.Int64
	hits     atomic.Int64
	failures atomic.Int64
}

// New creates an analyzer. Close releases its parsers and mappings.
func New(opts Options) (*Analyzer, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}

	results, err := lru.New[string, cachedFile](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	sourceConfig := util.DefaultSourceCacheConfig()
	sourceConfig.Logger = opts.Logger

	pm := parser.NewParserManager(opts.Logger, parser.Options{PoolSize: opts.ParserPoolSize})
	qm := queries.NewQueryManager(opts.Logger)

	return &Analyzer{
		opts:      opts,
		parsers:   pm,
		queries:   qm,
		extractor: extractor.NewExtractor(pm, qm, opts.Logger),
		names:     resolver.NewNameResolver(opts.BuiltinNamespaces),
		sources:   util.NewSourceCache(sourceConfig),
		results:   results,
		logger:    opts.Logger,
	}, nil
}

// Analyze returns the instances found in the file at path (absolute).
// Builtin and locally declared instances come back with their final
// origin; imported ones carry the specifier to resolve.
func (a *Analyzer) Analyze(path string) ([]report.Partial, error) {
	mf, err := a.sources.Acquire(path)
	if err != nil {
		a.failures.Add(1)
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer a.sources.Release(mf)
	source := []byte(mf.Data)

	if len(source) == 0 {
		a.analyzed.Add(1)
		return []report.Partial{}, nil
	}

	hash := util.ContentHash(source)
	if cached, ok := a.results.Get(path); ok && cached.hash == hash {
		a.hits.Add(1)
		return clonePartials(cached.partials), nil
	}

	syntax, err := a.extractor.ExtractFile(path, source)
	if err != nil {
		a.failures.Add(1)
		return nil, err
	}

	partials := a.build(path, syntax)
	a.results.Add(path, cachedFile{hash: hash, partials: partials})
	a.analyzed.Add(1)

	return clonePartials(partials), nil
}

func (a *Analyzer) build(path string, syntax *extractor.FileSyntax) []report.Partial {
	rel := a.rel(path)
	partials := make([]report.Partial, 0, len(syntax.Sightings))

	for _, s := range syntax.Sightings {
		res := a.names.Resolve(s.Name, syntax.Imports)
		if res.Kind == resolver.NameBuiltin && a.opts.SkipBuiltins {
			continue
		}

		inst := report.ComponentInstance{
			Name:  res.Name,
			Alias: res.Alias,
			Location: report.Location{
				File:         rel,
				AbsolutePath: path,
				Start:        s.Start,
				End:          s.End,
			},
			Props:       make([]report.Prop, 0, len(s.Attributes)),
			Spread:      s.Spread,
			HasChildren: !s.SelfClosing,
		}
		for _, attr := range s.Attributes {
			inst.Props = append(inst.Props, report.Prop{
				Name:     attr.Name,
				Value:    attr.Value,
				Location: fmt.Sprintf("%s:%d:%d", rel, attr.Position.Line, attr.Position.Column),
			})
		}

		p := report.Partial{Instance: inst}
		switch res.Kind {
		case resolver.NameBuiltin:
			p.Instance.Origin = report.Builtin(res.Name)
		case resolver.NameLocallyDeclared:
			p.Instance.Origin = report.LocalFile(rel)
		case resolver.NameImported:
			p.Import = &report.ImportRef{Specifier: res.Specifier, FromFile: path}
		}
		partials = append(partials, p)
	}

	return partials
}

func (a *Analyzer) rel(path string) string {
	if a.opts.Root == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(a.opts.Root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Invalidate forgets the cached result for path and makes the next
// Analyze read it from disk. An analysis already in progress finishes on
// the contents it started with.
func (a *Analyzer) Invalidate(path string) {
	a.results.Remove(path)
	a.sources.Invalidate(path)
}

// Stats returns activity counters.
func (a *Analyzer) Stats() Stats {
	sources := a.sources.Stats()
	return Stats{
		FilesAnalyzed: a.analyzed.Load(),
		CacheHits:     a.hits.Load(),
		Failures:      a.failures.Load(),
		SourceLoads:   sources.FilesLoaded,
		MmapFallbacks: sources.MmapFailures,
	}
}

// Close releases parsers, compiled queries and mappings.
func (a *Analyzer) Close() error {
	stats := a.Stats()
	parses := a.parsers.GetStats()
	a.logger.Debug("analyzer closed",
		"files", stats.FilesAnalyzed,
		"cache_hits", stats.CacheHits,
		"failures", stats.Failures,
		"source_loads", stats.SourceLoads,
		"mmap_fallbacks", stats.MmapFallbacks,
		"parsers", parses.ParsersCreated,
		"trees_with_errors", parses.TreesWithErrors)

	a.results.Purge()
	if err := a.sources.Close(); err != nil {
		return err
	}
	if err := a.queries.Close(); err != nil {
		return err
	}
	return a.parsers.Close()
}

func clonePartials(in []report.Partial) []report.Partial {
	out := make([]report.Partial, len(in))
	for i, p := range in {
		out[i] = p
		if p.Import != nil {
			ref := *p.Import
			out[i].Import = &ref
		}
	}
	return out
}
