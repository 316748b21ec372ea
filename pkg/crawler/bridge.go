package crawler

import (
	"github.com/gnana997/jsxusage/pkg/parser"
	"github.com/gnana997/jsxusage/pkg/report"
	"github.com/gnana997/jsxusage/pkg/resolver"
)

// resolved is one reply's worth of partials after module resolution.
type resolved struct {
	instances []report.ComponentInstance
	// locals are absolute paths of analysable local import targets, in
	// first-seen order, possibly repeated.
	locals     []string
	unresolved int
}

// resolveImports runs the module-resolution bridge over partials. Partials
// a worker already resolved pass through unchanged.
func resolveImports(modules *resolver.ModuleResolver, partials []report.Partial) resolved {
	out := resolved{instances: make([]report.ComponentInstance, 0, len(partials))}

	for _, p := range partials {
		inst := p.Instance
		if !p.Resolved() {
			res := modules.Resolve(p.Import.Specifier, p.Import.FromFile)
			inst.Origin = res.Origin()

			switch res.Kind {
			case resolver.ResolvedLocal:
				if analysable(res.AbsPath) {
					out.locals = append(out.locals, res.AbsPath)
				}
			case resolver.Unresolvable:
				out.unresolved++
			}
		}
		out.instances = append(out.instances, inst)
	}

	return out
}

// analysable reports whether a crawl can parse path. Declaration files
// carry no JSX and are skipped.
func analysable(path string) bool {
	return parser.IsSourceFile(path) && parser.Ext(path) != ".d.ts"
}
