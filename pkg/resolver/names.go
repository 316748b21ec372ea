// Package resolver classifies JSX tag names and follows import specifiers
// to the files that define them.
package resolver

import (
	"strings"

	"github.com/gnana997/jsxusage/pkg/extractor"
)

// DefaultBuiltinNamespaces are root segments treated as host intrinsics
// (<React.Fragment>, <React.Suspense>).
var DefaultBuiltinNamespaces = []string{"React"}

// NameKind is the variant of a NameResolution.
type NameKind int

const (
	NameBuiltin NameKind = iota
	NameImported
	NameLocallyDeclared
)

func (k NameKind) String() string {
	switch k {
	case NameBuiltin:
		return "builtin"
	case NameImported:
		return "imported"
	case NameLocallyDeclared:
		return "locallyDeclared"
	default:
		return "unknown"
	}
}

// NameResolution says where a tag name comes from, before module
// resolution.
type NameResolution struct {
	Kind NameKind
	// Name is the resolved name: the tag for builtins, the exported name
	// (with "default" for default imports) for imports, and the tag for
	// locally declared components.
	Name string
	// Alias is the name as written when it differs from Name.
	Alias string
	// Specifier is the import source; set only for NameImported.
	Specifier string
}

type nameStep func(name string, imports []extractor.ImportDecl) (NameResolution, bool)

// NameResolver runs builtin, imported and locally declared classification
// in that order; the first step that answers wins.
type NameResolver struct {
	namespaces map[string]bool
	steps      []nameStep
}

// NewNameResolver creates a resolver. A nil namespaces slice uses
// DefaultBuiltinNamespaces; an empty one disables namespace markers.
func NewNameResolver(namespaces []string) *NameResolver {
	if namespaces == nil {
		namespaces = DefaultBuiltinNamespaces
	}

	r := &NameResolver{namespaces: make(map[string]bool, len(namespaces))}
	for _, ns := range namespaces {
		r.namespaces[ns] = true
	}
	r.steps = []nameStep{r.builtin, imported, locallyDeclared}
	return r
}

// Resolve classifies a tag name against the file's imports.
func (r *NameResolver) Resolve(name string, imports []extractor.ImportDecl) NameResolution {
	for _, step := range r.steps {
		if res, ok := step(name, imports); ok {
			return res
		}
	}
	// locallyDeclared always answers.
	return NameResolution{Kind: NameLocallyDeclared, Name: name}
}

// IsBuiltin reports whether name is a host intrinsic.
func (r *NameResolver) IsBuiltin(name string) bool {
	head, _ := splitHead(name)
	return head == strings.ToLower(head) || r.namespaces[head]
}

func (r *NameResolver) builtin(name string, _ []extractor.ImportDecl) (NameResolution, bool) {
	if !r.IsBuiltin(name) {
		return NameResolution{}, false
	}
	return NameResolution{Kind: NameBuiltin, Name: name}, true
}

func imported(name string, imports []extractor.ImportDecl) (NameResolution, bool) {
	head, rest := splitHead(name)

	for _, decl := range imports {
		spec, ok := decl.Binds(head)
		if !ok {
			continue
		}

		var resolved string
		switch spec.Kind {
		case extractor.SpecifierDefault:
			resolved = "default" + rest
		case extractor.SpecifierNamed:
			resolved = spec.Imported + rest
		case extractor.SpecifierNamespace:
			resolved = strings.TrimPrefix(rest, ".")
			if resolved == "" {
				resolved = "*"
			}
		}

		res := NameResolution{
			Kind:      NameImported,
			Name:      resolved,
			Specifier: decl.Source,
		}
		// The alias is the local binding, recorded when the import renamed it.
		if resolvedHead, _ := splitHead(resolved); resolvedHead != head {
			res.Alias = head
		}
		return res, true
	}

	return NameResolution{}, false
}

func locallyDeclared(name string, _ []extractor.ImportDecl) (NameResolution, bool) {
	return NameResolution{Kind: NameLocallyDeclared, Name: name}, true
}

// splitHead splits "UI.Button" into ("UI", ".Button").
func splitHead(name string) (head, rest string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i:]
	}
	return name, ""
}
