// Package extractor reads JSX tag sightings and import declarations out of a
// parsed file.
//
// The extractor is purely syntactic: it never looks at other files and never
// decides where a name comes from. Name and module resolution happen later
// against the FileSyntax it returns.
package extractor

import (
	"fmt"

	"github.com/gnana997/jsxusage/pkg/report"
)

// FileSyntax is everything the resolver needs from one file.
type FileSyntax struct {
	// Sightings in document order. Tags nested inside attribute values are
	// reported after the tag that carries them.
	Sightings []Sighting
	Imports   []ImportDecl
}

// Sighting is one JSX opening or self-closing tag.
type Sighting struct {
	// Name is the tag as written: "Button", "UI.Button" or "div".
	Name        string
	Attributes  []Attribute
	Spread      bool
	SelfClosing bool
	Start       report.Position
	End         report.Position
}

// Attribute is a named JSX attribute. Spread attributes are not listed;
// they set Sighting.Spread instead.
type Attribute struct {
	Name     string
	Value    report.PropValue
	Position report.Position
}

// SpecifierKind discriminates how an import binds its local name.
type SpecifierKind int

const (
	// SpecifierDefault is `import Foo from "x"`.
	SpecifierDefault SpecifierKind = iota
	// SpecifierNamed is `import { Foo }` or `import { Foo as Bar }`.
	SpecifierNamed
	// SpecifierNamespace is `import * as Foo` (and `import Foo = require("x")`).
	SpecifierNamespace
)

func (k SpecifierKind) String() string {
	switch k {
	case SpecifierDefault:
		return "default"
	case SpecifierNamed:
		return "named"
	case SpecifierNamespace:
		return "namespace"
	default:
		return "unknown"
	}
}

// ImportSpecifier is one binding introduced by an import declaration.
type ImportSpecifier struct {
	Kind SpecifierKind
	// Local is the binding visible in the file.
	Local string
	// Imported is the exported name for named specifiers; it equals Local
	// unless the import is aliased. Empty for default and namespace.
	Imported string
	Position report.Position
}

// ImportDecl is one top-level import declaration.
type ImportDecl struct {
	// Source is the module specifier without quotes.
	Source     string
	Specifiers []ImportSpecifier
	Position   report.Position
}

// Binds returns the specifier that introduces local, if any.
func (d ImportDecl) Binds(local string) (ImportSpecifier, bool) {
	for _, s := range d.Specifiers {
		if s.Local == local {
			return s, true
		}
	}
	return ImportSpecifier{}, false
}

// MalformedComponentNameError is returned when a tag name is neither an
// identifier nor a two-level member expression.
type MalformedComponentNameError struct {
	// File is set by ExtractFile; Extract leaves it empty.
	File string
	// Name is the tag name as written.
	Name string
	// Kind is the tree-sitter node kind of the name.
	Kind     string
	Position report.Position
}

func (e *MalformedComponentNameError) Error() string {
	where := fmt.Sprintf("%d:%d", e.Position.Line, e.Position.Column)
	if e.File != "" {
		where = e.File + ":" + where
	}
	return fmt.Sprintf("malformed component name %q (%s) at %s", e.Name, e.Kind, where)
}
