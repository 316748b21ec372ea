package parser

import (
	"path/filepath"
	"slices"
	"strings"
)

// Language is a grammar family.
type Language int

const (
	LanguageTypeScript Language = iota
	LanguageJavaScript
	LanguageUnknown
)

func (l Language) String() string {
	switch l {
	case LanguageTypeScript:
		return "typescript"
	case LanguageJavaScript:
		return "javascript"
	default:
		return "unknown"
	}
}

// Grammar identifies the exact tree-sitter grammar used for a file:
// TypeScript has separate grammars with and without JSX.
type Grammar struct {
	Lang  Language
	IsTSX bool
}

// SupportsJSX reports whether trees produced by this grammar can contain
// JSX nodes. Plain TypeScript cannot (angle brackets are type assertions).
func (g Grammar) SupportsJSX() bool {
	switch g.Lang {
	case LanguageJavaScript:
		return true
	case LanguageTypeScript:
		return g.IsTSX
	default:
		return false
	}
}

// String returns e.g. "typescript", "tsx" or "javascript".
func (g Grammar) String() string {
	if g.Lang == LanguageTypeScript && g.IsTSX {
		return "tsx"
	}
	return g.Lang.String()
}

var grammarsByExt = map[string]Grammar{
	".tsx":  {Lang: LanguageTypeScript, IsTSX: true},
	".ts":   {Lang: LanguageTypeScript},
	".d.ts": {Lang: LanguageTypeScript},
	".mts":  {Lang: LanguageTypeScript},
	".cts":  {Lang: LanguageTypeScript},
	".jsx":  {Lang: LanguageJavaScript},
	".js":   {Lang: LanguageJavaScript},
	".mjs":  {Lang: LanguageJavaScript},
	".cjs":  {Lang: LanguageJavaScript},
}

// GrammarFor picks the grammar for a file path. ok is false for
// extensions no grammar handles.
func GrammarFor(filePath string) (g Grammar, ok bool) {
	g, ok = grammarsByExt[Ext(filePath)]
	if !ok {
		return Grammar{Lang: LanguageUnknown}, false
	}
	return g, true
}

// Ext returns the lower-cased extension, treating ".d.ts" as a single
// extension.
func Ext(filePath string) string {
	lower := strings.ToLower(filePath)
	if strings.HasSuffix(lower, ".d.ts") {
		return ".d.ts"
	}
	return filepath.Ext(lower)
}

// IsSourceFile reports whether a path has an extension any grammar parses.
func IsSourceFile(filePath string) bool {
	_, ok := grammarsByExt[Ext(filePath)]
	return ok
}

// SupportedExtensions lists every extension GrammarFor accepts, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(grammarsByExt))
	for ext := range grammarsByExt {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}
