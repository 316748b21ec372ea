package extractor

import (
	ts "github.com/tree-sitter/go-tree-sitter"
)

// buildImport converts an import_statement node. Side-effect imports
// (`import "./styles.css"`) are kept with no specifiers.
func buildImport(node *ts.Node, source []byte) (ImportDecl, bool) {
	decl := ImportDecl{Position: position(node.StartPosition())}

	if src := node.ChildByFieldName("source"); src != nil {
		decl.Source = stringContent(src, source)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "string":
			if decl.Source == "" {
				decl.Source = stringContent(child, source)
			}
		case "import_clause":
			decl.Specifiers = append(decl.Specifiers, importClause(child, source)...)
		case "import_require_clause":
			// import Foo = require("x")
			for _, part := range namedChildren(child) {
				switch part.Kind() {
				case "identifier":
					decl.Specifiers = append(decl.Specifiers, ImportSpecifier{
						Kind:     SpecifierNamespace,
						Local:    part.Utf8Text(source),
						Position: position(part.StartPosition()),
					})
				case "string":
					decl.Source = stringContent(part, source)
				}
			}
		}
	}

	if decl.Source == "" {
		return ImportDecl{}, false
	}
	return decl, true
}

// importClause handles the bindings between "import" and "from".
func importClause(node *ts.Node, source []byte) []ImportSpecifier {
	var specs []ImportSpecifier

	for _, child := range namedChildren(node) {
		switch child.Kind() {
		case "identifier":
			specs = append(specs, ImportSpecifier{
				Kind:     SpecifierDefault,
				Local:    child.Utf8Text(source),
				Position: position(child.StartPosition()),
			})
		case "namespace_import":
			for _, part := range namedChildren(child) {
				if part.Kind() == "identifier" {
					specs = append(specs, ImportSpecifier{
						Kind:     SpecifierNamespace,
						Local:    part.Utf8Text(source),
						Position: position(part.StartPosition()),
					})
				}
			}
		case "named_imports":
			for _, spec := range namedChildren(child) {
				if spec.Kind() != "import_specifier" {
					continue
				}
				if s, ok := namedSpecifier(spec, source); ok {
					specs = append(specs, s)
				}
			}
		}
	}

	return specs
}

// namedSpecifier reads `Foo`, `Foo as Bar` or `"string name" as Bar`.
func namedSpecifier(node *ts.Node, source []byte) (ImportSpecifier, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return ImportSpecifier{}, false
	}

	imported := nameNode.Utf8Text(source)
	if nameNode.Kind() == "string" {
		imported = stringContent(nameNode, source)
	}

	local, at := imported, nameNode
	if aliasNode := node.ChildByFieldName("alias"); aliasNode != nil {
		local, at = aliasNode.Utf8Text(source), aliasNode
	}

	// `import { default as Card }` binds the default export.
	if imported == "default" {
		return ImportSpecifier{
			Kind:     SpecifierDefault,
			Local:    local,
			Position: position(at.StartPosition()),
		}, true
	}

	return ImportSpecifier{
		Kind:     SpecifierNamed,
		Local:    local,
		Imported: imported,
		Position: position(at.StartPosition()),
	}, true
}

// stringContent gets the text inside a string node without quotes.
func stringContent(node *ts.Node, source []byte) string {
	text := node.Utf8Text(source)
	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '"' || first == '\'') && first == last {
			return text[1 : len(text)-1]
		}
	}
	return text
}
