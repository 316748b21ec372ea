// Package imports holds the tree-sitter pattern for top-level import
// declarations. The JavaScript, TypeScript and TSX grammars share these node
// kinds, so one pattern serves all three.
package imports

// Query captures each module-level import statement as a whole; specifiers
// are read from the captured node so a specifier is never separated from the
// declaration that binds it.
//
// Captures:
//   - @import.statement - the import_statement node
const Query = `
(program
  (import_statement) @import.statement)
`
