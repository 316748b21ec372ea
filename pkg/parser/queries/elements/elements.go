// Package elements holds the tree-sitter pattern for JSX tag heads.
package elements

// Query captures every JSX opening tag and self-closing tag, including tags
// nested inside attribute expressions. Closing tags are not captured, so each
// rendered element matches exactly once.
//
// Only valid for grammars with JSX support (javascript, tsx).
//
// Captures:
//   - @element.tag - jsx_opening_element or jsx_self_closing_element
const Query = `
[
  (jsx_opening_element)
  (jsx_self_closing_element)
] @element.tag
`
