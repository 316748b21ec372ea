package extractor

import (
	"strconv"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/jsxusage/pkg/report"
)

// attributeValue decodes the value node of a jsx_attribute.
func attributeValue(node *ts.Node, source []byte) report.PropValue {
	switch node.Kind() {
	case "string":
		// JSX attribute strings have no escape sequences.
		return report.StringValue(stringContent(node, source))

	case "jsx_expression":
		inner := namedChildren(node)
		if len(inner) == 0 {
			return report.ExpressionValue("")
		}
		return expressionValue(inner[0], source)

	default:
		// jsx_element, jsx_self_closing_element, jsx_fragment
		return report.ExpressionValue(node.Utf8Text(source))
	}
}

// expressionValue decodes literals and keeps anything else as source text.
func expressionValue(node *ts.Node, source []byte) report.PropValue {
	text := node.Utf8Text(source)

	switch node.Kind() {
	case "true":
		return report.BoolValue(true)
	case "false":
		return report.BoolValue(false)
	case "null":
		return report.NullValue()
	case "number":
		if n, ok := parseNumber(text); ok {
			return report.NumberValue(n)
		}
	case "string":
		if s, ok := unquoteJS(text); ok {
			return report.StringValue(s)
		}
	case "template_string":
		if onlyFragments(node) {
			return report.StringValue(strings.TrimSuffix(strings.TrimPrefix(text, "`"), "`"))
		}
	case "unary_expression":
		op := node.ChildByFieldName("operator")
		arg := node.ChildByFieldName("argument")
		if op != nil && arg != nil && arg.Kind() == "number" {
			if n, ok := parseNumber(arg.Utf8Text(source)); ok {
				switch op.Utf8Text(source) {
				case "-":
					return report.NumberValue(-n)
				case "+":
					return report.NumberValue(n)
				}
			}
		}
	case "parenthesized_expression":
		if inner := namedChildren(node); len(inner) == 1 {
			return expressionValue(inner[0], source)
		}
	}

	return report.ExpressionValue(text)
}

func onlyFragments(node *ts.Node) bool {
	for _, child := range namedChildren(node) {
		if child.Kind() != "string_fragment" {
			return false
		}
	}
	return true
}

// parseNumber accepts decimal, hex, octal and binary literals with
// numeric separators. BigInt literals are left as expressions.
func parseNumber(text string) (float64, bool) {
	text = strings.ReplaceAll(text, "_", "")
	if strings.HasSuffix(text, "n") {
		return 0, false
	}
	if i, err := strconv.ParseInt(text, 0, 64); err == nil {
		return float64(i), true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// unquoteJS decodes a single- or double-quoted JavaScript string literal.
func unquoteJS(text string) (string, bool) {
	if len(text) < 2 {
		return "", false
	}
	quote := text[0]
	if (quote != '"' && quote != '\'') || text[len(text)-1] != quote {
		return "", false
	}
	body := text[1 : len(text)-1]
	if !strings.ContainsRune(body, '\\') {
		return body, true
	}

	body = strings.ReplaceAll(body, `\'`, `'`)
	if quote == '\'' {
		body = escapeBareQuotes(body)
	}
	s, err := strconv.Unquote(`"` + body + `"`)
	if err != nil {
		return "", false
	}
	return s, true
}

// escapeBareQuotes escapes `"` characters not already preceded by a
// backslash so a single-quoted body can be re-quoted with double quotes.
func escapeBareQuotes(body string) string {
	var b strings.Builder
	escaped := false
	for _, r := range body {
		if r == '"' && !escaped {
			b.WriteString(`\"`)
			continue
		}
		b.WriteRune(r)
		escaped = r == '\\' && !escaped
	}
	return b.String()
}
