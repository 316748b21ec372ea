package extractor

import (
	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/jsxusage/pkg/report"
)

// buildSighting converts a jsx_opening_element or jsx_self_closing_element.
// ok is false for fragments, which have no name.
func buildSighting(node *ts.Node, source []byte) (Sighting, bool, error) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return Sighting{}, false, nil
	}

	name, err := tagName(nameNode, source)
	if err != nil {
		return Sighting{}, false, err
	}

	s := Sighting{
		Name:        name,
		SelfClosing: node.Kind() == "jsx_self_closing_element",
		Start:       position(node.StartPosition()),
		End:         position(node.EndPosition()),
	}

	for _, child := range namedChildren(node) {
		switch child.Kind() {
		case "jsx_attribute":
			attr, ok := buildAttribute(child, source)
			if ok {
				s.Attributes = setAttribute(s.Attributes, attr)
			}
		case "jsx_expression":
			// {...props}
			s.Spread = true
		}
	}

	return s, true, nil
}

// tagName accepts `Foo` and `A.B`. Deeper member paths and namespaced
// names (`svg:rect`) are rejected.
func tagName(node *ts.Node, source []byte) (string, error) {
	switch node.Kind() {
	case "identifier":
		return node.Utf8Text(source), nil

	case "member_expression", "nested_identifier":
		object := node.ChildByFieldName("object")
		property := node.ChildByFieldName("property")
		if object == nil && node.NamedChildCount() == 2 {
			object, property = node.NamedChild(0), node.NamedChild(1)
		}
		if object != nil && property != nil && object.Kind() == "identifier" {
			return object.Utf8Text(source) + "." + property.Utf8Text(source), nil
		}
	}

	return "", &MalformedComponentNameError{
		Name:     node.Utf8Text(source),
		Kind:     node.Kind(),
		Position: position(node.StartPosition()),
	}
}

// buildAttribute reads `name`, `name="x"`, `name={expr}` or `name=<Jsx />`.
func buildAttribute(node *ts.Node, source []byte) (Attribute, bool) {
	children := namedChildren(node)
	if len(children) == 0 {
		return Attribute{}, false
	}

	attr := Attribute{
		Name:     children[0].Utf8Text(source),
		Value:    report.ShorthandValue(),
		Position: position(node.StartPosition()),
	}
	if len(children) > 1 {
		attr.Value = attributeValue(children[1], source)
	}

	return attr, true
}

// setAttribute replaces a repeated attribute in its original slot; the
// later value and location win, as they do in the built props object.
func setAttribute(attrs []Attribute, attr Attribute) []Attribute {
	for i := range attrs {
		if attrs[i].Name == attr.Name {
			attrs[i].Value = attr.Value
			attrs[i].Position = attr.Position
			return attrs
		}
	}
	return append(attrs, attr)
}
