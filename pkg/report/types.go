// Package report defines component-usage records and the aggregated report
// they are merged into.
package report

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// OriginKind discriminates where a component's definition comes from.
type OriginKind string

const (
	// OriginBuiltin is a host-intrinsic element (<div>, <React.Fragment>).
	OriginBuiltin OriginKind = "builtin"
	// OriginLocal is a file inside the project.
	OriginLocal OriginKind = "local"
	// OriginExternal is a dependency package, identified by its specifier.
	OriginExternal OriginKind = "external"
	// OriginUnresolved is an import the module resolver could not follow.
	OriginUnresolved OriginKind = "unresolved"
)

// Origin is the classified source of a component definition.
//
// Ref carries the payload valid for Kind: the tag name for builtins, the
// project-relative path for local files, and the module specifier for
// external and unresolved origins.
type Origin struct {
	Kind OriginKind `json:"kind"`
	Ref  string     `json:"ref"`
}

// Builtin returns a builtin origin for tag.
func Builtin(tag string) Origin { return Origin{Kind: OriginBuiltin, Ref: tag} }

// LocalFile returns a local origin for a project-relative path.
func LocalFile(path string) Origin { return Origin{Kind: OriginLocal, Ref: path} }

// ExternalPackage returns an external origin for a module specifier.
func ExternalPackage(specifier string) Origin {
	return Origin{Kind: OriginExternal, Ref: specifier}
}

// Unresolved returns the fallback origin for a specifier that did not
// resolve. It is keyed by the raw specifier, like an external package.
func Unresolved(specifier string) Origin {
	return Origin{Kind: OriginUnresolved, Ref: specifier}
}

// Identity is the origin part of a report key.
func (o Origin) Identity() string { return o.Ref }

func (o Origin) String() string { return fmt.Sprintf("%s(%s)", o.Kind, o.Ref) }

// Position is a point in a source file: 1-based line, 0-based column.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Location places an instance in the scanned project.
type Location struct {
	// File is relative to the project root, slash separated.
	File         string   `json:"file"`
	AbsolutePath string   `json:"absolutePath"`
	Start        Position `json:"start"`
	End          Position `json:"end"`
}

// PropKind discriminates PropValue.
type PropKind string

const (
	PropString     PropKind = "string"
	PropNumber     PropKind = "number"
	PropBoolean    PropKind = "boolean"
	PropNull       PropKind = "null"
	PropExpression PropKind = "expression"
	// PropShorthand is an attribute written without a value (<Button primary />).
	PropShorthand PropKind = "shorthand"
)

// PropValue is the value of one JSX attribute.
type PropValue struct {
	Kind PropKind
	// Text holds the string literal or the raw expression source.
	Text string
	Num  float64
	Bool bool
}

// StringValue returns a string-literal value.
func StringValue(s string) PropValue { return PropValue{Kind: PropString, Text: s} }

// NumberValue returns a numeric literal value.
func NumberValue(n float64) PropValue { return PropValue{Kind: PropNumber, Num: n} }

// BoolValue returns a boolean literal value.
func BoolValue(b bool) PropValue { return PropValue{Kind: PropBoolean, Bool: b} }

// NullValue returns the null literal.
func NullValue() PropValue { return PropValue{Kind: PropNull} }

// ExpressionValue returns a raw expression, kept as source text.
func ExpressionValue(src string) PropValue { return PropValue{Kind: PropExpression, Text: src} }

// ShorthandValue returns the implicit true of a valueless attribute.
func ShorthandValue() PropValue { return PropValue{Kind: PropShorthand, Bool: true} }

// String renders the value the way formatters bucket it: shorthand and
// true both print "true", strings print unquoted, expressions print their
// source.
func (v PropValue) String() string {
	switch v.Kind {
	case PropString, PropExpression:
		return v.Text
	case PropNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case PropBoolean:
		return strconv.FormatBool(v.Bool)
	case PropShorthand:
		return "true"
	default:
		return "null"
	}
}

type wirePropValue struct {
	Kind  PropKind        `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the value as {"kind": ..., "value": ...} with value
// typed according to kind.
func (v PropValue) MarshalJSON() ([]byte, error) {
	var raw any
	switch v.Kind {
	case PropString, PropExpression:
		raw = v.Text
	case PropNumber:
		raw = v.Num
	case PropBoolean:
		raw = v.Bool
	case PropShorthand:
		raw = true
	case PropNull:
		raw = nil
	default:
		return nil, fmt.Errorf("unknown prop kind %q", v.Kind)
	}
	value, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wirePropValue{Kind: v.Kind, Value: value})
}

// UnmarshalJSON decodes the tagged form written by MarshalJSON.
func (v *PropValue) UnmarshalJSON(data []byte) error {
	var w wirePropValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	out := PropValue{Kind: w.Kind}
	var err error
	switch w.Kind {
	case PropString, PropExpression:
		err = json.Unmarshal(w.Value, &out.Text)
	case PropNumber:
		err = json.Unmarshal(w.Value, &out.Num)
	case PropBoolean:
		err = json.Unmarshal(w.Value, &out.Bool)
	case PropShorthand:
		out.Bool = true
	case PropNull:
	default:
		return fmt.Errorf("unknown prop kind %q", w.Kind)
	}
	if err != nil {
		return fmt.Errorf("decode %s prop value: %w", w.Kind, err)
	}

	*v = out
	return nil
}

// Prop is one attribute of an instance.
type Prop struct {
	Name  string    `json:"name"`
	Value PropValue `json:"value"`
	// Location is "file:line:column" of the attribute.
	Location string `json:"location"`
}

// ComponentInstance is one JSX usage site.
type ComponentInstance struct {
	// Name is the resolved export name, possibly with a member path
	// ("default.Header").
	Name string `json:"name"`
	// Alias is the name as written in source when it differs from Name.
	Alias       string   `json:"alias,omitempty"`
	Origin      Origin   `json:"importOrigin"`
	Location    Location `json:"location"`
	Props       []Prop   `json:"props"`
	Spread      bool     `json:"spread"`
	HasChildren bool     `json:"hasChildren"`
}

// Key is the report key: "{origin identity}/{name}".
func (c ComponentInstance) Key() string {
	return c.Origin.Identity() + "/" + c.Name
}

// Prop returns the attribute with the given name.
func (c ComponentInstance) Prop(name string) (Prop, bool) {
	for _, p := range c.Props {
		if p.Name == name {
			return p, true
		}
	}
	return Prop{}, false
}

// ImportRef is the part of an imported instance a worker cannot finish:
// the module specifier still has to go through module resolution.
type ImportRef struct {
	Specifier string `json:"specifier"`
	// FromFile is the absolute path of the importing file.
	FromFile string `json:"fromFile"`
}

// Partial is an instance as produced by a worker. When Import is nil the
// instance's Origin is final (builtin or locally declared); otherwise
// Origin is unset until the coordinator resolves Import.
type Partial struct {
	Instance ComponentInstance `json:"instance"`
	Import   *ImportRef        `json:"import,omitempty"`
}

// Resolved reports whether the partial needs no module resolution.
func (p Partial) Resolved() bool { return p.Import == nil }
