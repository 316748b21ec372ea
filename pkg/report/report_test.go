package report

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func instance(name string, origin Origin, file string, line int) ComponentInstance {
	return ComponentInstance{
		Name:   name,
		Origin: origin,
		Location: Location{
			File:  file,
			Start: Position{Line: line, Column: 4},
			End:   Position{Line: line, Column: 20},
		},
	}
}

func TestComponentInstance_Key(t *testing.T) {
	tests := []struct {
		name     string
		instance ComponentInstance
		want     string
	}{
		{"builtin", instance("div", Builtin("div"), "a.tsx", 1), "div/div"},
		{"external", instance("Button", ExternalPackage("@mui/material"), "a.tsx", 1), "@mui/material/Button"},
		{"local", instance("default", LocalFile("src/Card.tsx"), "a.tsx", 1), "src/Card.tsx/default"},
		{"unresolved", instance("X", Unresolved("missing-lib"), "a.tsx", 1), "missing-lib/X"},
		{"member path", instance("default.Header", LocalFile("src/Layout.tsx"), "a.tsx", 1), "src/Layout.tsx/default.Header"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.instance.Key())
		})
	}
}

func TestReport_MergeAppends(t *testing.T) {
	r := New()
	a := instance("Button", ExternalPackage("ui"), "a.tsx", 3)
	b := instance("Button", ExternalPackage("ui"), "b.tsx", 7)
	d := instance("div", Builtin("div"), "a.tsx", 4)

	r.Merge(a, d)
	r.Merge(b)

	assert.Equal(t, []string{"div/div", "ui/Button"}, r.Keys())
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 3, r.Total())

	got := r.Instances("ui/Button")
	require.Len(t, got, 2)
	assert.Equal(t, "a.tsx", got[0].Location.File)
	assert.Equal(t, "b.tsx", got[1].Location.File)
}

func TestReport_MergeIsNotIdempotent(t *testing.T) {
	r := New()
	batch := []ComponentInstance{
		instance("Card", LocalFile("src/Card.tsx"), "src/App.tsx", 5),
		instance("Card", LocalFile("src/Card.tsx"), "src/App.tsx", 9),
	}

	r.Merge(batch...)
	r.Merge(batch...)

	assert.Len(t, r.Instances("src/Card.tsx/Card"), 4)
}

func TestReport_InstancesReturnsCopy(t *testing.T) {
	r := New()
	r.Merge(instance("Card", LocalFile("c.tsx"), "a.tsx", 1))

	got := r.Instances("c.tsx/Card")
	got[0].Name = "changed"

	assert.Equal(t, "Card", r.Instances("c.tsx/Card")[0].Name)
	assert.Nil(t, r.Instances("missing/Key"))
}

func TestReport_ConcurrentMerge(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Merge(instance("Button", ExternalPackage("ui"), "a.tsx", j+1))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 800, r.Total())
	assert.Len(t, r.Instances("ui/Button"), 800)
}

func TestReport_JSONShape(t *testing.T) {
	r := New()
	inst := instance("Button", ExternalPackage("ui"), "src/App.tsx", 3)
	inst.Alias = "Btn"
	inst.HasChildren = true
	inst.Props = []Prop{
		{Name: "variant", Value: StringValue("primary"), Location: "src/App.tsx:3:12"},
		{Name: "disabled", Value: ShorthandValue(), Location: "src/App.tsx:3:30"},
	}
	r.Merge(inst)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]map[string]map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	instances := decoded["usage"]["ui/Button"]["instances"]
	require.Len(t, instances, 1)
	assert.Equal(t, "Button", instances[0]["name"])
	assert.Equal(t, "Btn", instances[0]["alias"])
	assert.Equal(t, true, instances[0]["hasChildren"])
	assert.Equal(t, map[string]any{"kind": "external", "ref": "ui"}, instances[0]["importOrigin"])

	var roundTrip Report
	require.NoError(t, json.Unmarshal(data, &roundTrip))
	assert.Equal(t, r.Keys(), roundTrip.Keys())
	assert.Equal(t, r.Instances("ui/Button"), roundTrip.Instances("ui/Button"))
}

func TestReport_AliasOmittedWhenEmpty(t *testing.T) {
	data, err := json.Marshal(instance("div", Builtin("div"), "a.tsx", 1))
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"alias"`)
}

func TestPropValue_String(t *testing.T) {
	tests := []struct {
		value PropValue
		want  string
	}{
		{StringValue("primary"), "primary"},
		{NumberValue(42), "42"},
		{NumberValue(1.5), "1.5"},
		{BoolValue(false), "false"},
		{BoolValue(true), "true"},
		{ShorthandValue(), "true"},
		{NullValue(), "null"},
		{ExpressionValue("onClick"), "onClick"},
	}

	for _, tt := range tests {
		t.Run(string(tt.value.Kind)+"/"+tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.String())
		})
	}
}

func TestPropValue_JSON(t *testing.T) {
	tests := []struct {
		value PropValue
		want  string
	}{
		{StringValue("a"), `{"kind":"string","value":"a"}`},
		{NumberValue(3), `{"kind":"number","value":3}`},
		{BoolValue(false), `{"kind":"boolean","value":false}`},
		{ShorthandValue(), `{"kind":"shorthand","value":true}`},
		{NullValue(), `{"kind":"null","value":null}`},
		{ExpressionValue("() => go()"), `{"kind":"expression","value":"() => go()"}`},
	}

	for _, tt := range tests {
		t.Run(string(tt.value.Kind), func(t *testing.T) {
			data, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			var back PropValue
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tt.value, back)
		})
	}
}

func TestPropValue_UnknownKind(t *testing.T) {
	_, err := json.Marshal(PropValue{Kind: "regex"})
	assert.Error(t, err)

	var v PropValue
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"regex","value":"x"}`), &v))
}

func TestPartial_Resolved(t *testing.T) {
	assert.True(t, Partial{Instance: instance("div", Builtin("div"), "a.tsx", 1)}.Resolved())
	assert.False(t, Partial{Import: &ImportRef{Specifier: "./Card", FromFile: "/p/a.tsx"}}.Resolved())
}
