package jsontree

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKeepsKeyOrder(t *testing.T) {
	obj, err := DecodeObject([]byte(`{"zeta": 1, "alpha": {"b": true, "a": null}, "mid": [1, "x"]}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, obj.Keys())
	assert.Equal(t, []string{"b", "a"}, obj.GetObject("alpha").Keys())

	v, ok := obj.Get("zeta")
	require.True(t, ok)
	assert.Equal(t, json.Number("1"), v)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ``},
		{"truncated", `{"a": 1`},
		{"trailing", `{"a": 1} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			assert.Error(t, err)
		})
	}

	_, err := DecodeObject([]byte(`[1, 2]`))
	assert.ErrorIs(t, err, ErrNotObject)
}

func TestMarshalIndentRoundTrip(t *testing.T) {
	src := `{
  "title": "source",
  "properties": {
    "alias": {
      "type": "string"
    },
    "name": {
      "type": "string"
    }
  },
  "required": [
    "alias"
  ]
}`
	obj, err := DecodeObject([]byte(src))
	require.NoError(t, err)

	out, err := MarshalIndent(obj, "  ")
	require.NoError(t, err)
	assert.Equal(t, src, string(out))
}

func TestMarshalDoesNotEscapeHTML(t *testing.T) {
	out, err := Marshal(Pairs("url", "https://a.b/?x=1&y=<2>"))
	require.NoError(t, err)
	assert.Equal(t, `{"url":"https://a.b/?x=1&y=<2>"}`, string(out))
}

func TestMarshalCanonicalSortsAndNormalizes(t *testing.T) {
	a := Pairs("b", 1, "a", Pairs("y", json.Number("2.0"), "x", "s"))
	b := Pairs("a", Pairs("x", "s", "y", 2), "b", json.Number("1"))

	ca, err := MarshalCanonical(a)
	require.NoError(t, err)
	cb, err := MarshalCanonical(b)
	require.NoError(t, err)

	assert.Equal(t, `{"a":{"x":"s","y":2},"b":1}`, string(ca))
	assert.Equal(t, string(ca), string(cb))
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"numbers across representations", json.Number("3"), 3.0, true},
		{"different numbers", 1, 2, false},
		{"string vs number", "1", 1, false},
		{"objects ignore order", Pairs("a", 1, "b", 2), Pairs("b", 2, "a", 1), true},
		{"objects differ", Pairs("a", 1), Pairs("a", 1, "b", 2), false},
		{"arrays are positional", []any{1, 2}, []any{2, 1}, false},
		{"nil", nil, nil, true},
		{"bool", true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := Pairs("list", []any{Pairs("k", "v")}, "n", 1)
	cp := CloneObject(orig)

	list, _ := cp.Get("list")
	list.([]any)[0].(*Object).Set("k", "changed")

	origList, _ := orig.Get("list")
	assert.Equal(t, "v", origList.([]any)[0].(*Object).GetString("k"))
}

func TestObjectSetDeleteOrder(t *testing.T) {
	o := NewObject(0)
	o.Set("a", 1)
	o.Set("b", 2)
	o.Set("c", 3)
	o.Set("a", 10)
	o.Delete("b")

	assert.Equal(t, []string{"a", "c"}, o.Keys())
	v, _ := o.Get("a")
	assert.Equal(t, 10, v)
	assert.False(t, o.Has("b"))

	var zero Object
	zero.Set("x", true)
	assert.Equal(t, 1, zero.Len())
}

func TestFromValueAndToPlain(t *testing.T) {
	tree := FromValue(map[string]any{
		"b":    []string{"x", "y"},
		"a":    map[string]any{"n": 1.5},
		"list": []int{1, 2},
	})
	obj, ok := tree.(*Object)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "list"}, obj.Keys())

	decoded, err := DecodeObject([]byte(`{"i": 4, "f": 2.5, "nested": {"xs": [1, 2.25]}}`))
	require.NoError(t, err)

	want := map[string]any{
		"i":      int64(4),
		"f":      2.5,
		"nested": map[string]any{"xs": []any{int64(1), 2.25}},
	}
	if diff := cmp.Diff(want, ToPlain(decoded)); diff != "" {
		t.Fatalf("ToPlain mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeYAML(t *testing.T) {
	src := `
title: quantity
version: 1
properties:
  value:
    type: [number, string]
    format: numeric
  derived:
    type: boolean
    default: false
required: [value]
`
	obj, err := DecodeYAML([]byte(src))
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "version", "properties", "required"}, obj.Keys())
	assert.Equal(t, []string{"value", "derived"}, obj.GetObject("properties").Keys())

	version, _ := obj.Get("version")
	assert.True(t, Equal(version, 1))

	def, _ := obj.GetObject("properties").GetObject("derived").Get("default")
	assert.Equal(t, false, def)
}

func TestObjectJSONInterfaces(t *testing.T) {
	var o Object
	require.NoError(t, json.Unmarshal([]byte(`{"b":1,"a":2}`), &o))
	assert.Equal(t, []string{"b", "a"}, o.Keys())

	out, err := json.Marshal(&o)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":2}`, string(out))
}
