package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonTree = `{
  "kind": "Program",
  "pos": [0, 40],
  "elements": [{
    "kind": "Jconditional",
    "pos": [0, 40],
    "entries": [{
      "kind": "JcondEntry",
      "name": "fogOnly",
      "rules": [{
        "kind": "JcondRule",
        "left": {"kind": "MemberExpr", "object": {"kind": "Identifier", "name": "jsys"}, "property": "type"},
        "op": "==",
        "right": {"kind": "Literal", "text": "\"fog\""}
      }]
    }]
  }]
}`

const yamlTree = `
kind: Program
pos: [0, 40]
elements:
  - kind: Jconditional
    pos: [0, 40]
    entries:
      - kind: JcondEntry
        name: fogOnly
        rules:
          - kind: JcondRule
            left: {kind: MemberExpr, object: {kind: Identifier, name: jsys}, property: type}
            op: "=="
            right: {kind: Literal, text: '"fog"'}
`

const cueTree = `
kind: "Program"
pos: [0, 40]
elements: [{
	kind: "Jconditional"
	pos: [0, 40]
	entries: [{
		kind: "JcondEntry"
		name: "fogOnly"
		rules: [{
			kind:  "JcondRule"
			left:  {kind: "MemberExpr", object: {kind: "Identifier", name: "jsys"}, property: "type"}
			op:    "=="
			right: {kind: "Literal", text: "\"fog\""}
		}]
	}]
}]
`

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"app.json", FormatJSON},
		{"app.yaml", FormatYAML},
		{"app.YML", FormatYAML},
		{"dir/app.cue", FormatCUE},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := FormatOf("app.js")
	assert.ErrorContains(t, err, `".js"`)
}

func TestLoad_FormatsAgree(t *testing.T) {
	fromJSON, err := Load([]byte(jsonTree), FormatJSON, "tree.json")
	require.NoError(t, err)
	fromYAML, err := Load([]byte(yamlTree), FormatYAML, "tree.yaml")
	require.NoError(t, err)
	fromCUE, err := Load([]byte(cueTree), FormatCUE, "tree.cue")
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromYAML)
	assert.Equal(t, fromJSON, fromCUE)

	prog, ok := fromJSON.(*Program)
	require.True(t, ok)
	require.Len(t, prog.Elements, 1)
	cond, ok := prog.Elements[0].(*Jconditional)
	require.True(t, ok)
	assert.Equal(t, Span{From: 0, To: 40}, cond.Span)
	require.Len(t, cond.Entries, 1)
	assert.Equal(t, "fogOnly", cond.Entries[0].Name)
	require.Len(t, cond.Entries[0].Rules, 1)
	assert.Equal(t, "==", cond.Entries[0].Rules[0].Op)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   string
		want   string
	}{
		{"bad json", FormatJSON, `{"kind":`, "decoding JSON tree"},
		{"bad yaml", FormatYAML, "kind: [", "decoding YAML tree"},
		{"bad cue", FormatCUE, "kind: ", "compiling CUE tree"},
		{"incomplete cue", FormatCUE, "kind: string", "not concrete"},
		{"unknown kind", FormatJSON, `{"kind":"Mystery"}`, `unknown node kind "Mystery"`},
		{"missing field", FormatJSON, `{"kind":"Identifier"}`, `missing field "name"`},
		{"bad pos", FormatJSON, `{"kind":"Identifier","name":"x","pos":[1]}`, "expected [from, to]"},
		{"fractional pos", FormatJSON, `{"kind":"Identifier","name":"x","pos":[1.5,2]}`, "positions must be integers"},
		{"not an object", FormatJSON, `[1, 2]`, "expected node object"},
		{"unknown format", Format("xml"), `<x/>`, "unknown tree format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.data), tt.format, "tree")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestUnpack_ErrorPath(t *testing.T) {
	_, err := Load([]byte(`{"kind":"Program","elements":[{"kind":"Call","callee":{"kind":"Identifier"}}]}`), FormatJSON, "tree.json")
	var ue *UnpackError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, ".elements[0].callee", ue.Path)
}

func TestUnpack_UnknownKindWithChildren(t *testing.T) {
	n, err := Load([]byte(`{"kind":"IfStatement","pos":[0,9],"children":[{"kind":"Terminal","text":"if"}]}`), FormatJSON, "tree.json")
	require.NoError(t, err)

	g, ok := n.(*Generic)
	require.True(t, ok)
	assert.Equal(t, "IfStatement", g.Kind)
	require.Len(t, g.Children, 1)
	assert.Equal(t, &Terminal{Span: Span{}, Text: "if"}, g.Children[0])
}

func TestUnpack_CType(t *testing.T) {
	n, err := Load([]byte(`{"kind":"CType","name":"reading","entries":[{"name":"temp","type":"float"}]}`), FormatJSON, "tree.json")
	require.NoError(t, err)

	ct, ok := n.(*CType)
	require.True(t, ok)
	assert.False(t, ct.Pointer)
	assert.Equal(t, []StructEntry{{Name: "temp", Type: "float"}}, ct.Entries)
}
