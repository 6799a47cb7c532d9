package legacyir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventbus "github.com/hanpama/flatgraph/internal/eventbus"
	events "github.com/hanpama/flatgraph/internal/events"
	ir "github.com/hanpama/flatgraph/internal/ir"
	language "github.com/hanpama/flatgraph/internal/language"
	schema "github.com/hanpama/flatgraph/internal/schema"
)

func compileTestdata(t *testing.T) *ir.Context {
	t.Helper()
	sdl, err := os.ReadFile(filepath.Join("testdata", "schema.graphql"))
	require.NoError(t, err)
	sch, err := schema.LoadSDL(string(sdl))
	require.NoError(t, err)
	src, err := os.ReadFile(filepath.Join("testdata", "queries.graphql"))
	require.NoError(t, err)
	doc, err := language.ParseQuery("queries.graphql", string(src))
	require.NoError(t, err)
	c, err := ir.CompileDocument(sch, doc)
	require.NoError(t, err)
	return c
}

func fieldNames(fields []*Field) []string {
	names := []string{}
	for _, f := range fields {
		names = append(names, f.ResponseName)
	}
	return names
}

type inlineSummary struct {
	TypeCondition   string
	Fields          []string
	FragmentSpreads []string
}

func summarize(frags []*InlineFragment) []inlineSummary {
	var out []inlineSummary
	for _, f := range frags {
		out = append(out, inlineSummary{f.TypeCondition, fieldNames(f.Fields), f.FragmentSpreads})
	}
	return out
}

func TestTransformOperation(t *testing.T) {
	c := compileTestdata(t)
	out, err := Transform(context.Background(), c, DefaultOptions())
	require.NoError(t, err)

	op := out.Operations["AnimalName"]
	require.NotNil(t, op)
	assert.Equal(t, "query", op.OperationType)
	assert.Equal(t, "Query", op.RootType)
	assert.Equal(t, "queries.graphql", op.FilePath)
	assert.Equal(t, []string{}, op.FragmentsReferenced)
	assert.Equal(t, op.Source, op.SourceWithFragments)
	assert.Len(t, op.OperationID, 64)
	require.Len(t, op.Variables, 1)
	assert.Equal(t, "withOwner", op.Variables[0].Name)

	require.Equal(t, []string{"animal"}, fieldNames(op.Fields))
	assert.Empty(t, op.InlineFragments)
	assert.Equal(t, "Animal", op.Fields[0].Type.String())
	animal := op.Fields[0].Selections
	require.NotNil(t, animal)

	assert.Equal(t, []string{"name", "owner"}, fieldNames(animal.Fields))
	want := []inlineSummary{
		{"Cat", []string{"name", "owner"}, []string{}},
		{"Dog", []string{"name", "owner", "barkVolume"}, []string{}},
	}
	if diff := cmp.Diff(want, summarize(animal.InlineFragments)); diff != "" {
		t.Fatalf("inline fragments mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"Dog"}, animal.InlineFragments[1].PossibleTypes)

	owner := animal.Fields[1]
	assert.True(t, owner.IsConditional)
	assert.Equal(t, []Condition{{Kind: "BooleanCondition", VariableName: "withOwner"}}, owner.Conditions)
	require.NotNil(t, owner.Selections)
	assert.Equal(t, []string{"name"}, fieldNames(owner.Selections.Fields))

	name := animal.Fields[0]
	assert.Equal(t, "The animal's name", name.Description)
	assert.Nil(t, name.Selections)
	dogName := animal.InlineFragments[1].Fields[0]
	assert.Equal(t, "The dog's registered name", dogName.Description)
}

func TestTransformFragmentSpreads(t *testing.T) {
	c := compileTestdata(t)

	out, err := Transform(context.Background(), c, DefaultOptions())
	require.NoError(t, err)
	op := out.Operations["WithFragments"]
	assert.Equal(t, []string{"AnimalDetails"}, op.FragmentsReferenced)
	assert.Equal(t, op.Source+"\n"+out.Fragments["AnimalDetails"].Source, op.SourceWithFragments)

	animal := op.Fields[0].Selections
	assert.Equal(t, []string{"__typename", "name"}, fieldNames(animal.Fields))
	assert.Equal(t, []string{"AnimalDetails"}, animal.FragmentSpreads)
	want := []inlineSummary{
		{"Cat", []string{"__typename", "name", "meowVolume"}, []string{"AnimalDetails"}},
		{"Dog", []string{"__typename", "name", "barkVolume"}, []string{"AnimalDetails"}},
	}
	if diff := cmp.Diff(want, summarize(animal.InlineFragments)); diff != "" {
		t.Fatalf("inline fragments mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformWithoutMergingFragments(t *testing.T) {
	c := compileTestdata(t)

	out, err := Transform(context.Background(), c, Options{})
	require.NoError(t, err)
	assert.False(t, out.Options.MergeInFieldsFromFragmentSpreads)

	animal := out.Operations["WithFragments"].Fields[0].Selections
	assert.Empty(t, animal.Fields)
	assert.Equal(t, []string{"AnimalDetails"}, animal.FragmentSpreads)
	want := []inlineSummary{
		{"Cat", []string{"meowVolume"}, []string{"AnimalDetails"}},
	}
	if diff := cmp.Diff(want, summarize(animal.InlineFragments)); diff != "" {
		t.Fatalf("inline fragments mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformFragment(t *testing.T) {
	c := compileTestdata(t)
	out, err := Transform(context.Background(), c, DefaultOptions())
	require.NoError(t, err)

	frag := out.Fragments["AnimalDetails"]
	require.NotNil(t, frag)
	assert.Equal(t, "Animal", frag.TypeCondition)
	assert.Equal(t, []string{"Cat", "Dog"}, frag.PossibleTypes)
	assert.Equal(t, []string{"__typename", "name"}, fieldNames(frag.Fields))
	want := []inlineSummary{
		{"Cat", []string{"__typename", "name"}, []string{}},
		{"Dog", []string{"__typename", "name", "barkVolume"}, []string{}},
	}
	if diff := cmp.Diff(want, summarize(frag.InlineFragments)); diff != "" {
		t.Fatalf("inline fragments mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformReportsContractViolationPerOperation(t *testing.T) {
	query := schema.NewType("Query", schema.TypeKindObject, "")
	dog := schema.NewType("Dog", schema.TypeKindObject, "")
	cat := schema.NewType("Cat", schema.TypeKindObject, "")
	field := func(name string) *ir.Field {
		return &ir.Field{ResponseKey: name, Name: name, Type: schema.NamedType("String")}
	}
	c := &ir.Context{Operations: []*ir.Operation{
		{
			OperationName: "Broken",
			OperationType: language.Query,
			RootType:      query,
			SelectionSet: &ir.SelectionSet{
				PossibleTypes: []*schema.Type{dog},
				Selections: []ir.Selection{&ir.TypeCondition{
					Type:         cat,
					SelectionSet: &ir.SelectionSet{PossibleTypes: []*schema.Type{cat}, Selections: []ir.Selection{field("meow")}},
				}},
			},
		},
		{
			OperationName: "Fine",
			OperationType: language.Query,
			RootType:      query,
			SelectionSet:  &ir.SelectionSet{PossibleTypes: []*schema.Type{query}, Selections: []ir.Selection{field("hello")}},
		},
	}}

	out, err := Transform(context.Background(), c, Options{})

	require.EqualError(t, err, `operation "Broken": flatten: type "Cat" is not a possible type of this selection set`)
	require.NotNil(t, out)
	assert.NotContains(t, out.Operations, "Broken")
	require.Contains(t, out.Operations, "Fine")
	assert.Equal(t, []string{"hello"}, fieldNames(out.Operations["Fine"].Fields))

	_, err = Flatten(c, c.Operations[0].SelectionSet, Options{})
	assert.ErrorContains(t, err, "flatten: type \"Cat\"")
}

func TestTransformJSON(t *testing.T) {
	c := compileTestdata(t)
	out, err := Transform(context.Background(), c, DefaultOptions())
	require.NoError(t, err)

	data, err := json.MarshalIndent(out, "", "  ")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assertNoNulls(t, "$", decoded)

	op := decoded["operations"].(map[string]any)["AnimalName"].(map[string]any)
	assert.Equal(t, "AnimalName", op["operationName"])
	for _, key := range []string{"fields", "fragmentSpreads", "inlineFragments"} {
		assert.Contains(t, op, key)
	}
	assert.NotContains(t, op, "Selections")
	variable := op["variables"].([]any)[0].(map[string]any)
	assert.Equal(t, "withOwner", variable["name"])
	assert.Equal(t, "Boolean!", variable["type"])

	animal := op["fields"].([]any)[0].(map[string]any)
	assert.Equal(t, "Animal", animal["type"])
	assert.NotContains(t, animal, "conditions")
	assert.Contains(t, animal, "inlineFragments")

	name := animal["fields"].([]any)[0].(map[string]any)
	assert.NotContains(t, name, "fields")
	assert.NotContains(t, name, "fragmentSpreads")
	assert.NotContains(t, name, "inlineFragments")

	frag := decoded["fragments"].(map[string]any)["AnimalDetails"].(map[string]any)
	assert.Len(t, frag["inlineFragments"], 2)

	owner := animal["fields"].([]any)[1].(map[string]any)
	assert.Equal(t, []any{map[string]any{
		"kind":         "BooleanCondition",
		"variableName": "withOwner",
		"inverted":     false,
	}}, owner["conditions"])

	assert.Equal(t, []any{}, decoded["typesUsed"])
	assert.Equal(t, map[string]any{
		"mergeInFieldsFromFragmentSpreads": true,
		"inlineRedundantTypeConditions":    true,
	}, decoded["options"])
}

func assertNoNulls(t *testing.T, path string, v any) {
	t.Helper()
	switch v := v.(type) {
	case nil:
		t.Errorf("%s is null", path)
	case map[string]any:
		for k, e := range v {
			assertNoNulls(t, path+"."+k, e)
		}
	case []any:
		for i, e := range v {
			assertNoNulls(t, fmt.Sprintf("%s[%d]", path, i), e)
		}
	}
}

func TestFieldJSON(t *testing.T) {
	field := &Field{
		ResponseName: "animal",
		FieldName:    "animal",
		Type:         schema.NamedType("Animal"),
		Selections: &Selections{
			Fields: []*Field{{
				ResponseName: "name",
				FieldName:    "name",
				Type:         schema.NonNullType(schema.NamedType("String")),
			}},
			InlineFragments: []*InlineFragment{{
				TypeCondition:   "Dog",
				PossibleTypes:   []string{"Dog"},
				Fields:          []*Field{{ResponseName: "barkVolume", FieldName: "barkVolume", Type: schema.NamedType("Int")}},
				FragmentSpreads: []string{},
			}},
		},
	}

	data, err := json.Marshal(&CompilerContext{
		Operations: map[string]*Operation{"Q": {OperationName: "Q", Fields: []*Field{field}}},
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"operations": {"Q": {
			"operationName": "Q",
			"operationType": "",
			"rootType": "",
			"variables": null,
			"source": "",
			"fields": [{
				"responseName": "animal",
				"fieldName": "animal",
				"type": "Animal",
				"isConditional": false,
				"fields": [{"responseName": "name", "fieldName": "name", "type": "String!", "isConditional": false}],
				"fragmentSpreads": [],
				"inlineFragments": [{
					"typeCondition": "Dog",
					"possibleTypes": ["Dog"],
					"fields": [{"responseName": "barkVolume", "fieldName": "barkVolume", "type": "Int", "isConditional": false}],
					"fragmentSpreads": []
				}]
			}],
			"fragmentSpreads": null,
			"inlineFragments": null,
			"fragmentsReferenced": null,
			"sourceWithFragments": "",
			"operationId": ""
		}},
		"fragments": null,
		"typesUsed": null,
		"options": {"mergeInFieldsFromFragmentSpreads": false, "inlineRedundantTypeConditions": false}
	}`, string(data))
}

func TestTransformPublishesEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	var flattened []events.SelectionSetFlattened
	var finished []events.TransformFinish
	eventbus.Subscribe(func(_ context.Context, e events.SelectionSetFlattened) { flattened = append(flattened, e) })
	eventbus.Subscribe(func(_ context.Context, e events.TransformFinish) { finished = append(finished, e) })

	_, err := Transform(context.Background(), compileTestdata(t), DefaultOptions())
	require.NoError(t, err)

	require.Len(t, flattened, 3)
	assert.Equal(t, events.SelectionSetFlattened{Kind: "operation", Name: "AnimalName", PossibleTypes: 1, Records: 1}, flattened[0])
	assert.Equal(t, events.SelectionSetFlattened{Kind: "fragment", Name: "AnimalDetails", PossibleTypes: 2, Records: 2}, flattened[2])
	require.Len(t, finished, 1)
	assert.Equal(t, 2, finished[0].Operations)
	assert.NoError(t, finished[0].Err)
}
