package flatten

import (
	ir "github.com/hanpama/flatgraph/internal/ir"
	schema "github.com/hanpama/flatgraph/internal/schema"
)

func objectType(name string, fields ...*schema.Field) *schema.Type {
	t := schema.NewType(name, schema.TypeKindObject, "")
	for _, f := range fields {
		t.AddField(f)
	}
	return t
}

func types(ts ...*schema.Type) []*schema.Type { return ts }

func selectionSet(possibleTypes []*schema.Type, selections ...ir.Selection) *ir.SelectionSet {
	return &ir.SelectionSet{PossibleTypes: possibleTypes, Selections: selections}
}

func leaf(name string) *ir.Field {
	return &ir.Field{ResponseKey: name, Name: name, Type: schema.NamedType("String")}
}

func aliased(alias, name string) *ir.Field {
	return &ir.Field{ResponseKey: alias, Name: name, Alias: alias, Type: schema.NamedType("String")}
}

func object(name string, ss *ir.SelectionSet) *ir.Field {
	return &ir.Field{ResponseKey: name, Name: name, Type: schema.NamedType("Object"), SelectionSet: ss}
}

func on(possibleTypes []*schema.Type, selections ...ir.Selection) *ir.TypeCondition {
	return &ir.TypeCondition{Type: possibleTypes[0], SelectionSet: selectionSet(possibleTypes, selections...)}
}

func include(variable string, ss *ir.SelectionSet) *ir.BooleanCondition {
	return &ir.BooleanCondition{Condition: ir.Condition{VariableName: variable}, SelectionSet: ss}
}

func skip(variable string, ss *ir.SelectionSet) *ir.BooleanCondition {
	return &ir.BooleanCondition{Condition: ir.Condition{VariableName: variable, Inverted: true}, SelectionSet: ss}
}

func responseKeys(r *Record) []string {
	var keys []string
	for _, f := range r.Fields() {
		keys = append(keys, f.ResponseKey)
	}
	return keys
}

// partition maps each record's type names to its response keys.
func partition(tc *TypeCase) map[string][]string {
	out := make(map[string][]string)
	for _, r := range tc.Records() {
		key := ""
		for i, name := range ir.TypeNames(r.PossibleTypes) {
			if i > 0 {
				key += ","
			}
			key += name
		}
		out[key] = responseKeys(r)
	}
	return out
}
