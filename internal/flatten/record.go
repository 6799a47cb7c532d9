package flatten

import (
	"fmt"
	"slices"

	"github.com/elliotchance/orderedmap/v3"

	ir "github.com/hanpama/flatgraph/internal/ir"
	schema "github.com/hanpama/flatgraph/internal/schema"
)

// Record is the flattened field list for one partition of a selection set's
// possible types. Fields are keyed by response key and keep the order in
// which each key was first added.
type Record struct {
	PossibleTypes []*schema.Type

	fields *orderedmap.OrderedMap[string, *ir.Field]
}

func newRecord(possibleTypes []*schema.Type) *Record {
	return &Record{
		PossibleTypes: possibleTypes,
		fields:        orderedmap.NewOrderedMap[string, *ir.Field](),
	}
}

// clone returns a record with no possible types and every field of r.
// Stored fields are never mutated, so the two records may share them.
func (r *Record) clone() *Record {
	c := newRecord(nil)
	for key, f := range r.fields.AllFromFront() {
		c.fields.Set(key, f)
	}
	return c
}

// Fields returns the merged fields in first-insertion order.
func (r *Record) Fields() []*ir.Field {
	out := make([]*ir.Field, 0, r.fields.Len())
	for _, f := range r.fields.AllFromFront() {
		out = append(out, f)
	}
	return out
}

// Field returns the merged field stored under responseKey.
func (r *Record) Field(responseKey string) (*ir.Field, bool) {
	return r.fields.Get(responseKey)
}

// Len returns the number of distinct response keys in r.
func (r *Record) Len() int { return r.fields.Len() }

// AddField merges one occurrence of field, reached under conditions, into r.
func (r *Record) AddField(field *ir.Field, conditions []ir.Condition) {
	if existing, ok := r.fields.Get(field.ResponseKey); ok {
		r.fields.Set(field.ResponseKey, mergeField(existing, field, conditions))
		return
	}
	r.fields.Set(field.ResponseKey, copyField(field, conditions))
}

func copyField(field *ir.Field, conditions []ir.Condition) *ir.Field {
	if field.ResponseKey == "" {
		panic(fmt.Sprintf("flatten: field %q has no response key", field.Name))
	}
	f := *field
	if field.SelectionSet != nil {
		f.SelectionSet = &ir.SelectionSet{
			PossibleTypes: field.SelectionSet.PossibleTypes,
			Selections:    slices.Clone(field.SelectionSet.Selections),
		}
	}
	f.Conditions = slices.Clone(conditions)
	f.IsConditional = len(conditions) > 0
	return &f
}

// mergeField returns a new field combining existing with another occurrence.
// Conditions are concatenated and never cleared; nested selections are
// appended shallowly and left for the nested flattening to merge.
func mergeField(existing, incoming *ir.Field, conditions []ir.Condition) *ir.Field {
	merged := *existing
	if len(conditions) > 0 {
		merged.Conditions = slices.Concat(existing.Conditions, conditions)
		merged.IsConditional = true
	}
	switch {
	case existing.SelectionSet != nil && incoming.SelectionSet != nil:
		merged.SelectionSet = &ir.SelectionSet{
			PossibleTypes: existing.SelectionSet.PossibleTypes,
			Selections:    slices.Concat(existing.SelectionSet.Selections, incoming.SelectionSet.Selections),
		}
	case existing.SelectionSet != nil || incoming.SelectionSet != nil:
		panic(fmt.Sprintf("flatten: field %q is selected both with and without a selection set", existing.ResponseKey))
	}
	return &merged
}
