// Package flatten computes, for a selection set over a polymorphic type, one
// merged field list per group of concrete possible types plus the list of
// fields that hold for all of them.
//
// A TypeCase starts with a single Record shared by every possible type. Each
// field is added to the Records covering the scope it was selected in; when a
// type condition covers only part of a Record's types, that Record is split
// first, the migrating types moving to a clone that carries every field merged
// so far. The default Record spans all possible types, is never split, and
// only receives fields selected for the whole set.
package flatten

import (
	"fmt"
	"slices"
	"strings"

	ir "github.com/hanpama/flatgraph/internal/ir"
	schema "github.com/hanpama/flatgraph/internal/schema"
)

type recordID int

// TypeCase partitions a selection set's possible types into Records.
type TypeCase struct {
	possibleTypes []*schema.Type
	recordsByType map[*schema.Type]recordID
	arena         []*Record
	def           *Record

	normalize bool
}

// Option configures NewTypeCase.
type Option func(*TypeCase)

// WithInlineRedundantTypeConditions normalizes every selection set level
// with InlineRedundantTypeConditions before visiting it.
func WithInlineRedundantTypeConditions() Option {
	return func(tc *TypeCase) { tc.normalize = true }
}

// NewTypeCase flattens ss. It panics when ss violates the input contract: a
// type condition reaching a type outside ss.PossibleTypes, a field without a
// response key, a field merged with and without a selection set, or a
// cyclic selection graph.
func NewTypeCase(ss *ir.SelectionSet, opts ...Option) *TypeCase {
	tc := &TypeCase{
		possibleTypes: slices.Clone(ss.PossibleTypes),
		recordsByType: make(map[*schema.Type]recordID, len(ss.PossibleTypes)),
	}
	for _, opt := range opts {
		opt(tc)
	}
	initial := tc.addRecord(newRecord(slices.Clone(ss.PossibleTypes)))
	for _, t := range ss.PossibleTypes {
		tc.recordsByType[t] = initial
	}
	tc.def = newRecord(slices.Clone(ss.PossibleTypes))

	tc.visitSelectionSet(ss, nil, make(map[*ir.SelectionSet]bool))
	tc.backfillDescriptions()
	return tc
}

// Default returns the record of fields selected for every possible type.
func (tc *TypeCase) Default() *Record { return tc.def }

// PossibleTypes returns the declared possible types.
func (tc *TypeCase) PossibleTypes() []*schema.Type { return slices.Clone(tc.possibleTypes) }

// Records returns the distinct records, ordered by the first declared
// possible type that maps to each.
func (tc *TypeCase) Records() []*Record {
	ids := make([]recordID, len(tc.possibleTypes))
	for i, t := range tc.possibleTypes {
		ids[i] = tc.recordsByType[t]
	}
	return tc.distinct(ids)
}

// RecordFor returns the record currently covering t, or nil when t is not a
// declared possible type.
func (tc *TypeCase) RecordFor(t *schema.Type) *Record {
	id, ok := tc.recordsByType[t]
	if !ok {
		return nil
	}
	return tc.arena[id]
}

func (tc *TypeCase) addRecord(r *Record) recordID {
	tc.arena = append(tc.arena, r)
	return recordID(len(tc.arena) - 1)
}

func (tc *TypeCase) visitSelectionSet(ss *ir.SelectionSet, conditions []ir.Condition, visiting map[*ir.SelectionSet]bool) {
	if visiting[ss] {
		panic("flatten: cyclic selection set")
	}
	visiting[ss] = true
	defer delete(visiting, ss)

	if tc.normalize {
		ss = InlineRedundantTypeConditions(ss)
	}
	for _, sel := range ss.Selections {
		switch sel := sel.(type) {
		case *ir.Field:
			for _, r := range tc.recordsFor(ss.PossibleTypes) {
				r.AddField(sel, conditions)
			}
			if ir.CoversTypes(ss.PossibleTypes, tc.def.PossibleTypes) {
				tc.def.AddField(sel, conditions)
			}
		case *ir.TypeCondition:
			tc.visitSelectionSet(sel.SelectionSet, conditions, visiting)
		case *ir.BooleanCondition:
			nested := make([]ir.Condition, 0, len(conditions)+1)
			nested = append(nested, sel.Condition)
			nested = append(nested, conditions...)
			tc.visitSelectionSet(sel.SelectionSet, nested, visiting)
		case *ir.FragmentSpread:
			// Spreads are merged in beforehand or handled by the caller.
		default:
			panic(fmt.Sprintf("flatten: unexpected selection %T", sel))
		}
	}
}

// recordsFor returns the records covering exactly scope, splitting any record
// that also covers types outside it.
func (tc *TypeCase) recordsFor(scope []*schema.Type) []*Record {
	ids := make([]recordID, len(scope))
	disjoint := true
	for i, t := range scope {
		id, ok := tc.recordsByType[t]
		if !ok {
			panic(fmt.Sprintf("flatten: type %q is not a possible type of this selection set", t.Name))
		}
		ids[i] = id
		if !ir.CoversTypes(scope, tc.arena[id].PossibleTypes) {
			disjoint = false
		}
	}
	if !disjoint {
		ids = tc.split(scope, ids)
	}
	return tc.distinct(ids)
}

// split moves the types of scope out of every record that is not contained
// in scope, into one clone per such record. ids[i] is the record of scope[i];
// the returned slice holds the records after the split.
func (tc *TypeCase) split(scope []*schema.Type, ids []recordID) []recordID {
	clones := make(map[recordID]recordID)
	var sources []recordID
	out := make([]recordID, len(ids))
	for i, id := range ids {
		src := tc.arena[id]
		if ir.CoversTypes(scope, src.PossibleTypes) {
			out[i] = id
			continue
		}
		cloneID, ok := clones[id]
		if !ok {
			cloneID = tc.addRecord(src.clone())
			clones[id] = cloneID
			sources = append(sources, id)
		}
		clone := tc.arena[cloneID]
		clone.PossibleTypes = append(clone.PossibleTypes, scope[i])
		tc.recordsByType[scope[i]] = cloneID
		out[i] = cloneID
	}
	for _, id := range sources {
		moved := tc.arena[clones[id]].PossibleTypes
		src := tc.arena[id]
		src.PossibleTypes = slices.DeleteFunc(slices.Clone(src.PossibleTypes), func(t *schema.Type) bool {
			return slices.Contains(moved, t)
		})
	}
	return out
}

func (tc *TypeCase) distinct(ids []recordID) []*Record {
	seen := make(map[recordID]bool, len(ids))
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, tc.arena[id])
	}
	return out
}

// backfillDescriptions replaces the description of every field in a
// single-type record with the description declared on that concrete type.
func (tc *TypeCase) backfillDescriptions() {
	records := append([]*Record{tc.def}, tc.Records()...)
	for _, r := range records {
		if len(r.PossibleTypes) != 1 {
			continue
		}
		t := r.PossibleTypes[0]
		var updated []*ir.Field
		for _, f := range r.fields.AllFromFront() {
			def := t.Field(f.Name)
			if def == nil || def.Description == "" {
				continue
			}
			withDescription := *f
			withDescription.Description = def.Description
			updated = append(updated, &withDescription)
		}
		for _, f := range updated {
			r.fields.Set(f.ResponseKey, f)
		}
	}
}

// String renders the type case for debugging and snapshot tests:
//
//	TypeCase
//	  default -> [name]
//	  [Cat] -> [name]
//	  [Dog] -> [name barkVolume]
func (tc *TypeCase) String() string {
	var b strings.Builder
	b.WriteString("TypeCase\n")
	fmt.Fprintf(&b, "  default -> %v\n", fieldNames(tc.def))
	for _, r := range tc.Records() {
		fmt.Fprintf(&b, "  %v -> %v\n", ir.TypeNames(r.PossibleTypes), fieldNames(r))
	}
	return b.String()
}

func fieldNames(r *Record) []string {
	names := make([]string, 0, r.Len())
	for _, f := range r.fields.AllFromFront() {
		names = append(names, f.Name)
	}
	return names
}
