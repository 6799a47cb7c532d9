package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	schema "github.com/hanpama/flatgraph/internal/schema"
)

// MergeInFragmentSpreads replaces every fragment spread in ss with a type
// condition over the fragment's selections. Possible types are intersected
// with the enclosing scope at every level, so no nested type condition
// reaches outside ss.PossibleTypes. Nested field selection sets are left
// alone; they are merged when they are flattened themselves.
//
// An unknown fragment or a fragment cycle panics.
func MergeInFragmentSpreads(c *Context, ss *SelectionSet) *SelectionSet {
	return mergeSelections(c, ss.Selections, ss.PossibleTypes, nil)
}

func mergeSelections(c *Context, selections []Selection, scope []*schema.Type, visiting []string) *SelectionSet {
	out := &SelectionSet{PossibleTypes: scope, Selections: make([]Selection, 0, len(selections))}
	for _, sel := range selections {
		switch sel := sel.(type) {
		case *Field:
			out.Selections = append(out.Selections, sel)
		case *FragmentSpread:
			frag := c.FragmentNamed(sel.FragmentName)
			if frag == nil {
				panic(fmt.Sprintf("ir: cannot find fragment %q", sel.FragmentName))
			}
			if slices.Contains(visiting, frag.FragmentName) {
				panic(fmt.Sprintf("ir: fragment cycle through %q", frag.FragmentName))
			}
			narrowed := IntersectTypes(frag.SelectionSet.PossibleTypes, scope)
			out.Selections = append(out.Selections, &TypeCondition{
				Type:         frag.Type,
				SelectionSet: mergeSelections(c, frag.SelectionSet.Selections, narrowed, append(slices.Clip(visiting), frag.FragmentName)),
			})
		case *TypeCondition:
			narrowed := IntersectTypes(sel.SelectionSet.PossibleTypes, scope)
			out.Selections = append(out.Selections, &TypeCondition{
				Type:         sel.Type,
				SelectionSet: mergeSelections(c, sel.SelectionSet.Selections, narrowed, visiting),
			})
		case *BooleanCondition:
			out.Selections = append(out.Selections, &BooleanCondition{
				Condition:    sel.Condition,
				SelectionSet: mergeSelections(c, sel.SelectionSet.Selections, scope, visiting),
			})
		}
	}
	return out
}

// CollectFragmentsReferenced returns the names of every fragment reachable
// from ss, directly or through other fragments, in order of first reference.
func CollectFragmentsReferenced(c *Context, ss *SelectionSet) []string {
	var names []string
	seen := make(map[string]bool)
	collectFragmentsReferenced(c, ss, seen, &names)
	return names
}

func collectFragmentsReferenced(c *Context, ss *SelectionSet, seen map[string]bool, names *[]string) {
	if ss == nil {
		return
	}
	for _, sel := range ss.Selections {
		switch sel := sel.(type) {
		case *Field:
			collectFragmentsReferenced(c, sel.SelectionSet, seen, names)
		case *TypeCondition:
			collectFragmentsReferenced(c, sel.SelectionSet, seen, names)
		case *BooleanCondition:
			collectFragmentsReferenced(c, sel.SelectionSet, seen, names)
		case *FragmentSpread:
			if seen[sel.FragmentName] {
				continue
			}
			seen[sel.FragmentName] = true
			*names = append(*names, sel.FragmentName)
			frag := c.FragmentNamed(sel.FragmentName)
			if frag == nil {
				panic(fmt.Sprintf("ir: cannot find fragment %q", sel.FragmentName))
			}
			collectFragmentsReferenced(c, frag.SelectionSet, seen, names)
		}
	}
}

// GenerateOperationID returns the operation source followed by the sources
// of the given fragments, and the hex SHA-256 of that text.
func GenerateOperationID(c *Context, op *Operation, fragmentsReferenced []string) (sourceWithFragments, operationID string) {
	parts := make([]string, 0, len(fragmentsReferenced)+1)
	parts = append(parts, op.Source)
	for _, name := range fragmentsReferenced {
		frag := c.FragmentNamed(name)
		if frag == nil {
			panic(fmt.Sprintf("ir: cannot find fragment %q", name))
		}
		parts = append(parts, frag.Source)
	}
	sourceWithFragments = strings.Join(parts, "\n")
	sum := sha256.Sum256([]byte(sourceWithFragments))
	return sourceWithFragments, hex.EncodeToString(sum[:])
}
