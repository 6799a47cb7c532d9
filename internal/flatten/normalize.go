package flatten

import (
	ir "github.com/hanpama/flatgraph/internal/ir"
)

// InlineRedundantTypeConditions splices the selections of every top-level
// type condition that covers all of ss.PossibleTypes into ss, in place of the
// condition. Nested selection sets are not touched. ss itself is not
// modified.
func InlineRedundantTypeConditions(ss *ir.SelectionSet) *ir.SelectionSet {
	out := &ir.SelectionSet{
		PossibleTypes: ss.PossibleTypes,
		Selections:    make([]ir.Selection, 0, len(ss.Selections)),
	}
	for _, sel := range ss.Selections {
		if cond, ok := sel.(*ir.TypeCondition); ok && ir.CoversTypes(cond.SelectionSet.PossibleTypes, ss.PossibleTypes) {
			out.Selections = append(out.Selections, cond.SelectionSet.Selections...)
			continue
		}
		out.Selections = append(out.Selections, sel)
	}
	return out
}
