package legacyir

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	eventbus "github.com/hanpama/flatgraph/internal/eventbus"
	events "github.com/hanpama/flatgraph/internal/events"
	flatten "github.com/hanpama/flatgraph/internal/flatten"
	ir "github.com/hanpama/flatgraph/internal/ir"
	schema "github.com/hanpama/flatgraph/internal/schema"
)

type Options struct {
	// MergeInFieldsFromFragmentSpreads flattens the fields of spread
	// fragments into the selection set that spreads them.
	MergeInFieldsFromFragmentSpreads bool `json:"mergeInFieldsFromFragmentSpreads"`
	// InlineRedundantTypeConditions removes type conditions that do not
	// narrow their enclosing selection set before flattening.
	InlineRedundantTypeConditions bool `json:"inlineRedundantTypeConditions"`
}

func DefaultOptions() Options {
	return Options{MergeInFieldsFromFragmentSpreads: true, InlineRedundantTypeConditions: true}
}

// Transform flattens every operation and fragment of c. Operations and
// fragments are flattened independently: when one of them violates the
// flattening contract, the returned error names it and the returned context
// still holds all the others.
func Transform(ctx context.Context, c *ir.Context, opts Options) (_ *CompilerContext, err error) {
	start := time.Now()
	eventbus.Publish(ctx, events.TransformStart{Operations: len(c.Operations), Fragments: len(c.Fragments)})
	defer func() {
		eventbus.Publish(ctx, events.TransformFinish{
			Operations: len(c.Operations),
			Fragments:  len(c.Fragments),
			Err:        err,
			Duration:   time.Since(start),
		})
	}()

	t := &transformer{context: c, options: opts}
	out := &CompilerContext{
		Operations: make(map[string]*Operation, len(c.Operations)),
		Fragments:  make(map[string]*Fragment, len(c.Fragments)),
		TypesUsed:  make([]string, 0, len(c.TypesUsed)),
		Options:    opts,
	}
	var errs []error
	for _, op := range c.Operations {
		legacy, err := t.transformOperation(ctx, op)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out.Operations[op.OperationName] = legacy
	}
	for _, frag := range c.Fragments {
		legacy, err := t.transformFragment(ctx, frag)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out.Fragments[frag.FragmentName] = legacy
	}
	for _, typ := range c.TypesUsed {
		out.TypesUsed = append(out.TypesUsed, typ.Name)
	}
	return out, errors.Join(errs...)
}

type transformer struct {
	context *ir.Context
	options Options
}

func (t *transformer) transformOperation(ctx context.Context, op *ir.Operation) (out *Operation, err error) {
	defer recoverContractViolation(&err, "operation", op.OperationName)

	fragmentsReferenced := ir.CollectFragmentsReferenced(t.context, op.SelectionSet)
	sourceWithFragments, operationID := ir.GenerateOperationID(t.context, op, fragmentsReferenced)
	selections, tc := t.transformSelectionSet(op.SelectionSet)
	publishFlattened(ctx, "operation", op.OperationName, tc)

	if fragmentsReferenced == nil {
		fragmentsReferenced = []string{}
	}
	variables := op.Variables
	if variables == nil {
		variables = []*ir.Variable{}
	}
	return &Operation{
		FilePath:            op.FilePath,
		OperationName:       op.OperationName,
		OperationType:       string(op.OperationType),
		RootType:            op.RootType.Name,
		Variables:           variables,
		Source:              op.Source,
		Fields:              selections.Fields,
		FragmentSpreads:     selections.FragmentSpreads,
		InlineFragments:     selections.InlineFragments,
		FragmentsReferenced: fragmentsReferenced,
		SourceWithFragments: sourceWithFragments,
		OperationID:         operationID,
	}, nil
}

func (t *transformer) transformFragment(ctx context.Context, frag *ir.Fragment) (out *Fragment, err error) {
	defer recoverContractViolation(&err, "fragment", frag.FragmentName)

	selections, tc := t.transformSelectionSet(frag.SelectionSet)
	publishFlattened(ctx, "fragment", frag.FragmentName, tc)
	return &Fragment{
		FilePath:        frag.FilePath,
		FragmentName:    frag.FragmentName,
		Source:          frag.Source,
		TypeCondition:   frag.Type.Name,
		PossibleTypes:   ir.TypeNames(frag.SelectionSet.PossibleTypes),
		Fields:          selections.Fields,
		FragmentSpreads: selections.FragmentSpreads,
		InlineFragments: selections.InlineFragments,
	}, nil
}

// FlattenOptions returns the TypeCase options matching opts.
func FlattenOptions(opts Options) []flatten.Option {
	if opts.InlineRedundantTypeConditions {
		return []flatten.Option{flatten.WithInlineRedundantTypeConditions()}
	}
	return nil
}

// NewTypeCase flattens ss the way Transform does, merging in fragment
// spreads first when opts asks for it.
func NewTypeCase(c *ir.Context, ss *ir.SelectionSet, opts Options) *flatten.TypeCase {
	if opts.MergeInFieldsFromFragmentSpreads {
		ss = ir.MergeInFragmentSpreads(c, ss)
	}
	return flatten.NewTypeCase(ss, FlattenOptions(opts)...)
}

func (t *transformer) transformSelectionSet(ss *ir.SelectionSet) (*Selections, *flatten.TypeCase) {
	tc := NewTypeCase(t.context, ss, t.options)
	out := &Selections{
		Fields:          t.transformFields(tc.Default().Fields()),
		FragmentSpreads: collectFragmentSpreads(ss, ss.PossibleTypes),
		InlineFragments: []*InlineFragment{},
	}
	for _, r := range tc.Records() {
		if ir.CoversTypes(r.PossibleTypes, ss.PossibleTypes) || r.Len() == 0 {
			continue
		}
		fields := t.transformFields(r.Fields())
		spreads := collectFragmentSpreads(ss, r.PossibleTypes)
		for _, pt := range r.PossibleTypes {
			out.InlineFragments = append(out.InlineFragments, &InlineFragment{
				TypeCondition:   pt.Name,
				PossibleTypes:   []string{pt.Name},
				Fields:          fields,
				FragmentSpreads: spreads,
			})
		}
	}
	return out, tc
}

func (t *transformer) transformFields(fields []*ir.Field) []*Field {
	out := make([]*Field, 0, len(fields))
	for _, f := range fields {
		lf := &Field{
			ResponseName:      f.ResponseKey,
			FieldName:         f.Name,
			Type:              f.Type,
			Args:              f.Args,
			IsConditional:     f.IsConditional,
			Description:       f.Description,
			IsDeprecated:      f.IsDeprecated,
			DeprecationReason: f.DeprecationReason,
		}
		for _, c := range f.Conditions {
			lf.Conditions = append(lf.Conditions, Condition{
				Kind:         "BooleanCondition",
				VariableName: c.VariableName,
				Inverted:     c.Inverted,
			})
		}
		if f.SelectionSet != nil {
			lf.Selections, _ = t.transformSelectionSet(f.SelectionSet)
		}
		out = append(out, lf)
	}
	return out
}

// collectFragmentSpreads returns the fragments spread in ss that apply to
// every type in possibleTypes: spreads at this level, under boolean
// conditions, and under type conditions covering possibleTypes.
func collectFragmentSpreads(ss *ir.SelectionSet, possibleTypes []*schema.Type) []string {
	names := []string{}
	for _, sel := range ss.Selections {
		switch sel := sel.(type) {
		case *ir.FragmentSpread:
			names = append(names, sel.FragmentName)
		case *ir.TypeCondition:
			if ir.CoversTypes(sel.SelectionSet.PossibleTypes, possibleTypes) {
				names = append(names, collectFragmentSpreads(sel.SelectionSet, possibleTypes)...)
			}
		case *ir.BooleanCondition:
			names = append(names, collectFragmentSpreads(sel.SelectionSet, possibleTypes)...)
		}
	}
	return names
}

func publishFlattened(ctx context.Context, kind, name string, tc *flatten.TypeCase) {
	records := len(tc.Records())
	slog.Debug("selection set flattened", "kind", kind, "name", name,
		"possibleTypes", len(tc.PossibleTypes()), "records", records)
	eventbus.Publish(ctx, events.SelectionSetFlattened{
		Kind:          kind,
		Name:          name,
		PossibleTypes: len(tc.PossibleTypes()),
		Records:       records,
	})
}

// recoverContractViolation turns a panic raised while flattening one
// operation or fragment into an error for it.
func recoverContractViolation(err *error, kind, name string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s %q: %v", kind, name, r)
	}
}

// Flatten is NewTypeCase reporting a contract violation as an error.
func Flatten(c *ir.Context, ss *ir.SelectionSet, opts Options) (tc *flatten.TypeCase, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return NewTypeCase(c, ss, opts), nil
}
