package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	ir "github.com/hanpama/flatgraph/internal/ir"
	legacyir "github.com/hanpama/flatgraph/internal/legacyir"
)

func newInspectCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [name...]",
		Short: "Print the per-type records of operations and fragments",
		Long: `Print the per-type records of every operation and fragment, or only of the
named ones.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, cmd, args)
		},
	}
}

func runInspect(opts *rootOptions, cmd *cobra.Command, names []string) error {
	c, err := opts.compile(cmd.Context())
	if err != nil {
		return err
	}
	selected := func(name string) bool { return len(names) == 0 || slices.Contains(names, name) }

	w := cmd.OutOrStdout()
	var errs []error
	show := func(kind, name string, ss *ir.SelectionSet) {
		tc, err := legacyir.Flatten(c, ss, opts.transformOptions())
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %q: %w", kind, name, err))
			return
		}
		fmt.Fprintf(w, "%s %s\n%s\n", kind, name, tc)
	}
	for _, op := range c.Operations {
		if selected(op.OperationName) {
			show("operation", op.OperationName, op.SelectionSet)
		}
	}
	for _, frag := range c.Fragments {
		if selected(frag.FragmentName) {
			show("fragment", frag.FragmentName, frag.SelectionSet)
		}
	}
	if len(errs) > 0 {
		return failure(errors.Join(errs...))
	}
	return nil
}
