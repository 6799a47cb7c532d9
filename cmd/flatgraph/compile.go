package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	legacyir "github.com/hanpama/flatgraph/internal/legacyir"
)

type compileOptions struct {
	*rootOptions
	output string
}

func newCompileCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &compileOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Write the flattened operations and fragments as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout, or output from config)")
	return cmd
}

func (o *compileOptions) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	c, err := o.compile(ctx)
	if err != nil {
		return err
	}
	out, err := legacyir.Transform(ctx, c, o.transformOptions())
	return o.emit(cmd, out, err)
}

// emit writes out, which holds every operation and fragment that flattened,
// and then reports transformErr for the ones that did not.
func (o *compileOptions) emit(cmd *cobra.Command, out *legacyir.CompilerContext, transformErr error) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return commandError(fmt.Errorf("encode output: %w", err))
	}
	data = append(data, '\n')

	path := o.output
	if path == "" {
		path = o.cfg.Output
	}
	if path == "" {
		if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return commandError(err)
		}
	} else {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return commandError(fmt.Errorf("write output: %w", err))
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d operation(s), %d fragment(s) to %s\n",
			len(out.Operations), len(out.Fragments), path)
	}
	if transformErr != nil {
		return failure(transformErr)
	}
	return nil
}
