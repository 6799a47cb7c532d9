package main

import (
	"fmt"

	"github.com/spf13/cobra"

	schema "github.com/hanpama/flatgraph/internal/schema"
)

func newSchemaCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the merged schema SDL",
		Long: `Load every schema file, apply type extensions and print the resulting schema
as a single SDL document.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sch, err := rootOpts.loadSchema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), schema.Render(sch))
			return err
		},
	}
}
