package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lychee-technology/astroschema/jsontree"
)

func newInlineCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inline <schema>",
		Short: "Print a schema with references inlined and formats lowered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry(cmd)
			if err != nil {
				return err
			}
			doc, err := reg.Resolve(args[0])
			if err != nil {
				return err
			}
			tree, err := doc.Validator().Compiled()
			if err != nil {
				return err
			}
			data, err := jsontree.MarshalIndent(tree, "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
