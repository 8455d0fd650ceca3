package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lychee-technology/astroschema"
	"github.com/lychee-technology/astroschema/internal/fixtures"
	"github.com/lychee-technology/astroschema/jsontree"
)

func newTestCommand(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run the fixture suites against their schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("fixtures") {
				dir = a.config.Registry.FixturesDir
			}
			return runTest(cmd, a, dir)
		},
	}
	cmd.Flags().StringVar(&dir, "fixtures", "", "Fixtures directory (default: registry.fixturesDir)")
	return cmd
}

func runTest(cmd *cobra.Command, a *app, dir string) error {
	reg, err := a.registry(cmd)
	if err != nil {
		return err
	}
	cases, err := fixtures.Load(dir)
	if err != nil {
		return err
	}

	docs := make(map[string]*astroschema.SchemaDocument)
	summary, runErr := fixtures.Run(cmd.Context(), cases, func(title string, entry *jsontree.Object) error {
		doc, ok := docs[title]
		if !ok {
			var err error
			if doc, err = reg.Resolve(title); err != nil {
				return err
			}
			docs[title] = doc
		}
		return doc.Validate(entry)
	})
	fmt.Fprintf(cmd.OutOrStdout(), "%d passed, %d failed\n", summary.Passed, summary.Failed)
	return runErr
}
