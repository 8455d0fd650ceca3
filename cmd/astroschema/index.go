package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lychee-technology/astroschema"
	"github.com/lychee-technology/astroschema/internal/registry"
)

type indexOptions struct {
	check  bool
	output string
}

func newIndexCommand(a *app) *cobra.Command {
	opts := indexOptions{}
	cmd := &cobra.Command{
		Use:   "index [dir]",
		Short: "Check the schema files of a directory and write its index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.schemaDir(args)
			if err != nil {
				return err
			}
			return runIndex(cmd, dir, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.check, "check", false, "Report every invalid schema file without writing the index")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Index file path (default: <dir>/"+registry.IndexFilename+")")
	return cmd
}

func runIndex(cmd *cobra.Command, dir string, opts indexOptions) error {
	out := cmd.OutOrStdout()
	if opts.check {
		if err := astroschema.CheckSchemaDir(dir); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: all schema files are valid\n", dir)
		return nil
	}

	ix, err := astroschema.BuildIndex(dir)
	if err != nil {
		return err
	}
	path := opts.output
	if path == "" {
		path = filepath.Join(dir, registry.IndexFilename)
	}
	if err := astroschema.WriteIndex(ix, path); err != nil {
		return err
	}
	fmt.Fprintf(out, "indexed %d schemas (version %s) into %s\n", len(ix.Entries), ix.Version, path)
	return nil
}
