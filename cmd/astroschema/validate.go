package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/lychee-technology/astroschema/internal/registry"
)

func newValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema> <file>...",
		Short: "Validate JSON or YAML records against a schema title or file",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, a, args[0], args[1:])
		},
	}
}

func runValidate(cmd *cobra.Command, a *app, schema string, files []string) error {
	reg, err := a.registry(cmd)
	if err != nil {
		return err
	}
	doc, err := reg.Resolve(schema)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var result *multierror.Error
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to read %s: %w", file, err))
			continue
		}
		record, err := registry.DecodeFile(file, data)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to parse %s: %w", file, err))
			continue
		}
		if err := doc.Validate(record); err != nil {
			fmt.Fprintf(out, "%s: invalid\n", file)
			result = multierror.Append(result, fmt.Errorf("%s: %w", file, err))
			continue
		}
		fmt.Fprintf(out, "%s: valid\n", file)
	}
	return result.ErrorOrNil()
}
