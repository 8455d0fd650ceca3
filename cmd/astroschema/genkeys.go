package main

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lychee-technology/astroschema"
)

type genKeysOptions struct {
	output string
	pkg    string
}

func newGenKeysCommand(a *app) *cobra.Command {
	opts := genKeysOptions{}
	cmd := &cobra.Command{
		Use:   "gen-keys",
		Short: "Generate Go constants for the property names of every schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.registry(cmd)
			if err != nil {
				return err
			}
			src, err := generateKeys(reg, opts.pkg)
			if err != nil {
				return err
			}
			if opts.output == "" {
				_, err = cmd.OutOrStdout().Write(src)
				return err
			}
			return os.WriteFile(opts.output, src, 0o644)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&opts.pkg, "package", "astroschema", "Package name of the generated file")
	return cmd
}

var initialisms = map[string]string{
	"id":  "ID",
	"url": "URL",
}

// constName joins a schema title and a property key into an exported name,
// "photometry" and "u_time" giving "PhotometryUTime".
func constName(title, key string) string {
	var b strings.Builder
	for _, part := range strings.Split(title+"_"+key, "_") {
		if part == "" {
			continue
		}
		if s, ok := initialisms[part]; ok {
			b.WriteString(s)
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	return b.String()
}

func generateKeys(reg *astroschema.Registry, pkg string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("// Code generated by astroschema gen-keys. DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n", pkg)

	for _, title := range reg.Titles() {
		doc, err := reg.Resolve(title)
		if err != nil {
			return nil, err
		}
		props := doc.Properties()
		if props == nil || props.Len() == 0 {
			continue
		}
		fmt.Fprintf(&buf, "\n// Keys of the %s schema.\nconst (\n", title)
		for _, key := range props.Keys() {
			fmt.Fprintf(&buf, "%s = %s\n", constName(title, key), strconv.Quote(key))
		}
		buf.WriteString(")\n")
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format generated keys: %w", err)
	}
	return src, nil
}
