// Package fixtures runs example records against their schemas. A fixture
// directory holds one sub-directory per schema title, each with JSON files
// shaped {"valid": bool, "entry": {...}}.
package fixtures

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/lychee-technology/astroschema/internal/telemetry"
	"github.com/lychee-technology/astroschema/jsontree"
)

// Case is one fixture file.
type Case struct {
	Schema string
	File   string
	Valid  bool
	Entry  *jsontree.Object
}

// Name is "<schema>/<file>".
func (c Case) Name() string {
	return c.Schema + "/" + c.File
}

// ValidateFunc checks entry against the schema titled schema.
type ValidateFunc func(schema string, entry *jsontree.Object) error

// Mismatch is a fixture whose outcome differs from its expectation.
type Mismatch struct {
	Case Case
	Err  error
}

func (m *Mismatch) Error() string {
	if m.Case.Valid {
		return fmt.Sprintf("%s: expected valid, got: %v", m.Case.Name(), m.Err)
	}
	return fmt.Sprintf("%s: expected invalid, but it passed", m.Case.Name())
}

func (m *Mismatch) Unwrap() error {
	return m.Err
}

// Summary counts the outcome of a run.
type Summary struct {
	Passed int
	Failed int
}

// Load reads every case below dir, ordered by schema and file name. A
// file that cannot be parsed fails the load.
func Load(dir string) ([]Case, error) {
	schemas, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures directory: %w", err)
	}

	var cases []Case
	for _, s := range schemas {
		if !s.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(dir, s.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read fixtures for %s: %w", s.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() || !strings.EqualFold(filepath.Ext(f.Name()), ".json") {
				continue
			}
			c, err := loadCase(filepath.Join(dir, s.Name(), f.Name()))
			if err != nil {
				return nil, err
			}
			c.Schema = s.Name()
			c.File = f.Name()
			cases = append(cases, c)
		}
	}
	sort.SliceStable(cases, func(i, j int) bool {
		if cases[i].Schema != cases[j].Schema {
			return cases[i].Schema < cases[j].Schema
		}
		return cases[i].File < cases[j].File
	})
	return cases, nil
}

func loadCase(path string) (Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Case{}, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}
	doc, err := jsontree.DecodeObject(data)
	if err != nil {
		return Case{}, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	raw, _ := doc.Get("valid")
	valid, ok := raw.(bool)
	if !ok {
		return Case{}, fmt.Errorf("fixture %s: \"valid\" must be a boolean", path)
	}
	entry := doc.GetObject("entry")
	if entry == nil {
		return Case{}, fmt.Errorf("fixture %s: \"entry\" must be an object", path)
	}
	return Case{Valid: valid, Entry: entry}, nil
}

// Run validates every case and keeps going after mismatches. The returned
// error aggregates one *Mismatch per failing case.
func Run(ctx context.Context, cases []Case, validate ValidateFunc) (Summary, error) {
	var (
		summary Summary
		result  *multierror.Error
	)
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		err := validate(c.Schema, jsontree.CloneObject(c.Entry))
		passed := (err == nil) == c.Valid
		telemetry.EmitFixtureResult(ctx, c.Schema, passed)
		if passed {
			summary.Passed++
			zap.S().Debugw("fixture passed", "fixture", c.Name(), "valid", c.Valid)
			continue
		}
		summary.Failed++
		zap.S().Warnw("fixture failed", "fixture", c.Name(), "valid", c.Valid, "err", err)
		result = multierror.Append(result, &Mismatch{Case: c, Err: err})
	}
	zap.S().Infow("fixtures finished", "passed", summary.Passed, "failed", summary.Failed)
	return summary, result.ErrorOrNil()
}
