package fixtures

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/astroschema/jsontree"
)

func writeCase(t *testing.T, dir, schema, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, schema), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, schema, name), []byte(content), 0o644))
}

// requireName accepts entries that carry a "name".
func requireName(schema string, entry *jsontree.Object) error {
	if !entry.Has("name") {
		return errors.New("name is required")
	}
	return nil
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeCase(t, dir, "source", "b.json", `{"valid": false, "entry": {}}`)
	writeCase(t, dir, "source", "a.json", `{"valid": true, "entry": {"name": "x"}}`)
	writeCase(t, dir, "entry", "z.json", `{"valid": true, "entry": {"name": "y"}}`)
	writeCase(t, dir, "entry", "notes.txt", `ignored`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	cases, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, cases, 3)

	names := make([]string, len(cases))
	for i, c := range cases {
		names[i] = c.Name()
	}
	assert.Equal(t, []string{"entry/z.json", "source/a.json", "source/b.json"}, names)
	assert.True(t, cases[1].Valid)
	assert.Equal(t, "x", cases[1].Entry.GetString("name"))
}

func TestLoadRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `{"valid": `},
		{"valid missing", `{"entry": {}}`},
		{"valid not bool", `{"valid": "yes", "entry": {}}`},
		{"entry not object", `{"valid": true, "entry": [1]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeCase(t, dir, "source", "bad.json", tt.content)
			_, err := Load(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "bad.json")
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	cases := []Case{
		{Schema: "s", File: "ok.json", Valid: true, Entry: jsontree.Pairs("name", "a")},
		{Schema: "s", File: "rejected.json", Valid: false, Entry: jsontree.NewObject(0)},
		{Schema: "s", File: "wrongly_valid.json", Valid: false, Entry: jsontree.Pairs("name", "b")},
		{Schema: "s", File: "wrongly_invalid.json", Valid: true, Entry: jsontree.NewObject(0)},
	}

	summary, err := Run(context.Background(), cases, requireName)
	assert.Equal(t, Summary{Passed: 2, Failed: 2}, summary)
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 2)

	var m *Mismatch
	require.ErrorAs(t, merr.Errors[0], &m)
	assert.Equal(t, "wrongly_valid.json", m.Case.File)
	assert.Equal(t, "s/wrongly_valid.json: expected invalid, but it passed", m.Error())

	require.ErrorAs(t, merr.Errors[1], &m)
	assert.Equal(t, "s/wrongly_invalid.json: expected valid, got: name is required", m.Error())
}

func TestRunDoesNotModifyCases(t *testing.T) {
	entry := jsontree.Pairs("name", "a")
	cases := []Case{{Schema: "s", File: "a.json", Valid: true, Entry: entry}}
	_, err := Run(context.Background(), cases, func(_ string, e *jsontree.Object) error {
		e.Set("injected", true)
		return nil
	})
	require.NoError(t, err)
	assert.False(t, entry.Has("injected"))
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cases := []Case{{Schema: "s", File: "a.json", Valid: true, Entry: jsontree.Pairs("name", "a")}}
	summary, err := Run(ctx, cases, requireName)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Summary{}, summary)
}
