package astroschema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bundledTitles = []string{"entry", "photometry", "quantity", "source", "spectrum"}

// copyBundled writes the bundled schema set into a fresh directory.
func copyBundled(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	entries, err := bundled.ReadDir("schema")
	require.NoError(t, err)
	for _, e := range entries {
		data, err := bundled.ReadFile("schema/" + e.Name())
		require.NoError(t, err)
		writeFile(t, dir, e.Name(), string(data))
	}
	return dir
}

func TestBundledRegistry(t *testing.T) {
	reg, err := BundledRegistry()
	require.NoError(t, err)

	assert.Equal(t, bundledTitles, reg.Titles())
	assert.Equal(t, "0.3.0", reg.Version())
	assert.Equal(t, "", reg.Dir())
	assert.True(t, reg.Has("source"))
	assert.False(t, reg.Has("source.json"))

	entry, ok := reg.Index().Lookup("spectrum")
	require.True(t, ok)
	assert.Equal(t, "spectrum.json", entry.Filename)
	assert.Equal(t, "0.3", entry.Version)
}

func TestRegistryResolve(t *testing.T) {
	dir := copyBundled(t)
	reg, err := NewRegistry(dir)
	require.NoError(t, err)
	assert.Equal(t, bundledTitles, reg.Titles())

	doc, err := reg.Resolve("entry")
	require.NoError(t, err)
	assert.Equal(t, dir, doc.BaseDir())
	assert.Equal(t, "entry.json", doc.Filename())

	// Cross-file references resolve against the registry directory.
	_, err = doc.Validator().Compiled()
	require.NoError(t, err)

	doc, err = reg.Resolve(filepath.Join(dir, "source.json"))
	require.NoError(t, err)
	assert.Equal(t, "source", doc.Title())

	_, err = reg.Resolve("galaxy")
	require.Error(t, err)
	assert.True(t, IsSchemaNotFoundError(err))

	doc, err = LoadSchema("quantity", WithRegistry(reg))
	require.NoError(t, err)
	assert.Equal(t, dir, doc.BaseDir())
}

func TestRegistryReload(t *testing.T) {
	dir := copyBundled(t)
	reg, err := NewRegistry(dir)
	require.NoError(t, err)

	writeFile(t, dir, "galaxy.yaml", "title: galaxy\ntype: object\n")
	assert.False(t, reg.Has("galaxy"))
	require.NoError(t, reg.Reload())
	assert.True(t, reg.Has("galaxy"))
}

func TestBuildAndWriteIndex(t *testing.T) {
	dir := copyBundled(t)

	ix, err := BuildIndex(dir)
	require.NoError(t, err)
	assert.Equal(t, bundledTitles, ix.Titles())
	assert.Equal(t, "0.3.0", ix.Version)

	path := filepath.Join(dir, "astroschema_index.json")
	require.NoError(t, WriteIndex(ix, path))

	// The index file itself is never taken for a schema.
	again, err := BuildIndex(dir)
	require.NoError(t, err)
	assert.Equal(t, ix.Titles(), again.Titles())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title": "astroschema"`)
}

func TestCheckSchemaDir(t *testing.T) {
	dir := copyBundled(t)
	require.NoError(t, CheckSchemaDir(dir))

	writeFile(t, dir, "broken.json", `{"title": `)
	writeFile(t, dir, "untitled.json", `{"type": "object"}`)

	err := CheckSchemaDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.json")
	assert.Contains(t, err.Error(), "untitled.json")

	_, err = BuildIndex(dir)
	assert.Error(t, err)
}

func TestSchemaFileErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code string
	}{
		{"meta-schema violation", `{"title": "a", "type": 5}`, ErrCodeMetaSchemaViolation},
		{"truncated json", `{"title": "a",`, ErrCodeMalformedJSON},
		{"missing title", `{"type": "object"}`, ErrCodeMetaSchemaViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "a.json", tt.data)

			check := func(err error) {
				t.Helper()
				require.Error(t, err)
				assert.True(t, IsSchemaInvalidError(err), "got %v", err)
				e, ok := AsError(err)
				require.True(t, ok)
				assert.Equal(t, tt.code, e.Code)
				assert.Equal(t, "a.json", e.Details["filename"])
				assert.Contains(t, e.Error(), "a.json")
				assert.NotEqual(t, "EOF", e.Message)
			}

			_, err := BuildIndex(dir)
			check(err)
			_, err = NewRegistry(dir)
			check(err)
			check(CheckSchemaDir(dir))
		})
	}
}
