package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/lychee-technology/astroschema/internal/telemetry"
	"github.com/lychee-technology/astroschema/internal/validator"
	"github.com/lychee-technology/astroschema/jsontree"
)

// Index file layout.
const (
	IndexFilename    = "astroschema_index.json"
	IndexDescription = "Index and summary of schema included in `astroschema`."
	VersionFilename  = "VERSION"
)

// Entry summarizes one schema file.
type Entry struct {
	Title       string
	Description string
	Filename    string
	Version     string
	Updated     time.Time
	Size        int64
}

// Index maps schema titles to their summaries, in file order.
type Index struct {
	Description string
	Filename    string
	Version     string
	Updated     time.Time
	Entries     []Entry
}

// Lookup returns the entry for title.
func (ix *Index) Lookup(title string) (Entry, bool) {
	for _, e := range ix.Entries {
		if e.Title == title {
			return e, true
		}
	}
	return Entry{}, false
}

// Titles lists the indexed titles in index order.
func (ix *Index) Titles() []string {
	out := make([]string, len(ix.Entries))
	for i, e := range ix.Entries {
		out[i] = e.Title
	}
	return out
}

// Tree renders the index in its file format.
func (ix *Index) Tree() *jsontree.Object {
	entries := jsontree.NewObject(len(ix.Entries))
	for _, e := range ix.Entries {
		item := jsontree.NewObject(4)
		item.Set("description", e.Description)
		item.Set("filename", e.Filename)
		item.Set("version", e.Version)
		item.Set("updated", formatTime(e.Updated))
		entries.Set(e.Title, item)
	}
	out := jsontree.NewObject(6)
	out.Set("title", "astroschema")
	out.Set("description", ix.Description)
	out.Set("filename", ix.Filename)
	out.Set("version", ix.Version)
	out.Set("updated", formatTime(ix.Updated))
	out.Set("index", entries)
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// FileErrorKind classifies a FileError.
type FileErrorKind int

const (
	// FileUnreadable is a file that could not be read.
	FileUnreadable FileErrorKind = iota
	// FileMalformed is a file that is not a JSON or YAML object.
	FileMalformed
	// FileInvalid is a parsed file that is not a usable schema.
	FileInvalid
)

// FileError names the schema file that failed to load.
type FileError struct {
	Filename string
	Kind     FileErrorKind
	Err      error
}

func (e *FileError) Error() string {
	if e.Kind == FileMalformed {
		return fmt.Sprintf("schema file %s: malformed: %v", e.Filename, e.Err)
	}
	return fmt.Sprintf("schema file %s: %v", e.Filename, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// IsSchemaFile reports whether name has one of the accepted extensions.
func IsSchemaFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return name != IndexFilename
	}
	return false
}

// ListSchemaFiles returns the sorted schema file names at the root of fsys.
func ListSchemaFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && IsSchemaFile(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// DecodeFile parses a JSON or YAML schema file.
func DecodeFile(name string, data []byte) (*jsontree.Object, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return jsontree.DecodeYAML(data)
	default:
		return jsontree.DecodeObject(data)
	}
}

// ReadVersion reads the package version file from fsys, or "" if absent.
func ReadVersion(fsys fs.FS) (string, error) {
	data, err := fs.ReadFile(fsys, VersionFilename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read version file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

type loadedSchema struct {
	entry Entry
	tree  *jsontree.Object
}

func loadSchemaFile(fsys fs.FS, name string) (loadedSchema, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return loadedSchema{}, &FileError{Filename: name, Err: err}
	}
	tree, err := DecodeFile(name, data)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return loadedSchema{}, &FileError{Filename: name, Kind: FileMalformed, Err: err}
	}
	if err := validator.CheckSchema(tree); err != nil {
		return loadedSchema{}, &FileError{Filename: name, Kind: FileInvalid, Err: err}
	}
	title := tree.GetString("title")
	if title == "" {
		return loadedSchema{}, &FileError{Filename: name, Kind: FileInvalid, Err: errors.New("missing title")}
	}

	entry := Entry{
		Title:       title,
		Description: tree.GetString("description"),
		Filename:    name,
		Version:     scalarString(tree, "version"),
		Size:        int64(len(data)),
	}
	if info, err := fs.Stat(fsys, name); err == nil {
		entry.Updated = info.ModTime()
	}
	return loadedSchema{entry: entry, tree: tree}, nil
}

func scalarString(obj *jsontree.Object, key string) string {
	v, ok := obj.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// build loads every schema file in fsys, stopping at the first bad one.
func build(fsys fs.FS, version string) (*Index, map[string]*jsontree.Object, error) {
	names, err := ListSchemaFiles(fsys)
	if err != nil {
		return nil, nil, err
	}

	index := &Index{
		Description: IndexDescription,
		Filename:    IndexFilename,
		Version:     version,
		Updated:     time.Now(),
		Entries:     make([]Entry, 0, len(names)),
	}
	trees := make(map[string]*jsontree.Object, len(names))
	for _, name := range names {
		loaded, err := loadSchemaFile(fsys, name)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := trees[loaded.entry.Title]; dup {
			return nil, nil, &FileError{Filename: name, Kind: FileInvalid, Err: fmt.Errorf("duplicate title %q", loaded.entry.Title)}
		}
		trees[loaded.entry.Title] = loaded.tree
		index.Entries = append(index.Entries, loaded.entry)
		zap.S().Debugw("indexed schema", "title", loaded.entry.Title, "file", name, "version", loaded.entry.Version)
	}
	telemetry.EmitIndexBuild(context.Background(), "fs", len(names))
	return index, trees, nil
}

// BuildIndex indexes every schema file in fsys. The package version is read
// from the VERSION file in fsys when version is empty.
func BuildIndex(fsys fs.FS, version string) (*Index, error) {
	if version == "" {
		v, err := ReadVersion(fsys)
		if err != nil {
			return nil, err
		}
		version = v
	}
	index, _, err := build(fsys, version)
	return index, err
}

// CheckAll loads every schema file in fsys and reports all failures
// instead of stopping at the first.
func CheckAll(fsys fs.FS) error {
	names, err := ListSchemaFiles(fsys)
	if err != nil {
		return err
	}
	var result *multierror.Error
	titles := make(map[string]string)
	for _, name := range names {
		loaded, err := loadSchemaFile(fsys, name)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if prev, dup := titles[loaded.entry.Title]; dup {
			result = multierror.Append(result, &FileError{Filename: name, Kind: FileInvalid, Err: fmt.Errorf("duplicate title %q (also in %s)", loaded.entry.Title, prev)})
			continue
		}
		titles[loaded.entry.Title] = name
	}
	return result.ErrorOrNil()
}

// WriteIndex writes index to path as 2-space indented JSON.
func WriteIndex(index *Index, path string) error {
	data, err := jsontree.MarshalIndent(index.Tree(), "  ")
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create index directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}
	zap.S().Infow("wrote schema index", "path", path, "schemas", len(index.Entries), "bytes", len(data))
	return nil
}
