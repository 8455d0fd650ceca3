// Package registry indexes a directory of schema documents by title.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/lychee-technology/astroschema/jsontree"
)

// ErrSchemaNotFound is returned when a title is not indexed.
var ErrSchemaNotFound = errors.New("schema not found")

// Registry serves the schema documents found in one directory.
// Lookups return copies; the registry itself is read-only after load.
type Registry struct {
	mu      sync.RWMutex
	fsys    fs.FS
	dir     string
	index   *Index
	schemas map[string]*jsontree.Object
}

// Open loads every schema file in dir.
func Open(dir string) (*Registry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("schema path %s is not a directory", dir)
	}
	r, err := OpenFS(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	r.dir = dir
	return r, nil
}

// OpenFS loads every schema file at the root of fsys.
func OpenFS(fsys fs.FS) (*Registry, error) {
	r := &Registry{fsys: fsys}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload rebuilds the index from the underlying files.
func (r *Registry) Reload() error {
	version, err := ReadVersion(r.fsys)
	if err != nil {
		return err
	}
	index, schemas, err := build(r.fsys, version)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.index = index
	r.schemas = schemas
	r.mu.Unlock()

	zap.S().Infow("loaded schema registry", "dir", r.dir, "schemas", len(index.Entries), "version", version)
	return nil
}

// Dir is the directory the registry was opened from, or "" for an fs.FS.
func (r *Registry) Dir() string {
	return r.dir
}

// FS returns the filesystem the schemas are read from.
func (r *Registry) FS() fs.FS {
	return r.fsys
}

// Version is the package version recorded in the VERSION file.
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Version
}

// Index returns a copy of the current index.
func (r *Registry) Index() *Index {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := *r.index
	out.Entries = append([]Entry(nil), r.index.Entries...)
	return &out
}

// Titles lists the indexed titles in index order.
func (r *Registry) Titles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Titles()
}

// Has reports whether title is indexed.
func (r *Registry) Has(title string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemas[title]
	return ok
}

// Lookup returns a copy of the document indexed under title and its entry.
func (r *Registry) Lookup(title string) (*jsontree.Object, Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tree, ok := r.schemas[title]
	if !ok {
		return nil, Entry{}, fmt.Errorf("%w: %s", ErrSchemaNotFound, title)
	}
	entry, _ := r.index.Lookup(title)
	return jsontree.CloneObject(tree), entry, nil
}

// ReadFile reads a file relative to the registry root, so sibling
// references resolve inside the registry filesystem.
func (r *Registry) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(r.fsys, name)
}
