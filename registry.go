package astroschema

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/lychee-technology/astroschema/internal/registry"
	"github.com/lychee-technology/astroschema/internal/validator"
)

//go:embed schema/*.json schema/VERSION
var bundled embed.FS

// SchemaIndex summarizes a schema directory: every title with its file,
// version and modification time, plus the package version.
type SchemaIndex = registry.Index

// IndexEntry is one title of a SchemaIndex.
type IndexEntry = registry.Entry

// Registry resolves schema titles to documents.
type Registry struct {
	reg *registry.Registry
}

// NewRegistry indexes the schema files in dir.
func NewRegistry(dir string) (*Registry, error) {
	reg, err := registry.Open(dir)
	if err != nil {
		return nil, schemaFileError(err)
	}
	return &Registry{reg: reg}, nil
}

// NewRegistryFS indexes the schema files at the root of fsys.
func NewRegistryFS(fsys fs.FS) (*Registry, error) {
	reg, err := registry.OpenFS(fsys)
	if err != nil {
		return nil, schemaFileError(err)
	}
	return &Registry{reg: reg}, nil
}

var (
	bundledOnce     sync.Once
	bundledRegistry *Registry
	bundledErr      error
)

// BundledRegistry serves the schema set compiled into the package.
func BundledRegistry() (*Registry, error) {
	bundledOnce.Do(func() {
		sub, err := BundledFS()
		if err != nil {
			bundledErr = err
			return
		}
		bundledRegistry, bundledErr = NewRegistryFS(sub)
	})
	return bundledRegistry, bundledErr
}

// BundledFS is the bundled schema directory.
func BundledFS() (fs.FS, error) {
	sub, err := fs.Sub(bundled, "schema")
	if err != nil {
		return nil, fmt.Errorf("failed to open bundled schemas: %w", err)
	}
	return sub, nil
}

// Resolve loads nameOrPath as a file if one exists there, and otherwise
// looks it up as a title.
func (r *Registry) Resolve(nameOrPath string) (*SchemaDocument, error) {
	if info, err := os.Stat(nameOrPath); err == nil && !info.IsDir() {
		return LoadSchemaFile(nameOrPath, WithRegistry(r))
	}
	tree, entry, err := r.reg.Lookup(nameOrPath)
	if err != nil {
		return nil, NewSchemaNotFoundError(nameOrPath).WithCause(err)
	}
	opts := []LoadOption{WithRegistry(r)}
	if dir := r.reg.Dir(); dir != "" {
		opts = append(opts, WithBaseDir(dir))
	} else {
		opts = append(opts, withReadFile(r.reg.ReadFile))
	}
	return newDocument(tree, entry.Filename, applyLoadOptions(opts))
}

// Titles lists the indexed titles.
func (r *Registry) Titles() []string {
	return r.reg.Titles()
}

// Has reports whether title is indexed.
func (r *Registry) Has(title string) bool {
	return r.reg.Has(title)
}

// Version is the schema set's package version.
func (r *Registry) Version() string {
	return r.reg.Version()
}

// Index returns a copy of the registry's index.
func (r *Registry) Index() *SchemaIndex {
	return r.reg.Index()
}

// Dir is the directory the registry reads, or "" for an fs.FS.
func (r *Registry) Dir() string {
	return r.reg.Dir()
}

// FS is the filesystem the registry reads.
func (r *Registry) FS() fs.FS {
	return r.reg.FS()
}

// Reload re-reads the schema files.
func (r *Registry) Reload() error {
	return schemaFileError(r.reg.Reload())
}

// BuildIndex indexes the schema files in dir, failing on the first file
// that is not a valid schema.
func BuildIndex(dir string) (*SchemaIndex, error) {
	ix, err := registry.BuildIndex(os.DirFS(dir), "")
	if err != nil {
		return nil, schemaFileError(err)
	}
	return ix, nil
}

// CheckSchemaDir reports every invalid schema file in dir at once.
func CheckSchemaDir(dir string) error {
	return schemaFileError(registry.CheckAll(os.DirFS(dir)))
}

// WriteIndex writes ix to path in the index file format.
func WriteIndex(ix *SchemaIndex, path string) error {
	return registry.WriteIndex(ix, path)
}

// schemaFileError turns the file failures of the index builder into
// SchemaInvalidError values carrying the file name. Other errors, and
// unreadable files, pass through.
func schemaFileError(err error) error {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		var result *multierror.Error
		for _, e := range merr.Errors {
			result = multierror.Append(result, schemaFileError(e))
		}
		return result.ErrorOrNil()
	}
	var fe *registry.FileError
	if !errors.As(err, &fe) {
		return err
	}
	var e *Error
	switch fe.Kind {
	case registry.FileMalformed:
		e = NewSchemaInvalidError(ErrCodeMalformedJSON, fe.Error())
	case registry.FileInvalid:
		e = NewSchemaInvalidError(ErrCodeMetaSchemaViolation, fe.Error())
		var v *validator.ViolationError
		if errors.As(fe, &v) {
			e.Path = v.SchemaPath
		}
	default:
		return err
	}
	return e.WithDetail("filename", fe.Filename).WithCause(fe)
}
