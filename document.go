package astroschema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/lychee-technology/astroschema/internal/registry"
	"github.com/lychee-technology/astroschema/internal/validator"
	"github.com/lychee-technology/astroschema/jsontree"
)

// SchemaDocument is one JSON-Schema document. Its title is fixed once set;
// the rest of the tree changes only through Extend and Update, each of
// which advances Revision and keeps the tree a valid draft-07 schema.
type SchemaDocument struct {
	tree     *jsontree.Object
	baseDir  string
	filename string
	readFile validator.ReadFileFunc

	revision atomic.Uint64

	validatorOnce sync.Once
	validator     *FormatValidator
}

type loadOptions struct {
	registry *Registry
	baseDir  string
	readFile validator.ReadFileFunc
}

// LoadOption configures LoadSchema.
type LoadOption func(*loadOptions)

// WithRegistry resolves bare titles against r instead of the bundled schemas.
func WithRegistry(r *Registry) LoadOption {
	return func(o *loadOptions) {
		o.registry = r
	}
}

// WithBaseDir sets the directory sibling file references resolve against.
func WithBaseDir(dir string) LoadOption {
	return func(o *loadOptions) {
		o.baseDir = dir
	}
}

func withReadFile(fn validator.ReadFileFunc) LoadOption {
	return func(o *loadOptions) {
		o.readFile = fn
	}
}

func applyLoadOptions(opts []LoadOption) *loadOptions {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// LoadSchema builds a document from source, which may be nil (empty
// document), a *SchemaDocument (copied), a *jsontree.Object, a
// map[string]any, JSON bytes, or a string holding JSON text, a file path
// or a registry title, tried in that order.
func LoadSchema(source any, opts ...LoadOption) (*SchemaDocument, error) {
	o := applyLoadOptions(opts)
	switch src := source.(type) {
	case nil:
		return newDocument(jsontree.NewObject(0), "", o)
	case *SchemaDocument:
		if o.baseDir == "" {
			o.baseDir = src.baseDir
		}
		if o.readFile == nil {
			o.readFile = src.readFile
		}
		return newDocument(jsontree.CloneObject(src.tree), src.filename, o)
	case *jsontree.Object:
		if src == nil {
			return newDocument(jsontree.NewObject(0), "", o)
		}
		return newDocument(jsontree.CloneObject(src), "", o)
	case map[string]any:
		tree, _ := jsontree.FromValue(src).(*jsontree.Object)
		return newDocument(tree, "", o)
	case []byte:
		return loadBytes(src, "", o)
	case string:
		return loadString(src, o)
	default:
		return nil, NewSchemaTypeError(source)
	}
}

// LoadSchemaString parses s as a JSON schema document.
func LoadSchemaString(s string, opts ...LoadOption) (*SchemaDocument, error) {
	return loadBytes([]byte(s), "", applyLoadOptions(opts))
}

// LoadSchemaFile reads a JSON or YAML schema document from path. Sibling
// references resolve against the file's directory.
func LoadSchemaFile(path string, opts ...LoadOption) (*SchemaDocument, error) {
	return loadFile(path, applyLoadOptions(opts))
}

func loadFile(path string, o *loadOptions) (*SchemaDocument, error) {
	read := o.readFile
	if read == nil {
		read = os.ReadFile
	}
	data, err := read(path)
	if err != nil {
		return nil, NewSchemaNotFoundError(path).WithCause(err)
	}
	tree, err := registry.DecodeFile(path, data)
	if err != nil {
		return nil, NewSchemaInvalidError(ErrCodeMalformedJSON, "failed to parse schema file").
			WithCause(err).WithDetail("filename", path)
	}
	if o.baseDir == "" {
		o.baseDir = filepath.Dir(path)
	}
	zap.S().Debugw("loaded schema file", "path", path, "title", tree.GetString("title"))
	return newDocument(tree, filepath.Base(path), o)
}

// loadString treats s as JSON text, then as a file path, then as a title.
// JSON text that is not an object is a malformed schema.
func loadString(s string, o *loadOptions) (*SchemaDocument, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return loadBytes([]byte(s), "", o)
	}
	if info, err := os.Stat(s); err == nil && !info.IsDir() {
		return loadFile(s, o)
	}
	reg := o.registry
	if reg == nil {
		var err error
		if reg, err = BundledRegistry(); err != nil {
			return nil, err
		}
	}
	if !reg.Has(s) {
		if _, err := jsontree.Decode([]byte(trimmed)); err == nil {
			return loadBytes([]byte(s), "", o)
		}
	}
	return reg.Resolve(s)
}

func loadBytes(data []byte, filename string, o *loadOptions) (*SchemaDocument, error) {
	tree, err := jsontree.DecodeObject(data)
	if err != nil {
		return nil, NewSchemaInvalidError(ErrCodeMalformedJSON, "schema text is not a JSON object").WithCause(err)
	}
	return newDocument(tree, filename, o)
}

func newDocument(tree *jsontree.Object, filename string, o *loadOptions) (*SchemaDocument, error) {
	if tree == nil {
		tree = jsontree.NewObject(0)
	}
	if err := checkTree(tree, filename); err != nil {
		return nil, err
	}
	return &SchemaDocument{
		tree:     tree,
		baseDir:  o.baseDir,
		filename: filename,
		readFile: o.readFile,
	}, nil
}

// checkTree validates tree against the draft-07 meta-schema.
func checkTree(tree *jsontree.Object, filename string) error {
	err := validator.CheckSchema(tree)
	if err == nil {
		return nil
	}
	title := tree.GetString("title")
	msg := "schema does not conform to the draft-07 meta-schema"
	var v *validator.ViolationError
	if errors.As(err, &v) {
		msg = fmt.Sprintf("%s: %s", msg, v.Reason)
	}
	e := NewSchemaInvalidError(ErrCodeMetaSchemaViolation, msg).WithSchema(title).WithCause(err)
	if filename != "" {
		e.WithDetail("filename", filename)
	}
	if v != nil {
		e.Path = v.SchemaPath
	}
	return e
}

// ============================================================================
// Mutation
// ============================================================================

// Extend adds everything in other that the document lacks. Objects merge
// recursively and arrays gain the elements they do not already hold. Two
// different values at the same path are a SchemaConflictError when
// checkConflict is set; otherwise the document keeps its own. On error the
// document is unchanged.
func (d *SchemaDocument) Extend(other any, checkConflict bool) error {
	src, err := d.operand(other)
	if err != nil {
		return err
	}
	merged := jsontree.CloneObject(d.tree)
	if err := extendObject(merged, src, "", checkConflict); err != nil {
		if e, ok := AsError(err); ok {
			e.WithSchema(d.Title())
		}
		return err
	}
	return d.replace(merged)
}

func extendObject(dst, src *jsontree.Object, path string, checkConflict bool) error {
	var err error
	src.Range(func(key string, theirs any) bool {
		at := path + "/" + escapePointer(key)
		ours, ok := dst.Get(key)
		if !ok {
			dst.Set(key, jsontree.Clone(theirs))
			return true
		}
		switch o := ours.(type) {
		case *jsontree.Object:
			if t, ok := theirs.(*jsontree.Object); ok {
				err = extendObject(o, t, at, checkConflict)
				return err == nil
			}
		case []any:
			if t, ok := theirs.([]any); ok {
				dst.Set(key, unionList(o, t))
				return true
			}
		}
		if checkConflict && !jsontree.Equal(ours, theirs) {
			err = NewSchemaConflictError(at, jsontree.ToPlain(ours), jsontree.ToPlain(theirs))
			return false
		}
		return true
	})
	return err
}

// unionList appends the elements of theirs missing from ours.
func unionList(ours, theirs []any) []any {
	out := append([]any(nil), ours...)
	for _, t := range theirs {
		found := false
		for _, o := range out {
			if jsontree.Equal(o, t) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, jsontree.Clone(t))
		}
	}
	return out
}

func escapePointer(key string) string {
	key = strings.ReplaceAll(key, "~", "~0")
	return strings.ReplaceAll(key, "/", "~1")
}

// Update overwrites the document's top-level keys with copies of other's.
// A different title is rejected.
func (d *SchemaDocument) Update(other any) error {
	src, err := d.operand(other)
	if err != nil {
		return err
	}
	if title, ok := src.Get("title"); ok {
		current := d.Title()
		if s, _ := title.(string); current != "" && s != current {
			return NewSchemaInvalidError(ErrCodeTitleImmutable,
				fmt.Sprintf("cannot change title to %v", title)).WithSchema(current)
		}
	}
	updated := jsontree.CloneObject(d.tree)
	src.Range(func(key string, value any) bool {
		updated.Set(key, jsontree.Clone(value))
		return true
	})
	return d.replace(updated)
}

// operand turns the argument of Extend or Update into a tree.
func (d *SchemaDocument) operand(other any) (*jsontree.Object, error) {
	switch o := other.(type) {
	case *SchemaDocument:
		return o.tree, nil
	case *jsontree.Object:
		if o == nil {
			return jsontree.NewObject(0), nil
		}
		return o, nil
	case map[string]any:
		tree, _ := jsontree.FromValue(o).(*jsontree.Object)
		return tree, nil
	}
	doc, err := LoadSchema(other, WithBaseDir(d.baseDir))
	if err != nil {
		return nil, err
	}
	return doc.tree, nil
}

func (d *SchemaDocument) replace(tree *jsontree.Object) error {
	if err := checkTree(tree, d.filename); err != nil {
		return err
	}
	d.tree = tree
	rev := d.revision.Add(1)
	zap.S().Debugw("schema modified", "title", d.Title(), "revision", rev)
	return nil
}

// ============================================================================
// Accessors
// ============================================================================

// Title is the schema's identifying title, or "" if it has none.
func (d *SchemaDocument) Title() string {
	return d.tree.GetString("title")
}

// Description returns the description keyword.
func (d *SchemaDocument) Description() string {
	return d.tree.GetString("description")
}

// Version returns the document's own version keyword.
func (d *SchemaDocument) Version() string {
	v, ok := d.tree.Get("version")
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Revision counts the mutations applied since the document was loaded.
func (d *SchemaDocument) Revision() uint64 {
	return d.revision.Load()
}

// Properties returns a copy of the declared properties, never nil.
func (d *SchemaDocument) Properties() *jsontree.Object {
	props := d.tree.GetObject("properties")
	if props == nil {
		return jsontree.NewObject(0)
	}
	return jsontree.CloneObject(props)
}

// Required lists the required property names.
func (d *SchemaDocument) Required() []string {
	v, _ := d.tree.Get("required")
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Definitions returns a copy of the definitions section, or nil.
func (d *SchemaDocument) Definitions() *jsontree.Object {
	defs := d.tree.GetObject("definitions")
	if defs == nil {
		return nil
	}
	return jsontree.CloneObject(defs)
}

// Tree returns a deep copy of the whole document.
func (d *SchemaDocument) Tree() *jsontree.Object {
	return jsontree.CloneObject(d.tree)
}

// BaseDir is the directory sibling references resolve against.
func (d *SchemaDocument) BaseDir() string {
	return d.baseDir
}

// Filename is the base name of the file the document was loaded from.
func (d *SchemaDocument) Filename() string {
	return d.filename
}

// Equal reports whether both documents hold the same tree.
func (d *SchemaDocument) Equal(other *SchemaDocument) bool {
	if d == nil || other == nil {
		return d == other
	}
	return jsontree.Equal(d.tree, other.tree)
}

// ============================================================================
// Serialization
// ============================================================================

// Dumps renders the document as 2-space indented JSON in key order.
func (d *SchemaDocument) Dumps() string {
	data, err := jsontree.MarshalIndent(d.tree, "  ")
	if err != nil {
		// decoded trees only hold encodable values
		panic(fmt.Sprintf("astroschema: encode schema %q: %v", d.Title(), err))
	}
	return string(data)
}

// Dump writes Dumps to path.
func (d *SchemaDocument) Dump(path string) error {
	if err := os.WriteFile(path, []byte(d.Dumps()+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write schema %s: %w", path, err)
	}
	return nil
}

func (d *SchemaDocument) String() string {
	return d.Dumps()
}

func (d *SchemaDocument) MarshalJSON() ([]byte, error) {
	return jsontree.Marshal(d.tree)
}

// ============================================================================
// Validation
// ============================================================================

// Validator returns the document's cached validator.
func (d *SchemaDocument) Validator() *FormatValidator {
	d.validatorOnce.Do(func() {
		d.validator = NewFormatValidator(d)
	})
	return d.validator
}

// Validate checks instance against the document, filling in declared
// defaults first. instance is modified even when it turns out invalid.
func (d *SchemaDocument) Validate(instance any) error {
	return d.Validator().Validate(instance)
}
