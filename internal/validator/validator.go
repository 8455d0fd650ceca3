// Package validator compiles schema documents for the JSON-Schema engine
// and validates record instances against them. Compilation inlines $ref
// targets, lowers the numeric and astrotime formats into structural
// constraints and pins draft-07 semantics. Validation injects declared
// defaults into the instance before checking it.
package validator

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/lychee-technology/astroschema/jsontree"
)

const draft07URI = "http://json-schema.org/draft-07/schema#"

// Options controls how a document is compiled.
type Options struct {
	// BaseDir is the directory sibling file references resolve against.
	BaseDir string
	// ReadFile reads referenced files. Defaults to os.ReadFile.
	ReadFile ReadFileFunc
}

// CompileError wraps a failure of the engine to prepare a compiled schema.
type CompileError struct {
	Err error
}

func (e *CompileError) Error() string {
	return "failed to compile schema: " + e.Err.Error()
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// ViolationError is an instance that failed validation. SchemaPath is the
// JSON pointer of the innermost failing schema, InstancePath the location
// in the instance it maps to, Reason the engine's message for it.
type ViolationError struct {
	SchemaPath   string
	InstancePath string
	Reason       string
	Err          error
}

func (e *ViolationError) Error() string {
	return e.Err.Error()
}

func (e *ViolationError) Unwrap() error {
	return e.Err
}

func newViolationError(err error) *ViolationError {
	v := &ViolationError{Err: err, Reason: err.Error()}
	rest := err.Error()
	for strings.HasPrefix(rest, "validating ") {
		head, tail, ok := strings.Cut(rest, ": ")
		if !ok {
			break
		}
		v.SchemaPath = strings.TrimPrefix(head, "validating ")
		rest = tail
	}
	v.Reason = rest
	return v
}

// Compiled is a schema ready for validation.
type Compiled struct {
	tree     *jsontree.Object
	resolved *jsonschema.Resolved
}

// Compile prepares root for validation. root itself is not modified.
// Unresolvable references are reported as *RefError.
func Compile(root *jsontree.Object, opts Options) (*Compiled, error) {
	tree, err := newInliner(opts.BaseDir, opts.ReadFile).Inline(root)
	if err != nil {
		return nil, err
	}
	tree.Delete("$id")
	lowerFormats(tree)
	tree.Set("$schema", draft07URI)

	resolved, err := resolve(tree)
	if err != nil {
		return nil, &CompileError{Err: err}
	}
	return &Compiled{tree: tree, resolved: resolved}, nil
}

func resolve(tree *jsontree.Object) (*jsonschema.Resolved, error) {
	data, err := jsontree.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	return schema.Resolve(nil)
}

// Tree returns a copy of the compiled schema tree.
func (c *Compiled) Tree() *jsontree.Object {
	return jsontree.CloneObject(c.tree)
}

// Validate injects defaults into instance and checks it. The instance is
// modified even when validation fails.
func (c *Compiled) Validate(instance any) error {
	InjectDefaults(c.tree, instance)
	plain := jsontree.ToPlain(instance)
	if err := c.resolved.Validate(plain); err != nil {
		v := newViolationError(err)
		v.InstancePath = c.instancePath(v.SchemaPath, plain)
		return v
	}
	return nil
}

//go:embed draft07.json
var draft07 []byte

var (
	metaOnce     sync.Once
	metaResolved *jsonschema.Resolved
	metaErr      error
)

func metaSchema() (*jsonschema.Resolved, error) {
	metaOnce.Do(func() {
		var schema jsonschema.Schema
		if err := json.Unmarshal(draft07, &schema); err != nil {
			metaErr = fmt.Errorf("failed to decode draft-07 meta-schema: %w", err)
			return
		}
		metaResolved, metaErr = schema.Resolve(nil)
	})
	return metaResolved, metaErr
}

// CheckSchema validates doc against the draft-07 meta-schema.
func CheckSchema(doc *jsontree.Object) error {
	meta, err := metaSchema()
	if err != nil {
		return err
	}
	if err := meta.Validate(jsontree.ToPlain(doc)); err != nil {
		return newViolationError(err)
	}
	return nil
}
