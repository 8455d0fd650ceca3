package astroschema

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lychee-technology/astroschema/internal/telemetry"
	"github.com/lychee-technology/astroschema/internal/validator"
	"github.com/lychee-technology/astroschema/jsontree"
)

// FormatValidator validates instances against one SchemaDocument. The
// compiled schema is built on first use and rebuilt whenever the document
// has been modified since.
type FormatValidator struct {
	doc *SchemaDocument

	mu       sync.RWMutex
	compiled *validator.Compiled
	revision uint64
}

// NewFormatValidator binds a validator to doc.
func NewFormatValidator(doc *SchemaDocument) *FormatValidator {
	return &FormatValidator{doc: doc}
}

// Compiled returns a copy of the schema actually handed to the engine:
// references inlined, formats lowered.
func (v *FormatValidator) Compiled() (*jsontree.Object, error) {
	c, err := v.current()
	if err != nil {
		return nil, err
	}
	return c.Tree(), nil
}

// Validate injects defaults into instance and checks it.
func (v *FormatValidator) Validate(instance any) error {
	c, err := v.current()
	if err != nil {
		return err
	}
	title := v.doc.Title()
	err = c.Validate(instance)
	telemetry.EmitValidation(context.Background(), title, err == nil)
	if err == nil {
		return nil
	}
	var violation *validator.ViolationError
	if errors.As(err, &violation) {
		return NewValidationError(violation.SchemaPath, violation.Reason, err).
			WithSchema(title).
			WithDetail("instance", violation.InstancePath)
	}
	return err
}

func (v *FormatValidator) current() (*validator.Compiled, error) {
	rev := v.doc.Revision()

	v.mu.RLock()
	if v.compiled != nil && v.revision == rev {
		c := v.compiled
		v.mu.RUnlock()
		return c, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.compiled != nil && v.revision == rev {
		return v.compiled, nil
	}

	start := time.Now()
	c, err := validator.Compile(v.doc.tree, validator.Options{
		BaseDir:  v.doc.baseDir,
		ReadFile: v.doc.readFile,
	})
	if err != nil {
		return nil, v.compileError(err)
	}
	elapsed := time.Since(start)
	telemetry.EmitValidatorBuild(context.Background(), v.doc.Title(), elapsed)
	zap.S().Debugw("built schema validator", "title", v.doc.Title(), "revision", rev, "elapsed", elapsed)

	v.compiled = c
	v.revision = rev
	return c, nil
}

func (v *FormatValidator) compileError(err error) error {
	title := v.doc.Title()
	var refErr *validator.RefError
	if errors.As(err, &refErr) {
		code := ErrCodeUnresolvableRef
		if errors.Is(err, validator.ErrCircularRef) {
			code = ErrCodeCircularRef
		}
		msg := refErr.Error()
		if v.doc.filename != "" {
			msg = fmt.Sprintf("%s (schema file %s)", msg, v.doc.filename)
		}
		return NewReferenceResolutionError(code, msg, err).
			WithSchema(title).
			WithDetail("filename", v.doc.filename).
			WithDetail("ref", refErr.Ref)
	}
	return NewSchemaInvalidError(ErrCodeCompileFailed, err.Error()).WithSchema(title).WithCause(err)
}
