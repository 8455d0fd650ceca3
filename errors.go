package astroschema

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of error
type ErrorKind string

const (
	ErrorKindSchemaType          ErrorKind = "schema_type"
	ErrorKindSchemaInvalid       ErrorKind = "schema_invalid"
	ErrorKindSchemaConflict      ErrorKind = "schema_conflict"
	ErrorKindSchemaNotFound      ErrorKind = "schema_not_found"
	ErrorKindReferenceResolution ErrorKind = "reference_resolution"
	ErrorKindValidation          ErrorKind = "validation"
	ErrorKindUnknownField        ErrorKind = "unknown_field"
	ErrorKindKeychainMutation    ErrorKind = "keychain_mutation"
)

// Error is the single error type returned by the package. Kind says what
// went wrong, Code narrows it down.
type Error struct {
	Kind    ErrorKind      `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Schema  string         `json:"schema,omitempty"`
	Field   string         `json:"field,omitempty"`
	Path    string         `json:"path,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *Error) Error() string {
	prefix := fmt.Sprintf("[%s:%s]", e.Kind, e.Code)
	if e.Schema != "" {
		prefix += " schema '" + e.Schema + "'"
	}
	if e.Field != "" {
		prefix += " field '" + e.Field + "'"
	}
	if e.Path != "" {
		prefix += " at " + e.Path
	}
	return prefix + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind. A target with a Code also
// has to match the code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// WithDetails adds details to an Error
func (e *Error) WithDetails(details map[string]any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail adds a single detail to an Error
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause to an Error
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithField adds field context to an Error
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithSchema names the schema the error relates to
func (e *Error) WithSchema(title string) *Error {
	e.Schema = title
	return e
}

// Sentinels for errors.Is.
var (
	ErrSchemaType          = &Error{Kind: ErrorKindSchemaType}
	ErrSchemaInvalid       = &Error{Kind: ErrorKindSchemaInvalid}
	ErrSchemaConflict      = &Error{Kind: ErrorKindSchemaConflict}
	ErrSchemaNotFound      = &Error{Kind: ErrorKindSchemaNotFound}
	ErrReferenceResolution = &Error{Kind: ErrorKindReferenceResolution}
	ErrValidation          = &Error{Kind: ErrorKindValidation}
	ErrUnknownField        = &Error{Kind: ErrorKindUnknownField}
	ErrKeychainMutation    = &Error{Kind: ErrorKindKeychainMutation}
)

// Error codes
const (
	// Schema loading
	ErrCodeUnsupportedSource   = "UNSUPPORTED_SOURCE"
	ErrCodeMetaSchemaViolation = "META_SCHEMA_VIOLATION"
	ErrCodeMalformedJSON       = "MALFORMED_JSON"
	ErrCodeTitleNotIndexed     = "TITLE_NOT_INDEXED"
	ErrCodeObjectNotFound      = "OBJECT_NOT_FOUND"
	ErrCodeCompileFailed       = "COMPILE_FAILED"
	ErrCodeInvalidKeyFlag      = "INVALID_KEY_FLAG"

	// Schema mutation
	ErrCodeScalarConflict = "SCALAR_CONFLICT"
	ErrCodeTitleImmutable = "TITLE_IMMUTABLE"

	// References
	ErrCodeUnresolvableRef = "UNRESOLVABLE_REF"
	ErrCodeCircularRef     = "CIRCULAR_REF"

	// Records
	ErrCodeInstanceInvalid  = "INSTANCE_INVALID"
	ErrCodeFieldNotDeclared = "FIELD_NOT_DECLARED"
	ErrCodeKeyMismatch      = "KEY_MISMATCH"

	// Keychain
	ErrCodeKeyImmutable          = "KEY_IMMUTABLE"
	ErrCodeKeychainNotExtendable = "KEYCHAIN_NOT_EXTENDABLE"
	ErrCodeInvalidKeyName        = "INVALID_KEY_NAME"
)

// ============================================================================
// Error Constructors
// ============================================================================

// NewError creates a new Error
func NewError(kind ErrorKind, code, message string) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewSchemaTypeError reports a schema source of an unsupported Go type.
func NewSchemaTypeError(source any) *Error {
	return &Error{
		Kind:    ErrorKindSchemaType,
		Code:    ErrCodeUnsupportedSource,
		Message: fmt.Sprintf("cannot load a schema from %T", source),
		Details: map[string]any{"type": fmt.Sprintf("%T", source)},
	}
}

// NewSchemaInvalidError reports a document that is not a valid schema.
func NewSchemaInvalidError(code, message string) *Error {
	return &Error{
		Kind:    ErrorKindSchemaInvalid,
		Code:    code,
		Message: message,
	}
}

// NewSchemaConflictError reports two different values for the same key path.
func NewSchemaConflictError(path string, ours, theirs any) *Error {
	return &Error{
		Kind:    ErrorKindSchemaConflict,
		Code:    ErrCodeScalarConflict,
		Message: fmt.Sprintf("conflicting values %v and %v", ours, theirs),
		Path:    path,
		Details: map[string]any{"ours": ours, "theirs": theirs},
	}
}

// NewSchemaNotFoundError reports a title that is neither a file nor indexed.
func NewSchemaNotFoundError(name string) *Error {
	return &Error{
		Kind:    ErrorKindSchemaNotFound,
		Code:    ErrCodeTitleNotIndexed,
		Message: fmt.Sprintf("no schema file or indexed title %q", name),
		Schema:  name,
	}
}

// NewReferenceResolutionError reports a $ref that could not be followed.
func NewReferenceResolutionError(code, message string, cause error) *Error {
	return &Error{
		Kind:    ErrorKindReferenceResolution,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewValidationError reports an instance rejected by its schema. path is
// the location of the failing schema keyword.
func NewValidationError(path, message string, cause error) *Error {
	return &Error{
		Kind:    ErrorKindValidation,
		Code:    ErrCodeInstanceInvalid,
		Message: message,
		Path:    path,
		Cause:   cause,
	}
}

// NewUnknownFieldError reports a write to an undeclared field of a
// non-extendable record.
func NewUnknownFieldError(field string) *Error {
	return &Error{
		Kind:    ErrorKindUnknownField,
		Code:    ErrCodeFieldNotDeclared,
		Message: "field is not declared by the schema and the record is not extendable",
		Field:   field,
	}
}

// NewKeychainMutationError reports a forbidden change to a keychain.
func NewKeychainMutationError(code, field, message string) *Error {
	return &Error{
		Kind:    ErrorKindKeychainMutation,
		Code:    code,
		Message: message,
		Field:   field,
	}
}

// ============================================================================
// Error Helpers
// ============================================================================

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func isKind(err error, kind ErrorKind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

// IsSchemaTypeError checks if an error is a schema type error
func IsSchemaTypeError(err error) bool {
	return isKind(err, ErrorKindSchemaType)
}

// IsSchemaInvalidError checks if an error is a schema invalid error
func IsSchemaInvalidError(err error) bool {
	return isKind(err, ErrorKindSchemaInvalid)
}

// IsSchemaConflictError checks if an error is a schema conflict error
func IsSchemaConflictError(err error) bool {
	return isKind(err, ErrorKindSchemaConflict)
}

// IsSchemaNotFoundError checks if an error is a schema not found error
func IsSchemaNotFoundError(err error) bool {
	return isKind(err, ErrorKindSchemaNotFound)
}

// IsReferenceResolutionError checks if an error is a reference resolution error
func IsReferenceResolutionError(err error) bool {
	return isKind(err, ErrorKindReferenceResolution)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return isKind(err, ErrorKindValidation)
}

// IsUnknownFieldError checks if an error is an unknown field error
func IsUnknownFieldError(err error) bool {
	return isKind(err, ErrorKindUnknownField)
}

// IsKeychainMutationError checks if an error is a keychain mutation error
func IsKeychainMutationError(err error) bool {
	return isKind(err, ErrorKindKeychainMutation)
}
