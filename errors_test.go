package astroschema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "bare",
			err:  NewError(ErrorKindValidation, ErrCodeInstanceInvalid, "bad"),
			want: "[validation:INSTANCE_INVALID]: bad",
		},
		{
			name: "with schema and field",
			err:  NewUnknownFieldError("colour").WithSchema("source"),
			want: "[unknown_field:FIELD_NOT_DECLARED] schema 'source' field 'colour': " +
				"field is not declared by the schema and the record is not extendable",
		},
		{
			name: "with path",
			err:  NewSchemaConflictError("/properties/alias/type", "string", "number"),
			want: "[schema_conflict:SCALAR_CONFLICT] at /properties/alias/type: conflicting values string and number",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("failed to build: %w",
		NewKeychainMutationError(ErrCodeKeyImmutable, "alias", "nope"))

	assert.True(t, errors.Is(err, ErrKeychainMutation))
	assert.True(t, errors.Is(err, &Error{Kind: ErrorKindKeychainMutation, Code: ErrCodeKeyImmutable}))
	assert.False(t, errors.Is(err, &Error{Kind: ErrorKindKeychainMutation, Code: ErrCodeKeychainNotExtendable}))
	assert.False(t, errors.Is(err, ErrValidation))

	assert.True(t, IsKeychainMutationError(err))
	assert.False(t, IsUnknownFieldError(err))

	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "alias", e.Field)
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("disk on fire")
	err := NewSchemaNotFoundError("source").WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsSchemaNotFoundError(err))
}

func TestErrorDetails(t *testing.T) {
	err := NewSchemaTypeError(42)
	assert.Equal(t, "int", err.Details["type"])
	assert.True(t, IsSchemaTypeError(err))

	err.WithDetail("filename", "x.json").WithDetails(map[string]any{"ref": "y.json"})
	assert.Equal(t, "x.json", err.Details["filename"])
	assert.Equal(t, "y.json", err.Details["ref"])
}

func TestErrorHelpersByKind(t *testing.T) {
	tests := []struct {
		err   error
		check func(error) bool
	}{
		{NewSchemaTypeError(nil), IsSchemaTypeError},
		{NewSchemaInvalidError(ErrCodeMalformedJSON, "x"), IsSchemaInvalidError},
		{NewSchemaConflictError("/a", 1, 2), IsSchemaConflictError},
		{NewSchemaNotFoundError("x"), IsSchemaNotFoundError},
		{NewReferenceResolutionError(ErrCodeCircularRef, "x", nil), IsReferenceResolutionError},
		{NewValidationError("", "x", nil), IsValidationError},
		{NewUnknownFieldError("x"), IsUnknownFieldError},
		{NewKeychainMutationError(ErrCodeInvalidKeyName, "X", "x"), IsKeychainMutationError},
	}
	for _, tt := range tests {
		assert.True(t, tt.check(tt.err), tt.err.Error())
		assert.False(t, tt.check(errors.New("plain")))
	}
}
