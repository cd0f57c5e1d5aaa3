package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationResult_EmptyIsValid(t *testing.T) {
	r := &ValidationResult{}
	assert.True(t, r.Valid())
}

func TestValidationResult_AddError(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("/line_style", ErrCodeValidation, "unknown line style")

	assert.False(t, r.Valid())
	require.Len(t, r.Errors, 1)
	assert.Equal(t, "/line_style", r.Errors[0].Path)
	assert.Equal(t, ErrCodeValidation, r.Errors[0].Code)
	assert.Equal(t, "unknown line style", r.Errors[0].Message)
	assert.Equal(t, SeverityError, r.Errors[0].Severity)
}

func TestValidationResult_AddWarning(t *testing.T) {
	r := &ValidationResult{}
	r.AddWarning("/parsed_equation", ErrCodeValidation, "parsed equation will be recomputed")

	assert.True(t, r.Valid(), "warnings alone should not make result invalid")
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, SeverityWarning, r.Warnings[0].Severity)
}

func TestValidationResult_Fields(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("/color", ErrCodeValidation, "too large")
	r.AddError("/color", ErrCodeValidation, "second message is dropped")
	r.AddError("/name", ErrCodeValidation, "required")

	assert.Equal(t, map[string]string{"/color": "too large", "/name": "required"}, r.Fields())
}

func TestValidationResult_ToError_Valid(t *testing.T) {
	r := &ValidationResult{}
	r.AddWarning("/", ErrCodeValidation, "just a warning")
	assert.Nil(t, r.ToError())
}

func TestValidationResult_ToError_SingleError(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("/line_width", ErrCodeValidation, "line_width must be >= 1")

	err := r.ToError()
	require.NotNil(t, err)

	gcErr, ok := err.(*GraphcalcError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeValidation, gcErr.Code)
	assert.Equal(t, "line_width must be >= 1", gcErr.Message)
	assert.Equal(t, 1, gcErr.Details["error_count"])
	assert.Equal(t, map[string]string{"/line_width": "line_width must be >= 1"}, gcErr.Details["fields"])
	assert.NotContains(t, gcErr.Details, "warnings")
}

func TestValidationResult_ToError_MultipleErrors(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("/", ErrCodeValidation, "err1")
	r.AddError("/", ErrCodeValidation, "err2")
	r.AddWarning("/", ErrCodeValidation, "warn1")

	err := r.ToError()
	require.NotNil(t, err)

	gcErr, ok := err.(*GraphcalcError)
	require.True(t, ok)
	assert.Contains(t, gcErr.Message, "2 errors")
	assert.Equal(t, 2, gcErr.Details["error_count"])
	assert.Equal(t, 1, gcErr.Details["warning_count"])
}
