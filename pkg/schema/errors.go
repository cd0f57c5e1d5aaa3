package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	// Resolver failures.
	ErrCodeInvalidRule    = "INVALID_RULE"
	ErrCodeInvalidName    = "INVALID_NAME"
	ErrCodeSyntax         = "SYNTAX_ERROR"
	ErrCodeUndefinedName  = "UNDEFINED_NAME"
	ErrCodeUnresolvedCall = "UNRESOLVED_CALL"
	ErrCodeNotCallable    = "NOT_CALLABLE"
	ErrCodeArityMismatch  = "ARITY_MISMATCH"
	ErrCodeRecursionLimit = "RECURSION_LIMIT"

	// Simplifier failure (external LaTeX parser).
	ErrCodeLaTeXParse = "LATEX_PARSE_ERROR"

	// Outer surfaces.
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeEvaluation = "EVALUATION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeConflict   = "CONFLICT"
	ErrCodeStore      = "STORE_ERROR"
	ErrCodeInternal   = "INTERNAL_ERROR"
)

var resolverCodes = map[string]bool{
	ErrCodeInvalidRule:    true,
	ErrCodeInvalidName:    true,
	ErrCodeSyntax:         true,
	ErrCodeUndefinedName:  true,
	ErrCodeUnresolvedCall: true,
	ErrCodeNotCallable:    true,
	ErrCodeArityMismatch:  true,
	ErrCodeRecursionLimit: true,
}

// GraphcalcError is the structured error type for all graphcalc operations.
type GraphcalcError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Cause     error          `json:"-"`
}

func (e *GraphcalcError) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("[%s] session %s: %s", e.Code, e.SessionID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *GraphcalcError) Unwrap() error {
	return e.Cause
}

// Is matches another *GraphcalcError by code, so errors.Is(err, &GraphcalcError{Code: c}) works.
func (e *GraphcalcError) Is(target error) bool {
	t, ok := target.(*GraphcalcError)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// NewError creates a new GraphcalcError.
func NewError(code, message string) *GraphcalcError {
	return &GraphcalcError{Code: code, Message: message}
}

// NewErrorf creates a new GraphcalcError with a formatted message.
func NewErrorf(code, format string, args ...any) *GraphcalcError {
	return &GraphcalcError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithSession attaches a session ID to the error.
func (e *GraphcalcError) WithSession(sessionID string) *GraphcalcError {
	e.SessionID = sessionID
	return e
}

// WithCause attaches an underlying cause.
func (e *GraphcalcError) WithCause(err error) *GraphcalcError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *GraphcalcError) WithDetails(details map[string]any) *GraphcalcError {
	e.Details = details
	return e
}

// AsError extracts a *GraphcalcError from err's chain.
func AsError(err error) (*GraphcalcError, bool) {
	var ge *GraphcalcError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// CodeOf returns the code of the first GraphcalcError in err's chain,
// or ErrCodeInternal for foreign errors. A nil error yields "".
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	if ge, ok := AsError(err); ok {
		return ge.Code
	}
	return ErrCodeInternal
}

// IsResolverError reports whether err was raised by the name-binding and
// substitution layer, as opposed to the simplifier or the outer surfaces.
func IsResolverError(err error) bool {
	return resolverCodes[CodeOf(err)]
}

// IsLaTeXParseError reports whether err is a simplifier parsing failure.
func IsLaTeXParseError(err error) bool {
	return CodeOf(err) == ErrCodeLaTeXParse
}
