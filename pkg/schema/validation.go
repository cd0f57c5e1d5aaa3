package schema

import "fmt"

// ValidationSeverity indicates whether an issue rejects the payload.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue is one problem in a graph or equation payload, located by
// a JSON pointer such as "/line_width".
type ValidationIssue struct {
	Path     string             `json:"path"`
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Severity ValidationSeverity `json:"severity"`
}

// ValidationResult collects the issues found in one payload.
type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

// Valid reports whether no error-severity issue was recorded.
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) AddError(path, code, message string) {
	r.Errors = append(r.Errors, ValidationIssue{Path: path, Code: code, Message: message, Severity: SeverityError})
}

func (r *ValidationResult) AddWarning(path, code, message string) {
	r.Warnings = append(r.Warnings, ValidationIssue{Path: path, Code: code, Message: message, Severity: SeverityWarning})
}

// Fields maps each failing path to its first error message.
func (r *ValidationResult) Fields() map[string]string {
	out := make(map[string]string, len(r.Errors))
	for _, issue := range r.Errors {
		if _, seen := out[issue.Path]; !seen {
			out[issue.Path] = issue.Message
		}
	}
	return out
}

// ToError returns nil for a valid result. Otherwise it returns a VALIDATION
// error whose message is the single error, or a count when there are several,
// and whose details carry the issues and the per-field map.
func (r *ValidationResult) ToError() error {
	if r.Valid() {
		return nil
	}

	msg := r.Errors[0].Message
	if n := len(r.Errors); n > 1 {
		msg = fmt.Sprintf("validation failed with %d errors", n)
	}
	details := map[string]any{
		"error_count": len(r.Errors),
		"errors":      r.Errors,
		"fields":      r.Fields(),
	}
	if len(r.Warnings) > 0 {
		details["warning_count"] = len(r.Warnings)
		details["warnings"] = r.Warnings
	}
	return NewError(ErrCodeValidation, msg).WithDetails(details)
}
