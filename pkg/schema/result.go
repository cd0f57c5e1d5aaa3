package schema

// Result is the outcome of a single resolver operation.
// Exactly one of the two shapes is produced: OK with Message, or !OK with Err.
type Result struct {
	OK      bool            `json:"ok"`
	Message string          `json:"message"`
	Err     *GraphcalcError `json:"error,omitempty"`
}

// Success builds a successful Result carrying msg.
func Success(msg string) Result {
	return Result{OK: true, Message: msg}
}

// Failure builds a failed Result. The message mirrors the error text so
// callers that only read Message still see the failure detail.
func Failure(err *GraphcalcError) Result {
	if err == nil {
		err = NewError(ErrCodeInternal, "unknown failure")
	}
	return Result{OK: false, Message: err.Message, Err: err}
}

// Error returns the failure as an error, or nil on success.
func (r Result) Error() error {
	if r.OK || r.Err == nil {
		return nil
	}
	return r.Err
}

// Code returns the failure code, or "" on success.
func (r Result) Code() string {
	if r.OK || r.Err == nil {
		return ""
	}
	return r.Err.Code
}
