package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rendis/graphcalc/pkg/schema"
)

// envelope is the shape of every response body.
type envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// failure is the data of a failed response.
type failure struct {
	Detail  string         `json:"detail"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// writeJSON writes data wrapped in the envelope with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	msg := "success"
	if status >= 400 {
		msg = "fail"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Status: status, Message: msg, Data: data})
}

func writeFail(w http.ResponseWriter, status int, detail, code string) {
	writeJSON(w, status, failure{Detail: detail, Code: code})
}

// writeError maps err to a status code and writes the failure envelope.
// Errors the service did not classify become 500s.
func writeError(w http.ResponseWriter, err error) {
	ge, ok := schema.AsError(err)
	if !ok {
		writeFail(w, http.StatusInternalServerError, "Internal server error - "+err.Error(), schema.ErrCodeInternal)
		return
	}
	status := statusFor(ge.Code)
	detail := ge.Message
	if status == http.StatusInternalServerError && !strings.HasPrefix(detail, "Internal server error - ") {
		detail = "Internal server error - " + detail
	}
	writeJSON(w, status, failure{Detail: detail, Code: ge.Code, Details: ge.Details})
}

// statusFor maps an error code to its HTTP status.
func statusFor(code string) int {
	switch {
	case code == schema.ErrCodeNotFound:
		return http.StatusNotFound
	case code == schema.ErrCodeConflict:
		return http.StatusConflict
	case code == schema.ErrCodeValidation,
		code == schema.ErrCodeLaTeXParse,
		code == schema.ErrCodeEvaluation:
		return http.StatusBadRequest
	case schema.IsResolverError(schema.NewError(code, "")):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v. Unknown fields are rejected.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return schema.NewError(schema.ErrCodeValidation, "request body is empty")
		}
		return schema.NewErrorf(schema.ErrCodeValidation, "invalid JSON: %v", err).WithCause(err)
	}
	return nil
}

// queryInt extracts an integer query param with a default value.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return schema.NewError(schema.ErrCodeValidation, fmt.Sprintf("%s is required", field))
	}
	return nil
}
