package validation

import (
	"strings"

	"github.com/rendis/graphcalc/pkg/schema"
)

// PayloadValidator runs the structural JSON Schema stage and then the
// semantic checks a schema cannot express. Structural errors short-circuit.
type PayloadValidator struct {
	jsonSchema *JSONSchemaValidator
}

// NewPayloadValidator creates a PayloadValidator.
func NewPayloadValidator() (*PayloadValidator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &PayloadValidator{jsonSchema: jsv}, nil
}

var (
	_ Validator = (*PayloadValidator)(nil)
	_ Validator = (*JSONSchemaValidator)(nil)
)

// Graph validates a graph payload and returns every issue found.
func (pv *PayloadValidator) Graph(doc any, partial bool) *schema.ValidationResult {
	result := pv.jsonSchema.structural(pick("graph", partial), doc)
	if !result.Valid() {
		return result
	}
	fields, _ := toJSONValue(doc)
	m, _ := fields.(map[string]any)
	if name, ok := m["name"].(string); ok {
		if strings.TrimSpace(name) == "" {
			result.AddError("/name", schema.ErrCodeValidation, "/name: must not be blank")
		} else if strings.TrimSpace(name) != name {
			result.AddWarning("/name", schema.ErrCodeValidation, "/name: has leading or trailing whitespace")
		}
	}
	return result
}

// Equation validates an equation payload and returns every issue found.
func (pv *PayloadValidator) Equation(doc any, partial bool) *schema.ValidationResult {
	result := pv.jsonSchema.structural(pick("equation", partial), doc)
	if !result.Valid() {
		return result
	}
	fields, _ := toJSONValue(doc)
	m, _ := fields.(map[string]any)
	for _, key := range []string{"equation", "parsed_equation"} {
		text, ok := m[key].(string)
		if !ok {
			continue
		}
		if key == "equation" && strings.TrimSpace(text) == "" {
			result.AddError("/"+key, schema.ErrCodeValidation, "/"+key+": must not be blank")
			continue
		}
		if !balanced(text) {
			result.AddError("/"+key, schema.ErrCodeValidation, "/"+key+": unbalanced brackets")
		}
	}
	return result
}

// ValidateGraph satisfies the Validator interface.
func (pv *PayloadValidator) ValidateGraph(doc any, partial bool) error {
	return pv.Graph(doc, partial).ToError()
}

// ValidateEquation satisfies the Validator interface.
func (pv *PayloadValidator) ValidateEquation(doc any, partial bool) error {
	return pv.Equation(doc, partial).ToError()
}

// balanced reports whether (), [] and {} nest properly. Escaped \{ and \}
// are literal braces and still have to pair up.
func balanced(text string) bool {
	var stack []byte
	pairs := map[byte]byte{')': '(', ']': '[', '}': '{'}
	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '(', '[', '{':
			stack = append(stack, c)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[c] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}
