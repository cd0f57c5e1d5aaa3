package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/graphcalc/pkg/schema"
)

const schemaBaseURL = "https://graphcalc.dev/schemas/"

// graphProperties and equationProperties are shared by the create and update
// schemas; only the required list differs.
const graphProperties = `{
    "id":      { "type": "string" },
    "name":    { "type": "string", "minLength": 1, "maxLength": %d },
    "preview": { "type": "string", "maxLength": %d },
    "owner":   { "type": "string", "minLength": 1, "maxLength": 150 }
  }`

const equationProperties = `{
    "id":              { "type": "string" },
    "graph":           { "type": "string", "minLength": 1 },
    "equation":        { "type": "string", "minLength": 1, "maxLength": %d },
    "parsed_equation": { "type": "string", "maxLength": %d },
    "color":           { "type": "integer", "minimum": 0, "maximum": %d },
    "line_style":      { "type": "string", "enum": ["-", "--", ":", "-."] },
    "line_width":      { "type": "integer", "minimum": %d }
  }`

// JSONSchemaValidator validates payloads against JSON Schema Draft 2020-12
// documents compiled once at construction. It is safe for concurrent use.
type JSONSchemaValidator struct {
	schemas map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator compiles the graph and equation schemas.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	graphProps := fmt.Sprintf(graphProperties, schema.MaxGraphNameLen, schema.MaxPreviewLen)
	equationProps := fmt.Sprintf(equationProperties,
		schema.MaxEquationLen, schema.MaxParsedLen, schema.MaxColor, schema.MinLineWidth)

	docs := map[string]string{
		"graph.json":           objectSchema("graph.json", graphProps, `["name"]`),
		"graph-update.json":    objectSchema("graph-update.json", graphProps, `[]`),
		"equation.json":        objectSchema("equation.json", equationProps, `["equation", "graph"]`),
		"equation-update.json": objectSchema("equation-update.json", equationProps, `[]`),
	}

	c := newCompiler()
	for name, raw := range docs {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", name, err)
		}
		if err := c.AddResource(schemaBaseURL+name, doc); err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", name, err)
		}
	}

	v := &JSONSchemaValidator{schemas: make(map[string]*jsonschema.Schema, len(docs))}
	for name := range docs {
		compiled, err := c.Compile(schemaBaseURL + name)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", name, err)
		}
		v.schemas[name] = compiled
	}
	return v, nil
}

func objectSchema(id, properties, required string) string {
	return fmt.Sprintf(`{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "%s%s",
  "type": "object",
  "required": %s,
  "properties": %s,
  "additionalProperties": false
}`, schemaBaseURL, id, required, properties)
}

// ValidateGraph checks a graph payload structurally.
func (v *JSONSchemaValidator) ValidateGraph(doc any, partial bool) error {
	return v.structural(pick("graph", partial), doc).ToError()
}

// ValidateEquation checks an equation payload structurally.
func (v *JSONSchemaValidator) ValidateEquation(doc any, partial bool) error {
	return v.structural(pick("equation", partial), doc).ToError()
}

func pick(kind string, partial bool) string {
	if partial {
		return kind + "-update.json"
	}
	return kind + ".json"
}

// structural validates doc against the named schema and reports every leaf
// violation as a located issue.
func (v *JSONSchemaValidator) structural(name string, doc any) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if doc == nil {
		result.AddError("/", schema.ErrCodeValidation, "payload is empty")
		return result
	}

	value, err := toJSONValue(doc)
	if err != nil {
		result.AddError("/", schema.ErrCodeValidation, "payload is not valid JSON: "+err.Error())
		return result
	}

	if err := v.schemas[name].Validate(value); err != nil {
		verr, ok := err.(*jsonschema.ValidationError)
		if !ok {
			result.AddError("/", schema.ErrCodeValidation, err.Error())
			return result
		}
		for _, vi := range collectViolations(verr) {
			result.AddError(vi.path, schema.ErrCodeValidation, vi.message)
		}
	}
	return result
}

func newCompiler() *jsonschema.Compiler {
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	return c
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

type violation struct {
	path    string
	message string
}

// collectViolations walks a ValidationError tree and collects the leaf
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []violation {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []violation{{path: loc, message: fmt.Sprintf("%s: %s", loc, verr.Error())}}
	}

	var out []violation
	for _, cause := range verr.Causes {
		out = append(out, collectViolations(cause)...)
	}
	return out
}
