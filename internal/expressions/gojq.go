package expressions

import (
	"context"
	"encoding/json"

	"github.com/itchyny/gojq"
	"github.com/rendis/graphcalc/pkg/schema"
)

// GoJQEngine implements the Engine interface using GoJQ.
// It evaluates the select projections of graph and equation queries.
type GoJQEngine struct {
	cache *boundedCache[*gojq.Code]
}

// NewGoJQEngine creates a new GoJQ expression engine.
func NewGoJQEngine() *GoJQEngine {
	return &GoJQEngine{cache: newBoundedCache[*gojq.Code](defaultCacheSize)}
}

// Name returns the engine identifier.
func (e *GoJQEngine) Name() string {
	return "jq"
}

// Evaluate runs a jq expression against data. A single output is returned
// directly; several outputs are collected into []any.
func (e *GoJQEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	results, err := e.run(ctx, expression, data)
	if err != nil {
		return nil, err
	}
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// Project runs a jq expression over any JSON-serializable input (records,
// slices of records) and always returns every output.
func (e *GoJQEngine) Project(ctx context.Context, expression string, input any) ([]any, error) {
	normalized, err := toJQValue(input)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "jq input is not JSON: %s", err.Error()).WithCause(err)
	}
	return e.run(ctx, expression, normalized)
}

func (e *GoJQEngine) run(ctx context.Context, expression string, input any) ([]any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "empty jq expression")
	}

	code, err := e.cache.getOrCompute(expression, compileJQ)
	if err != nil {
		return nil, err
	}

	iter := code.RunWithContext(ctx, input)

	var results []any
	for {
		val, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := val.(error); isErr {
			return nil, schema.NewErrorf(schema.ErrCodeEvaluation,
				"jq evaluation failed for %q: %s", expression, err.Error()).
				WithCause(err).
				WithDetails(map[string]any{"expression": expression})
		}
		results = append(results, val)
	}
	return results, nil
}

// compileJQ parses and compiles expression with the environment hidden,
// so $ENV and env always read as empty.
func compileJQ(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"jq parse error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	code, err := gojq.Compile(query, gojq.WithEnvironLoader(func() []string { return nil }))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"jq compile error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}
	return code, nil
}

// toJQValue converts typed Go values into the map/slice/float64 shapes gojq
// accepts, going through JSON.
func toJQValue(v any) (any, error) {
	switch v.(type) {
	case nil, map[string]any, []any, string, bool, float64:
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ Engine = (*GoJQEngine)(nil)
