package resolver

import (
	"strings"

	"github.com/rendis/graphcalc/pkg/schema"
)

// StatementKind names the four recognized statement shapes.
type StatementKind string

const (
	StmtAssignment         StatementKind = "assignment"
	StmtFunctionDefinition StatementKind = "function_definition"
	StmtFunctionCall       StatementKind = "function_call"
	StmtBareExpression     StatementKind = "bare_expression"
)

// Statement is the classified form of one input line.
// Implemented by *Assignment, *FunctionDefinition, *FunctionCall and *BareExpression.
type Statement interface {
	Kind() StatementKind
	Text() string
}

// Assignment is `name = expr`.
type Assignment struct {
	Name string
	Expr string
	raw  string
}

// FunctionDefinition is `name(params) = body`.
type FunctionDefinition struct {
	Name   string
	Params []string
	Body   string
	raw    string
}

// FunctionCall is `name(args)` with nothing else around it.
type FunctionCall struct {
	Name string
	Args []string
	raw  string
}

// BareExpression is anything else, including equations whose left-hand
// side is not a plain name (`2x + 3 = 0`).
type BareExpression struct {
	raw string
}

func (a *Assignment) Kind() StatementKind         { return StmtAssignment }
func (f *FunctionDefinition) Kind() StatementKind { return StmtFunctionDefinition }
func (c *FunctionCall) Kind() StatementKind       { return StmtFunctionCall }
func (b *BareExpression) Kind() StatementKind     { return StmtBareExpression }

func (a *Assignment) Text() string         { return a.raw }
func (f *FunctionDefinition) Text() string { return f.raw }
func (c *FunctionCall) Text() string       { return c.raw }
func (b *BareExpression) Text() string     { return b.raw }

// Function converts the definition statement into a bindable Function.
func (f *FunctionDefinition) Function() *Function {
	params := make([]string, len(f.Params))
	copy(params, f.Params)
	return &Function{Name: f.Name, Params: params, Body: f.Body}
}

// Classify determines the statement shape of an already rule-substituted
// expression. It never touches session state.
//
// A left-hand side shaped like a call always makes a FunctionDefinition,
// even when the parameters are not valid names (that is a syntax error,
// not an assignment to a call).
func Classify(expr string) (Statement, error) {
	text := strings.TrimSpace(expr)
	if text == "" {
		return nil, syntaxErr(expr, "empty expression")
	}
	if !checkBalanced(text) {
		return nil, syntaxErr(expr, "unbalanced brackets")
	}

	eqs := topLevelEquals(text)
	switch len(eqs) {
	case 0:
		if name, inner, ok := callShape(text); ok {
			return &FunctionCall{Name: name, Args: splitArgs(inner), raw: expr}, nil
		}
		return &BareExpression{raw: expr}, nil
	case 1:
	default:
		return nil, syntaxErr(expr, "more than one '=' in statement")
	}

	lhs := strings.TrimSpace(text[:eqs[0]])
	rhs := strings.TrimSpace(text[eqs[0]+1:])
	if lhs == "" {
		return nil, syntaxErr(expr, "missing left-hand side")
	}
	if rhs == "" {
		return nil, syntaxErr(expr, "missing right-hand side")
	}

	if name, inner, ok := callShape(lhs); ok {
		params, err := parseParams(expr, name, inner)
		if err != nil {
			return nil, err
		}
		return &FunctionDefinition{Name: name, Params: params, Body: rhs, raw: expr}, nil
	}
	if IsIdentifier(lhs) {
		return &Assignment{Name: lhs, Expr: rhs, raw: expr}, nil
	}
	return &BareExpression{raw: expr}, nil
}

func parseParams(expr, name, inner string) ([]string, error) {
	params := splitArgs(inner)
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if !IsIdentifier(p) {
			return nil, syntaxErr(expr, "parameter %q of %s is not a name", p, name)
		}
		if seen[p] {
			return nil, syntaxErr(expr, "duplicate parameter %q in %s", p, name)
		}
		seen[p] = true
	}
	if params == nil {
		params = []string{}
	}
	return params, nil
}

func syntaxErr(expr, format string, args ...any) *schema.GraphcalcError {
	return schema.NewErrorf(schema.ErrCodeSyntax, format, args...).
		WithDetails(map[string]any{"expression": expr})
}
