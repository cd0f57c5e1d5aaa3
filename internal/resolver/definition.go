package resolver

import (
	"fmt"
	"strings"
)

// DefinitionKind tags the two shapes a session binding can take.
type DefinitionKind string

const (
	KindVariable DefinitionKind = "variable"
	KindFunction DefinitionKind = "function"
)

// Definition is a named binding held by a Session.
// Implemented by *Variable and *Function.
type Definition interface {
	DefName() string
	Kind() DefinitionKind
	String() string
}

// Variable binds a name to an expression.
type Variable struct {
	Name string
	Expr string
}

func (v *Variable) DefName() string      { return v.Name }
func (v *Variable) Kind() DefinitionKind { return KindVariable }
func (v *Variable) String() string       { return v.Name + " = " + v.Expr }

// Function binds a name to a body written in terms of its formal parameters.
type Function struct {
	Name   string
	Params []string
	Body   string
}

func (f *Function) DefName() string      { return f.Name }
func (f *Function) Kind() DefinitionKind { return KindFunction }

// Signature renders the left-hand side, e.g. "f(x, y)".
func (f *Function) Signature() string {
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(f.Params, ", "))
}

// String renders the canonical definition text "name(params) = body".
func (f *Function) String() string {
	return f.Signature() + " = " + f.Body
}

// Arity is the number of formal parameters.
func (f *Function) Arity() int { return len(f.Params) }
