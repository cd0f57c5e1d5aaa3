package resolver

import (
	"context"
	"strings"

	"github.com/rendis/graphcalc/pkg/schema"
)

// ForceResolve expands every resolvable function call and variable reference
// in expr, recursively, and returns the fully expanded text.
//
// Substitution is textual: `f(3)` with `f(x) = x*2` becomes `3*2`. Arguments
// are expanded before they replace the formal parameters, and calls are
// processed left to right. Argument text is spliced as written, so `f(1+2)`
// becomes `1+2*2`, while a variable bound to a compound expression is
// parenthesized where it is referenced. Unbound calls fail unless the name is
// an external function; calling a variable, a wrong argument count and
// runaway expansion each fail with their own code. Nothing partial is ever
// returned.
func (r *Resolver) ForceResolve(ctx context.Context, s *Session, expr string) schema.Result {
	text := s.ApplyRules(expr)
	stmt, err := Classify(text)
	if err != nil {
		return r.fail(ctx, s, "force_resolve", expr, err)
	}

	e := &expander{r: r, s: s}
	var out string
	switch st := stmt.(type) {
	case *FunctionDefinition:
		fn := st.Function()
		body, err := e.expand(fn.Body, 0, identityScope(fn.Params))
		if err != nil {
			return r.fail(ctx, s, "force_resolve", expr, err)
		}
		out = fn.Signature() + " = " + body
	case *Assignment:
		rhs, err := e.expand(st.Expr, 0, nil)
		if err != nil {
			return r.fail(ctx, s, "force_resolve", expr, err)
		}
		out = st.Name + " = " + rhs
	default:
		out, err = e.expand(strings.TrimSpace(text), 0, nil)
		if err != nil {
			return r.fail(ctx, s, "force_resolve", expr, err)
		}
	}

	r.log(ctx, s).Debug("expression resolved", "expression", expr, "resolved", out, "substitutions", e.substitutions)
	return schema.Success(out)
}

// expander carries one ForceResolve call's state.
type expander struct {
	r             *Resolver
	s             *Session
	substitutions int
}

// expand rewrites text, replacing calls to bound functions and references to
// bound variables. Names in scope are the formal parameters of the function
// body being expanded; each is written as its mapped text, which is already
// resolved and never rescanned.
func (e *expander) expand(text string, depth int, scope map[string]string) (string, error) {
	if depth > e.r.maxDepth {
		return "", schema.NewErrorf(schema.ErrCodeRecursionLimit,
			"expansion exceeded the maximum depth of %d", e.r.maxDepth).
			WithDetails(map[string]any{"max_depth": e.r.maxDepth, "expression": text})
	}

	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '\\':
			j := readCommand(text, i)
			b.WriteString(text[i:j])
			i = j
		case isDigit(c):
			j := readNumber(text, i)
			b.WriteString(text[i:j])
			i = j
		case isIdentStart(c):
			j := readIdent(text, i)
			name := text[i:j]
			if v, ok := scope[name]; ok {
				b.WriteString(v)
				i = j
				break
			}
			if k := skipBlanks(text, j); k < len(text) && text[k] == '(' {
				closeIdx, ok := matchParen(text, k)
				if !ok {
					return "", schema.NewErrorf(schema.ErrCodeSyntax, "unclosed call to %s", name).
						WithDetails(map[string]any{"expression": text})
				}
				repl, err := e.call(name, text[k+1:closeIdx], depth, scope)
				if err != nil {
					return "", err
				}
				b.WriteString(repl)
				i = closeIdx + 1
				break
			}
			repl, err := e.reference(name, depth)
			if err != nil {
				return "", err
			}
			b.WriteString(repl)
			i = j
		default:
			b.WriteByte(c)
			i++
		}
		if b.Len() > e.r.maxExpansion {
			return "", schema.NewErrorf(schema.ErrCodeRecursionLimit,
				"expansion exceeded the maximum length of %d bytes", e.r.maxExpansion).
				WithDetails(map[string]any{"max_expansion": e.r.maxExpansion})
		}
	}
	return b.String(), nil
}

// call resolves `name(inner)`. Arguments are expanded in the caller's scope;
// the body is expanded in a scope holding only the callee's parameters.
func (e *expander) call(name, inner string, depth int, scope map[string]string) (string, error) {
	def, ok := e.s.Lookup(name)
	if !ok {
		if !e.r.external[name] {
			return "", schema.NewErrorf(schema.ErrCodeUnresolvedCall,
				"unresolved function call %s(%s): %s is not defined", name, inner, name).
				WithDetails(map[string]any{"name": name})
		}
		args, err := e.expand(inner, depth, scope)
		if err != nil {
			return "", err
		}
		return name + "(" + args + ")", nil
	}

	fn, ok := def.(*Function)
	if !ok {
		return "", schema.NewErrorf(schema.ErrCodeNotCallable,
			"%s is a variable and cannot be called", name).
			WithDetails(map[string]any{"name": name})
	}

	args := splitArgs(inner)
	if len(args) != fn.Arity() {
		return "", schema.NewErrorf(schema.ErrCodeArityMismatch,
			"%s expects %d argument(s), got %d", fn.Signature(), fn.Arity(), len(args)).
			WithDetails(map[string]any{"name": name, "expected": fn.Arity(), "got": len(args)})
	}

	bound := make(map[string]string, len(args))
	for i, a := range args {
		resolved, err := e.expand(a, depth, scope)
		if err != nil {
			return "", err
		}
		bound[fn.Params[i]] = strings.TrimSpace(resolved)
	}

	if err := e.count(); err != nil {
		return "", err
	}
	return e.expand(fn.Body, depth+1, bound)
}

// reference resolves a bare name: bound variables are replaced by their
// expanded expression, parenthesized unless already atomic.
func (e *expander) reference(name string, depth int) (string, error) {
	def, ok := e.s.Lookup(name)
	if !ok {
		return name, nil
	}
	v, ok := def.(*Variable)
	if !ok {
		return name, nil
	}
	if err := e.count(); err != nil {
		return "", err
	}
	val, err := e.expand(v.Expr, depth+1, nil)
	if err != nil {
		return "", err
	}
	val = strings.TrimSpace(val)
	if !isAtomic(val) {
		val = "(" + val + ")"
	}
	return val, nil
}

// count records one substitution and enforces the per-resolution budget.
func (e *expander) count() error {
	e.substitutions++
	if e.substitutions > e.r.maxSubstitutions {
		return schema.NewErrorf(schema.ErrCodeRecursionLimit,
			"expansion exceeded the maximum of %d substitutions", e.r.maxSubstitutions).
			WithDetails(map[string]any{"max_substitutions": e.r.maxSubstitutions})
	}
	return nil
}

// identityScope maps each parameter to itself, keeping a definition's
// parameters verbatim while its body is expanded.
func identityScope(params []string) map[string]string {
	scope := make(map[string]string, len(params))
	for _, p := range params {
		scope[p] = p
	}
	return scope
}
