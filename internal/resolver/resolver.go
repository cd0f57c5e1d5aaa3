package resolver

import (
	"context"
	"log/slog"
	"os"

	"github.com/rendis/graphcalc/internal/logging"
	"github.com/rendis/graphcalc/pkg/schema"
)

const (
	// DefaultMaxDepth bounds nested substitutions (function bodies and variables).
	DefaultMaxDepth = 64
	// DefaultMaxExpansion bounds the length in bytes of any expanded text.
	DefaultMaxExpansion = 64 << 10
	// DefaultMaxSubstitutions bounds the total number of call and variable
	// substitutions performed by one resolution.
	DefaultMaxSubstitutions = 10000
)

// DefaultExternalFunctions are call names left in place when unbound:
// they belong to the downstream LaTeX parser, not the session.
var DefaultExternalFunctions = []string{
	"sin", "cos", "tan", "cot", "sec", "csc",
	"arcsin", "arccos", "arctan", "sinh", "cosh", "tanh",
	"log", "ln", "lg", "exp", "sqrt", "abs",
	"min", "max", "floor", "ceil", "sign", "gcd", "lcm",
}

// Resolver executes statements against sessions and expands function calls.
// A Resolver holds configuration only and is safe to share; the sessions
// it operates on are not.
type Resolver struct {
	maxDepth         int
	maxExpansion     int
	maxSubstitutions int
	strict           bool
	external         map[string]bool
	logger           *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxDepth sets the nested substitution limit.
func WithMaxDepth(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

// WithMaxExpansion sets the maximum expanded text length in bytes.
func WithMaxExpansion(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxExpansion = n
		}
	}
}

// WithMaxSubstitutions caps how many substitutions a single resolution may
// perform. Definitions that fan out, such as `g(x) = f(f(x))` stacked a few
// dozen levels, stay shallow but do exponential work without it.
func WithMaxSubstitutions(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxSubstitutions = n
		}
	}
}

// WithStrictNames makes Execute reject definitions that call names which are
// neither bound, external, nor the definition itself. By default such
// references are left dangling until resolution needs them.
func WithStrictNames(strict bool) Option {
	return func(r *Resolver) { r.strict = strict }
}

// WithExternalFunctions adds call names to leave untouched when unbound.
func WithExternalFunctions(names ...string) Option {
	return func(r *Resolver) {
		for _, n := range names {
			r.external[n] = true
		}
	}
}

// WithLogger sets the logger used for debug tracing of operations.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a Resolver with the default limits and external functions.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		maxDepth:         DefaultMaxDepth,
		maxExpansion:     DefaultMaxExpansion,
		maxSubstitutions: DefaultMaxSubstitutions,
		external:         make(map[string]bool, len(DefaultExternalFunctions)),
		logger:           slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})),
	}
	for _, n := range DefaultExternalFunctions {
		r.external[n] = true
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateSession returns a new empty session.
func (r *Resolver) CreateSession() *Session {
	return NewSession()
}

// IsExternal reports whether name is treated as a downstream function.
func (r *Resolver) IsExternal(name string) bool {
	return r.external[name]
}

// AddSubRule registers a substitution rule on s.
func (r *Resolver) AddSubRule(ctx context.Context, s *Session, pattern, replacement string) schema.Result {
	if err := s.AddSubRule(pattern, replacement); err != nil {
		return r.fail(ctx, s, "add_sub_rule", pattern, err)
	}
	r.log(ctx, s).Debug("rule added", "pattern", pattern, "replacement", replacement)
	return schema.Success("")
}

// Execute applies the session rules to expr, classifies it and binds it when
// it is a definition. Calls and bare expressions pass through unexpanded.
// A failed statement leaves the session untouched.
func (r *Resolver) Execute(ctx context.Context, s *Session, expr string) schema.Result {
	text := s.ApplyRules(expr)
	stmt, err := Classify(text)
	if err != nil {
		return r.fail(ctx, s, "execute", expr, err)
	}

	switch st := stmt.(type) {
	case *Assignment:
		if r.strict {
			if err := r.checkCalls(s, st.Expr, st.Name, nil); err != nil {
				return r.fail(ctx, s, "execute", expr, err)
			}
		}
		if err := s.Bind(st.Name, &Variable{Name: st.Name, Expr: st.Expr}); err != nil {
			return r.fail(ctx, s, "execute", expr, err)
		}
		r.log(ctx, s).Debug("variable bound", "name", st.Name, "expr", st.Expr)
		return schema.Success(st.Expr)

	case *FunctionDefinition:
		fn := st.Function()
		if r.strict {
			if err := r.checkCalls(s, fn.Body, fn.Name, toSet(fn.Params)); err != nil {
				return r.fail(ctx, s, "execute", expr, err)
			}
		}
		if err := s.Bind(fn.Name, fn); err != nil {
			return r.fail(ctx, s, "execute", expr, err)
		}
		r.log(ctx, s).Debug("function bound", "name", fn.Name, "params", fn.Params, "body", fn.Body)
		return schema.Success(fn.String())

	case *FunctionCall, *BareExpression:
		return schema.Success(text)
	}

	return r.fail(ctx, s, "execute", expr,
		schema.NewErrorf(schema.ErrCodeSyntax, "unrecognized statement %q", expr))
}

// ExecuteAll runs each expression in order. Every statement gets its own
// Result; a failure does not undo earlier bindings.
func (r *Resolver) ExecuteAll(ctx context.Context, s *Session, exprs []string) []schema.Result {
	results := make([]schema.Result, len(exprs))
	for i, e := range exprs {
		results[i] = r.Execute(ctx, s, e)
	}
	return results
}

// checkCalls reports the first call in text to a name that is neither bound,
// external, self, nor shadowed by a parameter.
func (r *Resolver) checkCalls(s *Session, text, self string, shadow map[string]bool) error {
	var missing string
	walkCalls(text, func(name string) bool {
		if name == self || shadow[name] || r.external[name] {
			return true
		}
		if _, ok := s.Lookup(name); ok {
			return true
		}
		missing = name
		return false
	})
	if missing != "" {
		return schema.NewErrorf(schema.ErrCodeUndefinedName, "%s is not defined", missing).
			WithDetails(map[string]any{"name": missing, "expression": text})
	}
	return nil
}

func (r *Resolver) log(ctx context.Context, s *Session) *slog.Logger {
	return logging.LogWith(logging.WithSessionID(ctx, s.ID()), r.logger)
}

// fail normalizes err into a failed Result tagged with the session.
func (r *Resolver) fail(ctx context.Context, s *Session, op, expr string, err error) schema.Result {
	ge, ok := schema.AsError(err)
	if !ok {
		ge = schema.NewError(schema.ErrCodeInternal, err.Error()).WithCause(err)
	}
	if ge.SessionID == "" {
		ge.WithSession(s.ID())
	}
	r.log(ctx, s).Debug("resolver operation failed",
		"op", op, "expression", expr, "code", ge.Code, "error", ge.Message)
	return schema.Failure(ge)
}

// walkCalls invokes fn for each identifier followed by '(', with only blanks
// in between. Returning false stops the walk.
func walkCalls(text string, fn func(name string) bool) {
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '\\':
			i = readCommand(text, i)
		case isDigit(c):
			i = readNumber(text, i)
		case isIdentStart(c):
			j := readIdent(text, i)
			if k := skipBlanks(text, j); k < len(text) && text[k] == '(' && !fn(text[i:j]) {
				return
			}
			i = j
		default:
			i++
		}
	}
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}
