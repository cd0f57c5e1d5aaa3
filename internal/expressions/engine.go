package expressions

import "context"

// Engine evaluates query expressions over graph and equation records.
// Two implementations: CEL (where filters) and GoJQ (select projections).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// Simplifier turns a fully resolved expression into its normalized form.
// Parsing failures are reported with schema.ErrCodeLaTeXParse so callers can
// tell them apart from resolver failures.
type Simplifier interface {
	Simplify(ctx context.Context, expression string) (string, error)
}
