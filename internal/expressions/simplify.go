package expressions

import (
	"context"
	"strings"

	"github.com/expr-lang/expr/parser"

	"github.com/rendis/graphcalc/pkg/schema"
)

// ExprSimplifier canonicalizes LaTeX or infix math through the expr-lang
// parser. It does not evaluate: names stay symbolic and only the spacing,
// operator spelling and redundant grouping are normalized.
type ExprSimplifier struct {
	cache *boundedCache[string]
}

// NewExprSimplifier creates a simplifier with an empty result cache.
func NewExprSimplifier() *ExprSimplifier {
	return &ExprSimplifier{cache: newBoundedCache[string](defaultCacheSize)}
}

var _ Simplifier = (*ExprSimplifier)(nil)

// Simplify translates expression and prints its canonical form. A single
// top-level '=' splits it into two sides, each canonicalized separately.
func (s *ExprSimplifier) Simplify(ctx context.Context, expression string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := strings.TrimSpace(expression)
	if key == "" {
		return "", schema.NewError(schema.ErrCodeLaTeXParse, "empty expression")
	}

	return s.cache.getOrCompute(key, canonicalize)
}

// canonicalize translates LaTeX to infix and prints each equation side the
// way the expr parser sees it.
func canonicalize(src string) (string, error) {
	infix, err := translateLaTeX(src)
	if err != nil {
		return "", schema.NewErrorf(schema.ErrCodeLaTeXParse, "%s", err.Error()).
			WithDetails(map[string]any{"expression": src})
	}

	sides, err := splitEquation(infix)
	if err != nil {
		return "", err
	}
	for i, side := range sides {
		tree, err := parser.Parse(side)
		if err != nil {
			return "", schema.NewErrorf(schema.ErrCodeLaTeXParse, "parse %q: %s", side, err.Error()).
				WithCause(err)
		}
		sides[i] = tree.Node.String()
	}
	return strings.Join(sides, " = "), nil
}

// splitEquation splits on a single top-level '=' that is not part of a
// comparison operator.
func splitEquation(s string) ([]string, error) {
	var cuts []int
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '=':
			if depth != 0 {
				continue
			}
			if i+1 < len(s) && s[i+1] == '=' {
				i++
				continue
			}
			if i > 0 && strings.IndexByte("<>!=", s[i-1]) >= 0 {
				continue
			}
			cuts = append(cuts, i)
		}
	}
	switch len(cuts) {
	case 0:
		return []string{strings.TrimSpace(s)}, nil
	case 1:
		lhs := strings.TrimSpace(s[:cuts[0]])
		rhs := strings.TrimSpace(s[cuts[0]+1:])
		if lhs == "" || rhs == "" {
			return nil, schema.NewError(schema.ErrCodeLaTeXParse, "equation side is empty")
		}
		return []string{lhs, rhs}, nil
	default:
		return nil, schema.NewError(schema.ErrCodeLaTeXParse, "more than one '=' in equation")
	}
}
