// Package service holds the use cases shared by the HTTP API and the MCP
// server: equation parsing through resolver sessions and graph management.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rendis/graphcalc/internal/expressions"
	"github.com/rendis/graphcalc/internal/logging"
	"github.com/rendis/graphcalc/internal/resolver"
	"github.com/rendis/graphcalc/internal/session"
	"github.com/rendis/graphcalc/pkg/schema"
)

const (
	latexErrorPrefix      = "LaTeX parsing error - "
	resolutionErrorPrefix = "Resolution error - "
	internalErrorPrefix   = "Internal server error - "
)

// ParseResult is the outcome of parsing one equation.
type ParseResult struct {
	Equation  string `json:"equation"`
	Kind      string `json:"kind"`
	Resolved  string `json:"resolved"`
	Parsed    string `json:"parsed_equation"`
	SessionID string `json:"session_id,omitempty"`
}

// Parser turns user equations into canonical parsed text. Assignments, calls
// and bare expressions are force-resolved; definitions are kept as written.
// The statement is bound in the session only once it has parsed.
type Parser struct {
	sessions   *session.Manager
	simplifier expressions.Simplifier
	rules      []session.Rule
	logger     *slog.Logger
}

// NewParser creates a Parser. rules are installed on the throw-away session
// used when no session ID is given.
func NewParser(sessions *session.Manager, simplifier expressions.Simplifier, rules []session.Rule, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	if simplifier == nil {
		simplifier = expressions.NewExprSimplifier()
	}
	return &Parser{sessions: sessions, simplifier: simplifier, rules: rules, logger: logger}
}

// Sessions exposes the session manager the parser works with.
func (p *Parser) Sessions() *session.Manager { return p.sessions }

// ParseEquation runs equation through the session named by sessionID, or a
// throw-away session when sessionID is empty. Failures come back as
// GraphcalcErrors whose message starts with the stage that failed.
func (p *Parser) ParseEquation(ctx context.Context, sessionID, equation string) (*ParseResult, error) {
	ctx = logging.WithSessionID(ctx, sessionID)
	log := logging.LogWith(ctx, p.logger)

	var (
		out *ParseResult
		err error
	)
	if sessionID == "" {
		s := p.sessions.Resolver().CreateSession()
		for _, rule := range p.rules {
			if res := p.sessions.Resolver().AddSubRule(ctx, s, rule.Pattern, rule.Replacement); !res.OK {
				return nil, compose(res.Err)
			}
		}
		out, err = p.parse(ctx, s, equation)
	} else {
		err = p.sessions.With(ctx, sessionID, func(s *resolver.Session) error {
			var perr error
			out, perr = p.parse(ctx, s, equation)
			return perr
		})
	}
	if err != nil {
		log.Debug("equation rejected", slog.String("equation", equation), slog.String("error", err.Error()))
		return nil, compose(err)
	}
	out.SessionID = sessionID
	log.Debug("equation parsed", slog.String("equation", equation), slog.String("parsed", out.Parsed))
	return out, nil
}

// parse resolves and simplifies equation before Execute commits any binding,
// so a statement that fails at any stage leaves the session as it was.
func (p *Parser) parse(ctx context.Context, s *resolver.Session, equation string) (*ParseResult, error) {
	r := p.sessions.Resolver()

	stmt, err := resolver.Classify(s.ApplyRules(equation))
	if err != nil {
		return nil, err
	}

	var resolved string
	switch st := stmt.(type) {
	case *resolver.FunctionDefinition:
		resolved = st.Function().String()
	default:
		fr := r.ForceResolve(ctx, s, equation)
		if !fr.OK {
			return nil, fr.Err
		}
		resolved = fr.Message
	}

	parsed, err := p.simplifier.Simplify(ctx, resolved)
	if err != nil {
		return nil, err
	}

	if res := r.Execute(ctx, s, equation); !res.OK {
		return nil, res.Err
	}
	return &ParseResult{
		Equation: equation,
		Kind:     string(stmt.Kind()),
		Resolved: resolved,
		Parsed:   parsed,
	}, nil
}

// compose prefixes the error message with the failing stage. Not-found
// sessions and context errors pass through unchanged.
func compose(err error) error {
	ge, ok := schema.AsError(err)
	if !ok {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return schema.NewError(schema.ErrCodeInternal, internalErrorPrefix+err.Error()).WithCause(err)
	}
	switch {
	case ge.Code == schema.ErrCodeNotFound:
		return ge
	case schema.IsLaTeXParseError(ge):
		return schema.NewError(ge.Code, latexErrorPrefix+ge.Message).
			WithCause(ge).WithSession(ge.SessionID).WithDetails(ge.Details)
	case schema.IsResolverError(ge):
		return schema.NewError(ge.Code, resolutionErrorPrefix+ge.Message).
			WithCause(ge).WithSession(ge.SessionID).WithDetails(ge.Details)
	default:
		return schema.NewError(ge.Code, internalErrorPrefix+ge.Message).
			WithCause(ge).WithSession(ge.SessionID).WithDetails(ge.Details)
	}
}
