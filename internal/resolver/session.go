package resolver

import (
	"regexp"
	"sort"

	"github.com/google/uuid"
	"github.com/rendis/graphcalc/pkg/schema"
)

// Rule is a textual substitution applied to every incoming expression.
type Rule struct {
	Pattern     string
	Replacement string

	re *regexp.Regexp
}

// Session holds the bindings and substitution rules of one workspace.
// A Session is not safe for concurrent use; callers serialize access.
type Session struct {
	id       string
	rules    []Rule
	bindings map[string]Definition
}

// NewSession creates an empty session with a fresh ID.
func NewSession() *Session {
	return NewSessionWithID(uuid.New().String())
}

// NewSessionWithID creates an empty session under a caller-chosen ID.
func NewSessionWithID(id string) *Session {
	return &Session{
		id:       id,
		bindings: make(map[string]Definition),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// AddSubRule appends a substitution rule. Rules run in insertion order and
// each one sees the output of the previous. The replacement supports
// regexp expansion ($1, ${name}).
func (s *Session) AddSubRule(pattern, replacement string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeInvalidRule, "invalid rule pattern %q: %s", pattern, err.Error()).
			WithCause(err).
			WithSession(s.id).
			WithDetails(map[string]any{"pattern": pattern})
	}
	s.rules = append(s.rules, Rule{Pattern: pattern, Replacement: replacement, re: re})
	return nil
}

// Rules returns a copy of the registered rules.
func (s *Session) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// ApplyRules runs every rule over expr in order.
func (s *Session) ApplyRules(expr string) string {
	for _, r := range s.rules {
		expr = r.re.ReplaceAllString(expr, r.Replacement)
	}
	return expr
}

// Bind inserts or replaces the definition under name.
func (s *Session) Bind(name string, def Definition) error {
	if !IsIdentifier(name) {
		return schema.NewErrorf(schema.ErrCodeInvalidName, "invalid name %q: must match [A-Za-z_][A-Za-z0-9_]*", name).
			WithSession(s.id).
			WithDetails(map[string]any{"name": name})
	}
	s.bindings[name] = def
	return nil
}

// Lookup returns the definition bound to name, if any.
func (s *Session) Lookup(name string) (Definition, bool) {
	def, ok := s.bindings[name]
	return def, ok
}

// Unbind removes name. It reports whether a binding existed.
func (s *Session) Unbind(name string) bool {
	if _, ok := s.bindings[name]; !ok {
		return false
	}
	delete(s.bindings, name)
	return true
}

// Names returns the bound names in sorted order.
func (s *Session) Names() []string {
	names := make([]string, 0, len(s.bindings))
	for n := range s.bindings {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the canonical text of every binding, sorted by name.
func (s *Session) Definitions() []string {
	names := s.Names()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = s.bindings[n].String()
	}
	return out
}

// Dependencies returns the names the binding of name refers to, sorted.
// Function parameters are not dependencies; a recursive function lists itself.
func (s *Session) Dependencies(name string) ([]string, bool) {
	def, ok := s.bindings[name]
	if !ok {
		return nil, false
	}

	var (
		text   string
		params map[string]bool
	)
	switch d := def.(type) {
	case *Variable:
		text = d.Expr
	case *Function:
		text = d.Body
		params = toSet(d.Params)
	}

	deps := make([]string, 0)
	for _, ref := range References(text) {
		if !params[ref] {
			deps = append(deps, ref)
		}
	}
	sort.Strings(deps)
	return deps, true
}
