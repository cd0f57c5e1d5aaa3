package service

import (
	"bytes"
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rendis/graphcalc/internal/expressions"
	"github.com/rendis/graphcalc/internal/resolver"
	"github.com/rendis/graphcalc/internal/session"
	"github.com/rendis/graphcalc/internal/store"
	"github.com/rendis/graphcalc/internal/validation"
	"github.com/rendis/graphcalc/pkg/schema"
)

// memStore is an in-memory store.Store for service tests.
type memStore struct {
	store.Store
	mu        sync.Mutex
	graphs    map[string]*store.Graph
	equations map[string]*store.Equation
	seq       int
}

func newMemStore() *memStore {
	return &memStore{graphs: map[string]*store.Graph{}, equations: map[string]*store.Equation{}}
}

func notFound(kind, id string) error {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", kind, id)
}

func (m *memStore) CreateGraph(_ context.Context, g *store.Graph) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.graphs {
		if other.Owner == g.Owner && other.Name == g.Name {
			return schema.NewErrorf(schema.ErrCodeConflict, "graph %q already exists", g.Name)
		}
	}
	g.Created = time.Now().UTC()
	g.Updated = g.Created
	cp := *g
	m.graphs[g.ID] = &cp
	return nil
}

func (m *memStore) GetGraph(_ context.Context, id string) (*store.Graph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.graphs[id]
	if !ok {
		return nil, notFound("graph", id)
	}
	cp := *g
	return &cp, nil
}

func (m *memStore) UpdateGraph(_ context.Context, id string, u store.GraphUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.graphs[id]
	if !ok {
		return notFound("graph", id)
	}
	if u.Name != nil {
		g.Name = *u.Name
	}
	if u.Preview != nil {
		g.Preview = *u.Preview
	}
	return nil
}

func (m *memStore) ListGraphs(_ context.Context, f store.GraphFilter) ([]*store.Graph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Graph
	for _, g := range m.graphs {
		if f.Owner != "" && g.Owner != f.Owner {
			continue
		}
		if f.NameContains != "" && !strings.Contains(g.Name, f.NameContains) {
			continue
		}
		cp := *g
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) DeleteGraph(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.graphs[id]; !ok {
		return notFound("graph", id)
	}
	delete(m.graphs, id)
	for eid, eq := range m.equations {
		if eq.GraphID == id {
			delete(m.equations, eid)
		}
	}
	return nil
}

func (m *memStore) CreateEquation(_ context.Context, eq *store.Equation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.graphs[eq.GraphID]; !ok {
		return notFound("graph", eq.GraphID)
	}
	m.seq++
	eq.Created = time.Unix(int64(m.seq), 0).UTC()
	eq.Updated = eq.Created
	cp := *eq
	m.equations[eq.ID] = &cp
	return nil
}

func (m *memStore) GetEquation(_ context.Context, id string) (*store.Equation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	eq, ok := m.equations[id]
	if !ok {
		return nil, notFound("equation", id)
	}
	cp := *eq
	return &cp, nil
}

func (m *memStore) UpdateEquation(_ context.Context, id string, u store.EquationUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	eq, ok := m.equations[id]
	if !ok {
		return notFound("equation", id)
	}
	if u.Equation != nil {
		eq.Equation = *u.Equation
	}
	if u.ParsedEquation != nil {
		eq.ParsedEquation = *u.ParsedEquation
	}
	if u.Color != nil {
		eq.Color = *u.Color
	}
	if u.LineStyle != nil {
		eq.LineStyle = *u.LineStyle
	}
	if u.LineWidth != nil {
		eq.LineWidth = *u.LineWidth
	}
	return nil
}

func (m *memStore) ListEquations(_ context.Context, f store.EquationFilter) ([]*store.Equation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Equation
	for _, eq := range m.equations {
		if f.GraphID != "" && eq.GraphID != f.GraphID {
			continue
		}
		cp := *eq
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out, nil
}

func (m *memStore) DeleteEquation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.equations[id]; !ok {
		return notFound("equation", id)
	}
	delete(m.equations, id)
	return nil
}

type fixture struct {
	store    *memStore
	sessions *session.Manager
	parser   *Parser
	graphs   *Graphs
	query    *Query
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	mgr, err := session.NewManager(resolver.NewResolver(resolver.WithLogger(logger)),
		session.Config{DefaultRules: session.DefaultRules}, logger)
	require.NoError(t, err)

	v, err := validation.NewPayloadValidator()
	require.NoError(t, err)

	ms := newMemStore()
	p := NewParser(mgr, expressions.NewExprSimplifier(), session.DefaultRules, logger)
	q, err := NewQuery(ms)
	require.NoError(t, err)
	return &fixture{
		store:    ms,
		sessions: mgr,
		parser:   p,
		graphs:   NewGraphs(ms, v, p, logger),
		query:    q,
	}
}

func ptr[T any](v T) *T { return &v }
