package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/graphcalc/internal/store"
	"github.com/rendis/graphcalc/pkg/schema"
)

func seedGraph(t *testing.T, f *fixture, name string) *store.Graph {
	t.Helper()
	g, err := f.graphs.CreateGraph(context.Background(), GraphInput{Name: ptr(name)})
	require.NoError(t, err)
	return g
}

func TestGraphs_CreateGraph(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, err := f.graphs.CreateGraph(ctx, GraphInput{Name: ptr("  lines "), Preview: ptr("p.png")})
	require.NoError(t, err)
	assert.NotEmpty(t, g.ID)
	assert.Equal(t, "lines", g.Name)
	assert.Equal(t, DefaultOwner, g.Owner)

	_, err = f.graphs.CreateGraph(ctx, GraphInput{Name: ptr("lines")})
	assert.Equal(t, schema.ErrCodeConflict, schema.CodeOf(err))

	_, err = f.graphs.CreateGraph(ctx, GraphInput{Name: ptr("lines"), Owner: ptr("ada")})
	assert.NoError(t, err)

	_, err = f.graphs.CreateGraph(ctx, GraphInput{})
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
}

func TestGraphs_UpdateGraph(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := seedGraph(t, f, "old")

	got, err := f.graphs.UpdateGraph(ctx, g.ID, GraphInput{Name: ptr("new")})
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)

	_, err = f.graphs.UpdateGraph(ctx, g.ID, GraphInput{Owner: ptr("mallory")})
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))

	_, err = f.graphs.UpdateGraph(ctx, "missing", GraphInput{Name: ptr("x")})
	assert.Equal(t, schema.ErrCodeNotFound, schema.CodeOf(err))
}

func TestGraphs_ListGraphs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.graphs.ListGraphs(ctx, store.GraphFilter{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	seedGraph(t, f, "b")
	seedGraph(t, f, "a")
	all, err := f.graphs.ListGraphs(ctx, store.GraphFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
}

func TestGraphs_CreateEquationFillsParsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := seedGraph(t, f, "g")

	eq, err := f.graphs.CreateEquation(ctx, EquationInput{
		Graph:     ptr(g.ID),
		Equation:  ptr("y=x**2"),
		LineStyle: ptr("dashed"),
	})
	require.NoError(t, err)
	assert.Equal(t, canonical(t, "y = x^2"), eq.ParsedEquation)
	assert.Equal(t, schema.LineStyleDashed, eq.LineStyle)
	assert.Equal(t, schema.DefaultLineWidth, eq.LineWidth)
	assert.Equal(t, schema.DefaultEquationHex, eq.Color)

	detail, err := f.graphs.GetGraph(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, detail.Equations, 1)
	assert.Equal(t, eq.ID, detail.Equations[0].ID)
}

func TestGraphs_CreateEquationKeepsParsed(t *testing.T) {
	f := newFixture(t)
	g := seedGraph(t, f, "g")

	eq, err := f.graphs.CreateEquation(context.Background(), EquationInput{
		Graph:          ptr(g.ID),
		Equation:       ptr("y=x"),
		ParsedEquation: ptr("y = x"),
		Color:          ptr(0xff0000),
		LineWidth:      ptr(4),
	})
	require.NoError(t, err)
	assert.Equal(t, "y = x", eq.ParsedEquation)
	assert.Equal(t, 0xff0000, eq.Color)
	assert.Equal(t, 4, eq.LineWidth)
}

func TestGraphs_CreateEquationInSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := seedGraph(t, f, "g")
	id, err := f.sessions.Create(ctx)
	require.NoError(t, err)
	_, err = f.parser.ParseEquation(ctx, id, "f(x)=x*2")
	require.NoError(t, err)

	eq, err := f.graphs.CreateEquation(ctx, EquationInput{Graph: ptr(g.ID), Equation: ptr("f(3)+1"), SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, canonical(t, "3*2+1"), eq.ParsedEquation)
}

func TestGraphs_CreateEquationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := seedGraph(t, f, "g")

	tests := []struct {
		name string
		in   EquationInput
		code string
	}{
		{"unresolved call", EquationInput{Graph: ptr(g.ID), Equation: ptr("g(2)")}, schema.ErrCodeUnresolvedCall},
		{"bad line style", EquationInput{Graph: ptr(g.ID), Equation: ptr("y=x"), LineStyle: ptr("wavy")}, schema.ErrCodeValidation},
		{"missing graph field", EquationInput{Equation: ptr("y=x")}, schema.ErrCodeValidation},
		{"unknown graph", EquationInput{Graph: ptr("nope"), Equation: ptr("y=x")}, schema.ErrCodeNotFound},
		{"color out of range", EquationInput{Graph: ptr(g.ID), Equation: ptr("y=x"), Color: ptr(1 << 24)}, schema.ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.graphs.CreateEquation(ctx, tt.in)
			assert.Equal(t, tt.code, schema.CodeOf(err), "%v", err)
		})
	}
}

func TestGraphs_UpdateEquation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := seedGraph(t, f, "g")
	other := seedGraph(t, f, "other")
	eq, err := f.graphs.CreateEquation(ctx, EquationInput{Graph: ptr(g.ID), Equation: ptr("y=x")})
	require.NoError(t, err)

	got, err := f.graphs.UpdateEquation(ctx, eq.ID, EquationInput{Equation: ptr("y=2x"), LineStyle: ptr(":")})
	require.NoError(t, err)
	assert.Equal(t, "y=2x", got.Equation)
	assert.Equal(t, canonical(t, "y = 2*x"), got.ParsedEquation)
	assert.Equal(t, schema.LineStyleDotted, got.LineStyle)

	got, err = f.graphs.UpdateEquation(ctx, eq.ID, EquationInput{Color: ptr(255)})
	require.NoError(t, err)
	assert.Equal(t, 255, got.Color)
	assert.Equal(t, "y=2x", got.Equation)

	_, err = f.graphs.UpdateEquation(ctx, eq.ID, EquationInput{Graph: ptr(other.ID)})
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))

	_, err = f.graphs.UpdateEquation(ctx, "missing", EquationInput{Color: ptr(1)})
	assert.Equal(t, schema.ErrCodeNotFound, schema.CodeOf(err))
}

func TestGraphs_DeleteGraphCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := seedGraph(t, f, "g")
	eq, err := f.graphs.CreateEquation(ctx, EquationInput{Graph: ptr(g.ID), Equation: ptr("y=x")})
	require.NoError(t, err)

	require.NoError(t, f.graphs.DeleteGraph(ctx, g.ID))
	_, err = f.graphs.GetEquation(ctx, eq.ID)
	assert.Equal(t, schema.ErrCodeNotFound, schema.CodeOf(err))
	assert.Equal(t, schema.ErrCodeNotFound, schema.CodeOf(f.graphs.DeleteGraph(ctx, g.ID)))
}

func TestGraphs_DeleteEquation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := seedGraph(t, f, "g")
	eq, err := f.graphs.CreateEquation(ctx, EquationInput{Graph: ptr(g.ID), Equation: ptr("y=x")})
	require.NoError(t, err)

	require.NoError(t, f.graphs.DeleteEquation(ctx, eq.ID))
	assert.Error(t, f.graphs.DeleteEquation(ctx, eq.ID))
}
