package service

import (
	"context"
	"time"

	"github.com/rendis/graphcalc/internal/expressions"
	"github.com/rendis/graphcalc/internal/store"
)

// Query filters stored graphs and equations with a CEL "where" expression
// and optionally reshapes the matches with a jq "select" expression.
type Query struct {
	store store.Store
	where *expressions.CELEngine
	proj  *expressions.GoJQEngine
}

// NewQuery creates a Query over s.
func NewQuery(s store.Store) (*Query, error) {
	cel, err := expressions.NewCELEngine()
	if err != nil {
		return nil, err
	}
	return &Query{store: s, where: cel, proj: expressions.NewGoJQEngine()}, nil
}

// Equations returns the equations of graphID matching where (all when
// empty). With a select expression the projected jq outputs are returned
// instead of the records.
func (q *Query) Equations(ctx context.Context, graphID, where, selectExpr string) (any, error) {
	graph, err := q.store.GetGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	eqs, err := q.store.ListEquations(ctx, store.EquationFilter{GraphID: graphID})
	if err != nil {
		return nil, err
	}

	graphRec := graphRecord(graph)
	matched := make([]map[string]any, 0, len(eqs))
	for _, eq := range eqs {
		rec := equationRecord(eq)
		if where != "" {
			ok, err := q.where.Match(ctx, where, map[string]any{"equation": rec, "graph": graphRec})
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		matched = append(matched, rec)
	}
	return q.project(ctx, selectExpr, matched)
}

// Graphs returns the graphs matching filter and where.
func (q *Query) Graphs(ctx context.Context, filter store.GraphFilter, where, selectExpr string) (any, error) {
	graphs, err := q.store.ListGraphs(ctx, filter)
	if err != nil {
		return nil, err
	}

	matched := make([]map[string]any, 0, len(graphs))
	for _, g := range graphs {
		rec := graphRecord(g)
		if where != "" {
			ok, err := q.where.Match(ctx, where, map[string]any{"graph": rec})
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		matched = append(matched, rec)
	}
	return q.project(ctx, selectExpr, matched)
}

func (q *Query) project(ctx context.Context, selectExpr string, records []map[string]any) (any, error) {
	if selectExpr == "" {
		return records, nil
	}
	out, err := q.proj.Project(ctx, selectExpr, records)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

// graphRecord and equationRecord expose records to CEL and jq with the same
// field names as the JSON API. Integers stay integers for CEL comparisons.
func graphRecord(g *store.Graph) map[string]any {
	return map[string]any{
		"id":      g.ID,
		"name":    g.Name,
		"preview": g.Preview,
		"owner":   g.Owner,
		"created": g.Created.UTC().Format(time.RFC3339),
		"updated": g.Updated.UTC().Format(time.RFC3339),
	}
}

func equationRecord(eq *store.Equation) map[string]any {
	return map[string]any{
		"id":              eq.ID,
		"graph":           eq.GraphID,
		"equation":        eq.Equation,
		"parsed_equation": eq.ParsedEquation,
		"color":           eq.Color,
		"line_style":      string(eq.LineStyle),
		"line_width":      eq.LineWidth,
	}
}
