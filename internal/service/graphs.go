package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/rendis/graphcalc/internal/logging"
	"github.com/rendis/graphcalc/internal/store"
	"github.com/rendis/graphcalc/internal/validation"
	"github.com/rendis/graphcalc/pkg/schema"
)

// DefaultOwner owns graphs created without an explicit owner.
const DefaultOwner = "anonymous"

// GraphInput is the create/update payload of a graph. Nil fields are absent.
type GraphInput struct {
	Name    *string `json:"name,omitempty"`
	Preview *string `json:"preview,omitempty"`
	Owner   *string `json:"owner,omitempty"`
}

// EquationInput is the create/update payload of an equation. LineStyle
// accepts the plot symbol ("--") or its name ("dashed").
type EquationInput struct {
	Graph          *string `json:"graph,omitempty"`
	Equation       *string `json:"equation,omitempty"`
	ParsedEquation *string `json:"parsed_equation,omitempty"`
	Color          *int    `json:"color,omitempty"`
	LineStyle      *string `json:"line_style,omitempty"`
	LineWidth      *int    `json:"line_width,omitempty"`
	// SessionID, when set, parses the equation inside that resolver session.
	SessionID string `json:"session_id,omitempty"`
}

// payload drops the fields that are not part of the stored record.
func (in EquationInput) payload() EquationInput {
	in.SessionID = ""
	return in
}

// GraphDetail is a graph together with its equations.
type GraphDetail struct {
	*store.Graph
	Equations []*store.Equation `json:"equations"`
}

// Graphs manages graphs and their equations.
type Graphs struct {
	store     store.Store
	validator validation.Validator
	parser    *Parser
	logger    *slog.Logger
}

// NewGraphs creates the graph service.
func NewGraphs(s store.Store, v validation.Validator, p *Parser, logger *slog.Logger) *Graphs {
	if logger == nil {
		logger = slog.Default()
	}
	return &Graphs{store: s, validator: v, parser: p, logger: logger}
}

// CreateGraph validates and stores a new graph.
func (g *Graphs) CreateGraph(ctx context.Context, in GraphInput) (*store.Graph, error) {
	if err := g.validator.ValidateGraph(in, false); err != nil {
		return nil, err
	}
	graph := &store.Graph{
		ID:    uuid.New().String(),
		Name:  strings.TrimSpace(*in.Name),
		Owner: DefaultOwner,
	}
	if in.Preview != nil {
		graph.Preview = *in.Preview
	}
	if in.Owner != nil {
		graph.Owner = *in.Owner
	}
	if err := g.store.CreateGraph(ctx, graph); err != nil {
		return nil, err
	}
	logging.LogWith(logging.WithGraphID(ctx, graph.ID), g.logger).Info("graph created",
		slog.String("name", graph.Name), slog.String("owner", graph.Owner))
	return graph, nil
}

// GetGraph returns a graph with its equations.
func (g *Graphs) GetGraph(ctx context.Context, id string) (*GraphDetail, error) {
	graph, err := g.store.GetGraph(ctx, id)
	if err != nil {
		return nil, err
	}
	eqs, err := g.store.ListEquations(ctx, store.EquationFilter{GraphID: id})
	if err != nil {
		return nil, err
	}
	if eqs == nil {
		eqs = []*store.Equation{}
	}
	return &GraphDetail{Graph: graph, Equations: eqs}, nil
}

// ListGraphs lists graphs ordered by name.
func (g *Graphs) ListGraphs(ctx context.Context, filter store.GraphFilter) ([]*store.Graph, error) {
	graphs, err := g.store.ListGraphs(ctx, filter)
	if err != nil {
		return nil, err
	}
	if graphs == nil {
		graphs = []*store.Graph{}
	}
	return graphs, nil
}

// UpdateGraph applies the present fields of in. The owner never changes.
func (g *Graphs) UpdateGraph(ctx context.Context, id string, in GraphInput) (*store.Graph, error) {
	if in.Owner != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "owner cannot be changed")
	}
	if err := g.validator.ValidateGraph(in, true); err != nil {
		return nil, err
	}
	update := store.GraphUpdate{Preview: in.Preview}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		update.Name = &name
	}
	if err := g.store.UpdateGraph(ctx, id, update); err != nil {
		return nil, err
	}
	return g.store.GetGraph(ctx, id)
}

// DeleteGraph removes a graph and its equations.
func (g *Graphs) DeleteGraph(ctx context.Context, id string) error {
	if err := g.store.DeleteGraph(ctx, id); err != nil {
		return err
	}
	logging.LogWith(logging.WithGraphID(ctx, id), g.logger).Info("graph deleted")
	return nil
}

// CreateEquation stores an equation on a graph. An omitted parsed_equation
// is filled by parsing the equation.
func (g *Graphs) CreateEquation(ctx context.Context, in EquationInput) (*store.Equation, error) {
	if err := normalizeLineStyle(&in); err != nil {
		return nil, err
	}
	if err := g.validator.ValidateEquation(in.payload(), false); err != nil {
		return nil, err
	}

	eq := &store.Equation{
		ID:        uuid.New().String(),
		GraphID:   *in.Graph,
		Equation:  *in.Equation,
		Color:     schema.DefaultEquationHex,
		LineStyle: schema.DefaultLineStyle,
		LineWidth: schema.DefaultLineWidth,
	}
	if in.Color != nil {
		eq.Color = *in.Color
	}
	if in.LineStyle != nil {
		eq.LineStyle = schema.LineStyle(*in.LineStyle)
	}
	if in.LineWidth != nil {
		eq.LineWidth = *in.LineWidth
	}
	if in.ParsedEquation != nil {
		eq.ParsedEquation = *in.ParsedEquation
	} else {
		parsed, err := g.parsedText(ctx, in.SessionID, eq.Equation)
		if err != nil {
			return nil, err
		}
		eq.ParsedEquation = parsed
	}

	if err := g.store.CreateEquation(ctx, eq); err != nil {
		return nil, err
	}
	logging.LogWith(logging.WithGraphID(ctx, eq.GraphID), g.logger).Info("equation added",
		slog.String("equation_id", eq.ID), slog.String("parsed", eq.ParsedEquation))
	return eq, nil
}

// GetEquation returns one equation.
func (g *Graphs) GetEquation(ctx context.Context, id string) (*store.Equation, error) {
	return g.store.GetEquation(ctx, id)
}

// UpdateEquation applies the present fields of in. Changing the equation
// without a parsed_equation re-parses it. Equations cannot move between graphs.
func (g *Graphs) UpdateEquation(ctx context.Context, id string, in EquationInput) (*store.Equation, error) {
	if err := normalizeLineStyle(&in); err != nil {
		return nil, err
	}
	if err := g.validator.ValidateEquation(in.payload(), true); err != nil {
		return nil, err
	}
	current, err := g.store.GetEquation(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Graph != nil && *in.Graph != current.GraphID {
		return nil, schema.NewError(schema.ErrCodeValidation, "equation cannot move to another graph")
	}

	update := store.EquationUpdate{
		Equation:       in.Equation,
		ParsedEquation: in.ParsedEquation,
		Color:          in.Color,
		LineWidth:      in.LineWidth,
	}
	if in.LineStyle != nil {
		ls := schema.LineStyle(*in.LineStyle)
		update.LineStyle = &ls
	}
	if in.Equation != nil && in.ParsedEquation == nil && *in.Equation != current.Equation {
		parsed, err := g.parsedText(ctx, in.SessionID, *in.Equation)
		if err != nil {
			return nil, err
		}
		update.ParsedEquation = &parsed
	}

	if err := g.store.UpdateEquation(ctx, id, update); err != nil {
		return nil, err
	}
	return g.store.GetEquation(ctx, id)
}

// DeleteEquation removes one equation.
func (g *Graphs) DeleteEquation(ctx context.Context, id string) error {
	return g.store.DeleteEquation(ctx, id)
}

func (g *Graphs) parsedText(ctx context.Context, sessionID, equation string) (string, error) {
	res, err := g.parser.ParseEquation(ctx, sessionID, equation)
	if err != nil {
		return "", err
	}
	if len(res.Parsed) > schema.MaxParsedLen {
		return "", schema.NewErrorf(schema.ErrCodeValidation,
			"parsed equation is %d characters, the limit is %d", len(res.Parsed), schema.MaxParsedLen)
	}
	return res.Parsed, nil
}

// normalizeLineStyle rewrites a line style name to its symbol so the schema
// enum sees the stored form.
func normalizeLineStyle(in *EquationInput) error {
	if in.LineStyle == nil {
		return nil
	}
	ls, err := schema.ParseLineStyle(*in.LineStyle)
	if err != nil {
		return err
	}
	s := string(ls)
	in.LineStyle = &s
	return nil
}
