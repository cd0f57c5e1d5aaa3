package store

import "context"

// Store defines the persistence layer contract for graphs and their equations.
// All implementations must be safe for concurrent use.
type Store interface {
	// Graphs
	CreateGraph(ctx context.Context, g *Graph) error
	GetGraph(ctx context.Context, id string) (*Graph, error)
	UpdateGraph(ctx context.Context, id string, update GraphUpdate) error
	ListGraphs(ctx context.Context, filter GraphFilter) ([]*Graph, error)
	DeleteGraph(ctx context.Context, id string) error

	// Equations
	CreateEquation(ctx context.Context, eq *Equation) error
	GetEquation(ctx context.Context, id string) (*Equation, error)
	UpdateEquation(ctx context.Context, id string, update EquationUpdate) error
	ListEquations(ctx context.Context, filter EquationFilter) ([]*Equation, error)
	DeleteEquation(ctx context.Context, id string) error

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}
