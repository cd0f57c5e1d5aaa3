package store

import (
	"time"

	"github.com/rendis/graphcalc/pkg/schema"
)

// Graph is a named plot owned by a user.
type Graph struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Preview string    `json:"preview,omitempty"`
	Owner   string    `json:"owner"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// Equation is one plotted expression of a graph together with its styling.
type Equation struct {
	ID             string           `json:"id"`
	GraphID        string           `json:"graph"`
	Equation       string           `json:"equation"`
	ParsedEquation string           `json:"parsed_equation"`
	Color          int              `json:"color"`
	LineStyle      schema.LineStyle `json:"line_style"`
	LineWidth      int              `json:"line_width"`
	Created        time.Time        `json:"created"`
	Updated        time.Time        `json:"updated"`
}

// GraphUpdate holds the mutable graph fields; nil fields are left unchanged.
type GraphUpdate struct {
	Name    *string
	Preview *string
}

// EquationUpdate holds the mutable equation fields; nil fields are left unchanged.
type EquationUpdate struct {
	Equation       *string
	ParsedEquation *string
	Color          *int
	LineStyle      *schema.LineStyle
	LineWidth      *int
}

// GraphFilter narrows ListGraphs. Results are ordered by name.
type GraphFilter struct {
	Owner string
	// NameContains matches graphs whose name contains the substring.
	NameContains string
	Limit        int
	Offset       int
}

// EquationFilter narrows ListEquations. Results are ordered by creation.
type EquationFilter struct {
	GraphID   string
	LineStyle schema.LineStyle
	Limit     int
}
