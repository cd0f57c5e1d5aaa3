package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/graphcalc/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/graphcalc.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db, migrations)
}

// SchemaVersion reports the highest applied migration, 0 before Migrate.
func (s *LibSQLStore) SchemaVersion(ctx context.Context) (int, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check schema_version: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}
	return schemaVersion(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Graphs ---

func (s *LibSQLStore) CreateGraph(ctx context.Context, g *Graph) error {
	g.Created = timeOrNow(g.Created)
	if g.Updated.IsZero() {
		g.Updated = g.Created
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO graphs (id, name, preview, owner, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, nullStr(g.Preview), g.Owner, g.Created, g.Updated,
	)
	return mapConstraint(err, "graph", g.Name)
}

func (s *LibSQLStore) GetGraph(ctx context.Context, id string) (*Graph, error) {
	g := &Graph{}
	var preview sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, preview, owner, created_at, updated_at FROM graphs WHERE id = ?`, id,
	).Scan(&g.ID, &g.Name, &preview, &g.Owner, &g.Created, &g.Updated)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("graph", id)
	}
	if err != nil {
		return nil, err
	}
	g.Preview = preview.String
	return g, nil
}

func (s *LibSQLStore) UpdateGraph(ctx context.Context, id string, update GraphUpdate) error {
	var sets []string
	var args []any

	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Preview != nil {
		sets = append(sets, "preview = ?")
		args = append(args, nullStr(*update.Preview))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE graphs SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		name := id
		if update.Name != nil {
			name = *update.Name
		}
		return mapConstraint(err, "graph", name)
	}
	return checkRowsAffected(res, "graph", id)
}

func (s *LibSQLStore) ListGraphs(ctx context.Context, filter GraphFilter) ([]*Graph, error) {
	query := `SELECT id, name, preview, owner, created_at, updated_at FROM graphs`
	var where []string
	var args []any

	if filter.Owner != "" {
		where = append(where, "owner = ?")
		args = append(args, filter.Owner)
	}
	if filter.NameContains != "" {
		where = append(where, "instr(name, ?) > 0")
		args = append(args, filter.NameContains)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name, owner"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var graphs []*Graph
	for rows.Next() {
		g := &Graph{}
		var preview sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &preview, &g.Owner, &g.Created, &g.Updated); err != nil {
			return nil, err
		}
		g.Preview = preview.String
		graphs = append(graphs, g)
	}
	return graphs, rows.Err()
}

// DeleteGraph removes a graph and every equation plotted on it.
func (s *LibSQLStore) DeleteGraph(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM equations WHERE graph_id = ?`, id); err != nil {
		_ = tx.Rollback()
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM graphs WHERE id = ?`, id)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := checkRowsAffected(res, "graph", id); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// --- Equations ---

func (s *LibSQLStore) CreateEquation(ctx context.Context, eq *Equation) error {
	if _, err := s.GetGraph(ctx, eq.GraphID); err != nil {
		return err
	}
	eq.Created = timeOrNow(eq.Created)
	if eq.Updated.IsZero() {
		eq.Updated = eq.Created
	}
	if eq.LineStyle == "" {
		eq.LineStyle = schema.DefaultLineStyle
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO equations (id, graph_id, equation, parsed_equation, color, line_style, line_width, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		eq.ID, eq.GraphID, eq.Equation, eq.ParsedEquation, eq.Color, string(eq.LineStyle), eq.LineWidth,
		eq.Created, eq.Updated,
	)
	return mapConstraint(err, "equation", eq.ID)
}

func (s *LibSQLStore) GetEquation(ctx context.Context, id string) (*Equation, error) {
	eq := &Equation{}
	var style string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, graph_id, equation, parsed_equation, color, line_style, line_width, created_at, updated_at
		 FROM equations WHERE id = ?`, id,
	).Scan(&eq.ID, &eq.GraphID, &eq.Equation, &eq.ParsedEquation, &eq.Color, &style, &eq.LineWidth,
		&eq.Created, &eq.Updated)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("equation", id)
	}
	if err != nil {
		return nil, err
	}
	eq.LineStyle = schema.LineStyle(style)
	return eq, nil
}

func (s *LibSQLStore) UpdateEquation(ctx context.Context, id string, update EquationUpdate) error {
	var sets []string
	var args []any

	if update.Equation != nil {
		sets = append(sets, "equation = ?")
		args = append(args, *update.Equation)
	}
	if update.ParsedEquation != nil {
		sets = append(sets, "parsed_equation = ?")
		args = append(args, *update.ParsedEquation)
	}
	if update.Color != nil {
		sets = append(sets, "color = ?")
		args = append(args, *update.Color)
	}
	if update.LineStyle != nil {
		sets = append(sets, "line_style = ?")
		args = append(args, string(*update.LineStyle))
	}
	if update.LineWidth != nil {
		sets = append(sets, "line_width = ?")
		args = append(args, *update.LineWidth)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE equations SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "equation", id)
}

func (s *LibSQLStore) ListEquations(ctx context.Context, filter EquationFilter) ([]*Equation, error) {
	query := `SELECT id, graph_id, equation, parsed_equation, color, line_style, line_width, created_at, updated_at FROM equations`
	var where []string
	var args []any

	if filter.GraphID != "" {
		where = append(where, "graph_id = ?")
		args = append(args, filter.GraphID)
	}
	if filter.LineStyle != "" {
		where = append(where, "line_style = ?")
		args = append(args, string(filter.LineStyle))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var equations []*Equation
	for rows.Next() {
		eq := &Equation{}
		var style string
		if err := rows.Scan(&eq.ID, &eq.GraphID, &eq.Equation, &eq.ParsedEquation, &eq.Color, &style,
			&eq.LineWidth, &eq.Created, &eq.Updated); err != nil {
			return nil, err
		}
		eq.LineStyle = schema.LineStyle(style)
		equations = append(equations, eq)
	}
	return equations, rows.Err()
}

func (s *LibSQLStore) DeleteEquation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM equations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "equation", id)
}

// --- Helpers ---

func storeNotFound(resource, id string) *schema.GraphcalcError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

// mapConstraint turns SQLite constraint violations into typed errors.
func mapConstraint(err error, resource, key string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return schema.NewErrorf(schema.ErrCodeConflict, "%s %q already exists", resource, key).WithCause(err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q references a missing graph", resource, key).WithCause(err)
	}
	return schema.NewErrorf(schema.ErrCodeStore, "write %s: %s", resource, msg).WithCause(err)
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
