package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/graphcalc/pkg/schema"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	s, err := NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = s.Close()
		_ = os.RemoveAll(dir)
	})
	return s
}

func seedGraph(t *testing.T, s *LibSQLStore, owner, name string) *Graph {
	t.Helper()
	g := &Graph{ID: uuid.New().String(), Name: name, Owner: owner}
	require.NoError(t, s.CreateGraph(context.Background(), g))
	return g
}

func seedEquation(t *testing.T, s *LibSQLStore, graphID, text string) *Equation {
	t.Helper()
	eq := &Equation{
		ID:        uuid.New().String(),
		GraphID:   graphID,
		Equation:  text,
		Color:     0xff0000,
		LineWidth: schema.DefaultLineWidth,
	}
	require.NoError(t, s.CreateEquation(context.Background(), eq))
	return eq
}

func assertCode(t *testing.T, code string, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, schema.CodeOf(err))
}

// --- Migration Tests ---

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))

	version, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].Version, version)

	var applied int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM schema_version`).Scan(&applied))
	assert.Equal(t, len(migrations), applied)
}

func TestSchemaVersion_BeforeMigrate(t *testing.T) {
	s, err := NewLibSQLStore("file:" + filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	version, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, version)
}

func TestMigrations_Embedded(t *testing.T) {
	require.GreaterOrEqual(t, len(migrations), 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "initial_schema", migrations[0].Name)
	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].Version, migrations[i].Version)
	}
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/002_second.sql": {Data: []byte("CREATE TABLE b (x TEXT);")},
		"m/001_first.sql":  {Data: []byte("CREATE TABLE a (x TEXT);")},
		"m/README.md":      {Data: []byte("ignored")},
	}
	ms, err := loadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "first", ms[0].Name)
	assert.Equal(t, 2, ms[1].Version)

	fsys["m/002_again.sql"] = &fstest.MapFile{Data: []byte("SELECT 1;")}
	_, err = loadMigrations(fsys, "m")
	assert.ErrorContains(t, err, "version 2")
}

func TestParseMigrationName(t *testing.T) {
	v, name, err := parseMigrationName("010_add_index.sql")
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	assert.Equal(t, "add_index", name)

	for _, bad := range []string{"noversion.sql", "abc_name.sql", "000_zero.sql", "003_.sql"} {
		_, _, err := parseMigrationName(bad)
		assert.Error(t, err, bad)
	}
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- comment only;\nCREATE TABLE a (x TEXT);\n\nCREATE INDEX i ON a (x);")
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x TEXT)", stmts[0])

	stmts = splitStatements("-- index\nCREATE INDEX j ON a (x);\n-- trailing note\n")
	assert.Equal(t, []string{"CREATE INDEX j ON a (x)"}, stmts)
}

// --- Graph Tests ---

func TestCreateAndGetGraph(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := &Graph{ID: uuid.New().String(), Name: "parabolas", Preview: "p.png", Owner: "ada"}
	require.NoError(t, s.CreateGraph(ctx, g))
	assert.False(t, g.Created.IsZero())

	got, err := s.GetGraph(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "parabolas", got.Name)
	assert.Equal(t, "p.png", got.Preview)
	assert.Equal(t, "ada", got.Owner)
	assert.False(t, got.Updated.IsZero())
}

func TestGetGraph_NotFound(t *testing.T) {
	_, err := newTestStore(t).GetGraph(context.Background(), "nonexistent")
	assertCode(t, schema.ErrCodeNotFound, err)
}

func TestCreateGraph_NameUniquePerOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedGraph(t, s, "ada", "lines")

	err := s.CreateGraph(ctx, &Graph{ID: uuid.New().String(), Name: "lines", Owner: "ada"})
	assertCode(t, schema.ErrCodeConflict, err)

	// Same name under another owner is fine.
	require.NoError(t, s.CreateGraph(ctx, &Graph{ID: uuid.New().String(), Name: "lines", Owner: "bob"}))
}

func TestUpdateGraph(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g := seedGraph(t, s, "ada", "old")

	name, preview := "new", "thumb.png"
	require.NoError(t, s.UpdateGraph(ctx, g.ID, GraphUpdate{Name: &name, Preview: &preview}))

	got, err := s.GetGraph(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)
	assert.Equal(t, "thumb.png", got.Preview)
	assert.False(t, got.Updated.Before(got.Created))

	require.NoError(t, s.UpdateGraph(ctx, g.ID, GraphUpdate{}))
	assertCode(t, schema.ErrCodeNotFound, s.UpdateGraph(ctx, "missing", GraphUpdate{Name: &name}))
}

func TestUpdateGraph_Conflict(t *testing.T) {
	s := newTestStore(t)
	seedGraph(t, s, "ada", "taken")
	g := seedGraph(t, s, "ada", "free")

	name := "taken"
	assertCode(t, schema.ErrCodeConflict, s.UpdateGraph(context.Background(), g.ID, GraphUpdate{Name: &name}))
}

func TestListGraphs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedGraph(t, s, "ada", "cubic")
	seedGraph(t, s, "ada", "affine")
	seedGraph(t, s, "bob", "circle")

	all, err := s.ListGraphs(ctx, GraphFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"affine", "circle", "cubic"}, []string{all[0].Name, all[1].Name, all[2].Name})

	ada, err := s.ListGraphs(ctx, GraphFilter{Owner: "ada"})
	require.NoError(t, err)
	assert.Len(t, ada, 2)

	named, err := s.ListGraphs(ctx, GraphFilter{NameContains: "ic"})
	require.NoError(t, err)
	assert.Len(t, named, 1)
	assert.Equal(t, "cubic", named[0].Name)

	page, err := s.ListGraphs(ctx, GraphFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "circle", page[0].Name)
}

func TestDeleteGraph_CascadesEquations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g := seedGraph(t, s, "ada", "doomed")
	eq := seedEquation(t, s, g.ID, "y=x")

	require.NoError(t, s.DeleteGraph(ctx, g.ID))
	_, err := s.GetGraph(ctx, g.ID)
	assertCode(t, schema.ErrCodeNotFound, err)
	_, err = s.GetEquation(ctx, eq.ID)
	assertCode(t, schema.ErrCodeNotFound, err)

	assertCode(t, schema.ErrCodeNotFound, s.DeleteGraph(ctx, g.ID))
}

// --- Equation Tests ---

func TestCreateAndGetEquation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g := seedGraph(t, s, "ada", "g")

	eq := &Equation{
		ID:             uuid.New().String(),
		GraphID:        g.ID,
		Equation:       `y=\frac{x}{2}`,
		ParsedEquation: "y = x / 2",
		Color:          0x00ff00,
		LineStyle:      schema.LineStyleDashed,
		LineWidth:      3,
	}
	require.NoError(t, s.CreateEquation(ctx, eq))

	got, err := s.GetEquation(ctx, eq.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.GraphID)
	assert.Equal(t, `y=\frac{x}{2}`, got.Equation)
	assert.Equal(t, "y = x / 2", got.ParsedEquation)
	assert.Equal(t, 0x00ff00, got.Color)
	assert.Equal(t, schema.LineStyleDashed, got.LineStyle)
	assert.Equal(t, 3, got.LineWidth)
}

func TestCreateEquation_DefaultsLineStyle(t *testing.T) {
	s := newTestStore(t)
	g := seedGraph(t, s, "ada", "g")
	eq := seedEquation(t, s, g.ID, "y=1")

	got, err := s.GetEquation(context.Background(), eq.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.DefaultLineStyle, got.LineStyle)
}

func TestCreateEquation_MissingGraph(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateEquation(context.Background(), &Equation{ID: uuid.New().String(), GraphID: "nope", Equation: "y=x"})
	assertCode(t, schema.ErrCodeNotFound, err)
}

func TestUpdateEquation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g := seedGraph(t, s, "ada", "g")
	eq := seedEquation(t, s, g.ID, "y=x")

	text, parsed, color, width := "y=2x", "y = 2 * x", 0x0000ff, 5
	style := schema.LineStyleDotted
	require.NoError(t, s.UpdateEquation(ctx, eq.ID, EquationUpdate{
		Equation: &text, ParsedEquation: &parsed, Color: &color, LineStyle: &style, LineWidth: &width,
	}))

	got, err := s.GetEquation(ctx, eq.ID)
	require.NoError(t, err)
	assert.Equal(t, "y=2x", got.Equation)
	assert.Equal(t, "y = 2 * x", got.ParsedEquation)
	assert.Equal(t, 0x0000ff, got.Color)
	assert.Equal(t, schema.LineStyleDotted, got.LineStyle)
	assert.Equal(t, 5, got.LineWidth)

	assertCode(t, schema.ErrCodeNotFound, s.UpdateEquation(ctx, "missing", EquationUpdate{Color: &color}))
}

func TestListEquations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g1 := seedGraph(t, s, "ada", "one")
	g2 := seedGraph(t, s, "ada", "two")
	seedEquation(t, s, g1.ID, "y=x")
	seedEquation(t, s, g1.ID, "y=x^2")
	seedEquation(t, s, g2.ID, "y=1")

	eqs, err := s.ListEquations(ctx, EquationFilter{GraphID: g1.ID})
	require.NoError(t, err)
	assert.Len(t, eqs, 2)

	all, err := s.ListEquations(ctx, EquationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := s.ListEquations(ctx, EquationFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	dashed, err := s.ListEquations(ctx, EquationFilter{LineStyle: schema.LineStyleDashed})
	require.NoError(t, err)
	assert.Empty(t, dashed)
}

func TestDeleteEquation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g := seedGraph(t, s, "ada", "g")
	eq := seedEquation(t, s, g.ID, "y=x")

	require.NoError(t, s.DeleteEquation(ctx, eq.ID))
	assertCode(t, schema.ErrCodeNotFound, s.DeleteEquation(ctx, eq.ID))
}

func TestVacuum(t *testing.T) {
	require.NoError(t, newTestStore(t).Vacuum(context.Background()))
}
