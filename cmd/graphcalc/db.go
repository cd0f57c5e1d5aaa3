package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rendis/graphcalc/internal/store"
)

const dbUsage = "usage: graphcalc db [flags] migrate|version|vacuum"

// runDB performs maintenance on the graph database without starting a server.
func runDB(args []string) {
	cfg := loadConfig()

	fs := flag.NewFlagSet("db", flag.ExitOnError)
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "database path")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, dbUsage)
		os.Exit(2)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "Error: create data dir: %v\n", err)
		os.Exit(1)
	}
	st, err := store.NewLibSQLStore(cfg.dsn())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := dbCommand(context.Background(), os.Stdout, st, fs.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		st.Close()
		os.Exit(1)
	}
}

func dbCommand(ctx context.Context, w io.Writer, st *store.LibSQLStore, action string) error {
	switch action {
	case "migrate":
		if err := st.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	case "version":
	case "vacuum":
		if err := st.Vacuum(ctx); err != nil {
			return fmt.Errorf("vacuum: %w", err)
		}
		fmt.Fprintln(w, "vacuum complete")
	default:
		return fmt.Errorf("unknown db action %q (%s)", action, dbUsage)
	}

	v, err := st.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "schema version %d\n", v)
	return nil
}
