package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rendis/graphcalc/internal/expressions"
	"github.com/rendis/graphcalc/internal/logging"
	"github.com/rendis/graphcalc/internal/service"
	"github.com/rendis/graphcalc/pkg/schema"
)

// runResolve executes statements from args, or stdin lines when no args are
// given, in one session and prints one result per statement.
func runResolve(args []string) {
	cfg := loadConfig()

	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	parsed := fs.Bool("parsed", false, "print the simplified parsed equation instead of the resolved text")
	fs.IntVar(&cfg.MaxDepth, "max-depth", cfg.MaxDepth, "maximum substitution depth")
	fs.StringVar(&cfg.LogLevel, "log-level", "warn", "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	stmts := fs.Args()
	if len(stmts) == 0 {
		var err error
		if stmts, err = readStatements(os.Stdin); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	logger := logging.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	sessions, err := newSessions(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	id, err := sessions.Create(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	p := service.NewParser(sessions, expressions.NewExprSimplifier(), cfg.DefaultRules, logger)

	if failed := resolveStatements(ctx, os.Stdout, p, id, stmts, *parsed); failed > 0 {
		os.Exit(1)
	}
}

// resolveStatements writes one line per statement and returns how many failed.
// Later statements still run after a failure.
func resolveStatements(ctx context.Context, w io.Writer, p *service.Parser, sessionID string, stmts []string, parsed bool) int {
	failed := 0
	for _, stmt := range stmts {
		res, err := p.ParseEquation(ctx, sessionID, stmt)
		if err != nil {
			failed++
			msg := err.Error()
			if ge, ok := schema.AsError(err); ok {
				msg = ge.Code + ": " + ge.Message
			}
			fmt.Fprintf(w, "error\t%s\n", msg)
			continue
		}
		out := res.Resolved
		if parsed {
			out = res.Parsed
		}
		fmt.Fprintf(w, "%s\t%s\n", res.Kind, out)
	}
	return failed
}

// readStatements returns the non-blank lines of r. Lines starting with # are comments.
func readStatements(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}
