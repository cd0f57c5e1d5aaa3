package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rendis/graphcalc/internal/logging"
	"github.com/rendis/graphcalc/pkg/mcp"
)

// runMCP serves the MCP tools on stdio. Logs go to stderr since stdout
// carries the protocol.
func runMCP(args []string) {
	cfg := loadConfig()

	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "database path")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logger := logging.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.sessions.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	srv := mcp.NewGraphcalcServer(mcp.ServerDeps{
		Sessions: a.sessions,
		Parser:   a.parser,
		Query:    a.query,
		Logger:   logger,
		Version:  version,
	})
	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		logger.Error("mcp server stopped", "error", err)
		a.Close()
		os.Exit(1)
	}
}
