package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rendis/graphcalc/internal/expressions"
	"github.com/rendis/graphcalc/internal/resolver"
	"github.com/rendis/graphcalc/internal/service"
	"github.com/rendis/graphcalc/internal/session"
	"github.com/rendis/graphcalc/internal/store"
	"github.com/rendis/graphcalc/internal/validation"
)

// app is the wired set of components shared by serve and mcp.
type app struct {
	store    *store.LibSQLStore
	sessions *session.Manager
	parser   *service.Parser
	graphs   *service.Graphs
	query    *service.Query
	logger   *slog.Logger
}

func buildApp(ctx context.Context, cfg Config, logger *slog.Logger) (*app, error) {
	sessions, err := newSessions(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	st, err := store.NewLibSQLStore(cfg.dsn())
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	v, err := validation.NewPayloadValidator()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	q, err := service.NewQuery(st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	p := service.NewParser(sessions, expressions.NewExprSimplifier(), cfg.DefaultRules, logger)
	return &app{
		store:    st,
		sessions: sessions,
		parser:   p,
		graphs:   service.NewGraphs(st, v, p, logger),
		query:    q,
		logger:   logger,
	}, nil
}

func newSessions(cfg Config, logger *slog.Logger) (*session.Manager, error) {
	scfg, err := cfg.sessionConfig()
	if err != nil {
		return nil, err
	}
	r := resolver.NewResolver(
		resolver.WithMaxDepth(cfg.MaxDepth),
		resolver.WithMaxSubstitutions(cfg.MaxSubstitutions),
		resolver.WithStrictNames(cfg.StrictNames),
		resolver.WithLogger(logger),
	)
	return session.NewManager(r, scfg, logger)
}

func (a *app) Close() error {
	if err := a.sessions.Stop(); err != nil {
		a.logger.Warn("session sweeper stop failed", slog.String("error", err.Error()))
	}
	return a.store.Close()
}
