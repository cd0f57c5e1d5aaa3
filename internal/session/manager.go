// Package session keeps resolver sessions alive between requests.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/graphcalc/internal/logging"
	"github.com/rendis/graphcalc/internal/resolver"
	"github.com/rendis/graphcalc/pkg/schema"
)

const (
	DefaultTTL           = 30 * time.Minute
	DefaultSweepSchedule = "@every 1m"
)

// Rule is a substitution rule installed on every new session.
type Rule struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
}

// DefaultRules rewrites ** exponentiation to the caret form.
var DefaultRules = []Rule{{Pattern: `\*\*`, Replacement: "^"}}

// Config tunes session lifetime.
type Config struct {
	// TTL evicts sessions idle for longer. Zero or negative disables eviction.
	TTL time.Duration
	// SweepSchedule is a 5-field cron expression or a descriptor such as "@every 1m".
	SweepSchedule string
	DefaultRules  []Rule
}

type entry struct {
	mu       sync.Mutex
	session  *resolver.Session
	lastUsed time.Time
	closed   bool
}

// Manager owns resolver sessions keyed by ID and serializes access to each one.
type Manager struct {
	resolver *resolver.Resolver
	cfg      Config
	schedule cron.Schedule
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry

	hooksMu  sync.RWMutex
	onRemove []func(id string)

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager validates cfg and returns an empty manager.
func NewManager(r *resolver.Resolver, cfg Config, logger *slog.Logger) (*Manager, error) {
	if r == nil {
		r = resolver.NewResolver()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = DefaultSweepSchedule
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(cfg.SweepSchedule)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"parse sweep schedule %q: %s", cfg.SweepSchedule, err.Error()).WithCause(err)
	}

	check := resolver.NewSession()
	for _, rule := range cfg.DefaultRules {
		if err := check.AddSubRule(rule.Pattern, rule.Replacement); err != nil {
			return nil, err
		}
	}

	return &Manager{
		resolver: r,
		cfg:      cfg,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
		entries:  make(map[string]*entry),
	}, nil
}

// Resolver returns the resolver sessions are executed with.
func (m *Manager) Resolver() *resolver.Resolver { return m.resolver }

// Create opens a session with the default rules installed and returns its ID.
func (m *Manager) Create(ctx context.Context) (string, error) {
	s := m.resolver.CreateSession()
	for _, rule := range m.cfg.DefaultRules {
		if res := m.resolver.AddSubRule(ctx, s, rule.Pattern, rule.Replacement); !res.OK {
			return "", res.Err
		}
	}

	m.mu.Lock()
	m.entries[s.ID()] = &entry{session: s, lastUsed: m.now()}
	m.mu.Unlock()

	logging.LogWith(logging.WithSessionID(ctx, s.ID()), m.logger).Debug("session created",
		slog.Int("rules", len(m.cfg.DefaultRules)))
	return s.ID(), nil
}

// With runs fn while holding the session's lock. Calls on the same session
// never overlap; calls on different sessions run concurrently.
func (m *Manager) With(ctx context.Context, id string, fn func(*resolver.Session) error) error {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return notFound(id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return notFound(id)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e.lastUsed = m.now()
	return fn(e.session)
}

// Close discards a session.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	delete(m.entries, id)
	m.mu.Unlock()
	if !ok {
		return notFound(id)
	}

	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	m.removed(id)
	logging.LogWith(logging.WithSessionID(ctx, id), m.logger).Debug("session closed")
	return nil
}

// OnRemove registers fn to run with the ID of every session that leaves the
// manager, whether closed or evicted. Hooks run outside the manager's locks.
func (m *Manager) OnRemove(fn func(id string)) {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	m.onRemove = append(m.onRemove, fn)
}

func (m *Manager) removed(ids ...string) {
	m.hooksMu.RLock()
	hooks := m.onRemove
	m.hooksMu.RUnlock()
	for _, id := range ids {
		for _, fn := range hooks {
			fn(id)
		}
	}
}

// Len reports the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// IDs lists open session IDs in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Sweep evicts sessions idle for longer than the TTL as of now and returns
// how many were removed. Sessions in use are skipped.
func (m *Manager) Sweep(now time.Time) int {
	if m.cfg.TTL <= 0 {
		return 0
	}

	m.mu.Lock()
	var evicted []string
	for id, e := range m.entries {
		if !e.mu.TryLock() {
			continue
		}
		if now.Sub(e.lastUsed) > m.cfg.TTL {
			e.closed = true
			delete(m.entries, id)
			evicted = append(evicted, id)
		}
		e.mu.Unlock()
	}
	remaining := len(m.entries)
	m.mu.Unlock()

	if len(evicted) > 0 {
		m.removed(evicted...)
		m.logger.Info("evicted idle sessions", slog.Int("count", len(evicted)), slog.Int("remaining", remaining))
	}
	return len(evicted)
}

// Start launches the sweep loop on the configured schedule.
func (m *Manager) Start(ctx context.Context) error {
	m.runMu.Lock()
	if m.done != nil {
		m.runMu.Unlock()
		return fmt.Errorf("session manager already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.runMu.Unlock()

	go m.loop(loopCtx)
	m.logger.Info("session sweeper started",
		slog.String("schedule", m.cfg.SweepSchedule),
		slog.Duration("ttl", m.cfg.TTL))
	return nil
}

func (m *Manager) loop(ctx context.Context) {
	defer close(m.done)

	for {
		now := m.now()
		timer := time.NewTimer(m.schedule.Next(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			m.Sweep(m.now())
		}
	}
}

// Stop halts the sweep loop and waits for it to exit.
func (m *Manager) Stop() error {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.cancel == nil {
		return nil
	}

	m.cancel()
	<-m.done
	m.cancel = nil
	m.done = nil

	m.logger.Info("session sweeper stopped")
	return nil
}

func notFound(id string) error {
	return schema.NewErrorf(schema.ErrCodeNotFound, "session %q not found", id).WithSession(id)
}
