package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/graphcalc/internal/resolver"
	"github.com/rendis/graphcalc/pkg/schema"
)

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	m, err := NewManager(resolver.NewResolver(resolver.WithLogger(logger)), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Stop() })
	return m
}

func TestManager_CreateWithClose(t *testing.T) {
	m := newTestManager(t, Config{})
	ctx := context.Background()

	id, err := m.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, []string{id}, m.IDs())

	err = m.With(ctx, id, func(s *resolver.Session) error {
		assert.Equal(t, id, s.ID())
		res := m.Resolver().Execute(ctx, s, "f(x)=x*2")
		require.True(t, res.OK)
		return nil
	})
	require.NoError(t, err)

	err = m.With(ctx, id, func(s *resolver.Session) error {
		res := m.Resolver().ForceResolve(ctx, s, "f(3)")
		require.True(t, res.OK)
		assert.Equal(t, "3*2", res.Message)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, m.Close(ctx, id))
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, schema.ErrCodeNotFound, schema.CodeOf(m.Close(ctx, id)))
}

func TestManager_WithUnknownSession(t *testing.T) {
	m := newTestManager(t, Config{})
	err := m.With(context.Background(), "missing", func(*resolver.Session) error { return nil })
	assert.Equal(t, schema.ErrCodeNotFound, schema.CodeOf(err))
}

func TestManager_WithPropagatesError(t *testing.T) {
	m := newTestManager(t, Config{})
	id, err := m.Create(context.Background())
	require.NoError(t, err)

	boom := errors.New("boom")
	err = m.With(context.Background(), id, func(*resolver.Session) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestManager_DefaultRules(t *testing.T) {
	m := newTestManager(t, Config{DefaultRules: DefaultRules})
	ctx := context.Background()
	id, err := m.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, m.With(ctx, id, func(s *resolver.Session) error {
		require.Len(t, s.Rules(), 1)
		res := m.Resolver().Execute(ctx, s, "x**2")
		assert.Equal(t, "x^2", res.Message)
		return nil
	}))
}

func TestManager_InvalidConfig(t *testing.T) {
	_, err := NewManager(nil, Config{SweepSchedule: "every now and then"}, nil)
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))

	_, err = NewManager(nil, Config{DefaultRules: []Rule{{Pattern: "(", Replacement: ""}}}, nil)
	assert.Equal(t, schema.ErrCodeInvalidRule, schema.CodeOf(err))
}

func TestManager_Sweep(t *testing.T) {
	m := newTestManager(t, Config{TTL: time.Minute})
	ctx := context.Background()

	idle, err := m.Create(ctx)
	require.NoError(t, err)
	m.now = func() time.Time { return time.Now().Add(50 * time.Second) }
	fresh, err := m.Create(ctx)
	require.NoError(t, err)

	evicted := m.Sweep(time.Now().Add(90 * time.Second))
	assert.Equal(t, 1, evicted)
	assert.Equal(t, []string{fresh}, m.IDs())

	err = m.With(ctx, idle, func(*resolver.Session) error { return nil })
	assert.Equal(t, schema.ErrCodeNotFound, schema.CodeOf(err))
}

func TestManager_OnRemove(t *testing.T) {
	m := newTestManager(t, Config{TTL: time.Minute})
	ctx := context.Background()

	var removed []string
	m.OnRemove(func(id string) { removed = append(removed, id) })

	closed, err := m.Create(ctx)
	require.NoError(t, err)
	idle, err := m.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Close(ctx, closed))
	assert.Equal(t, 1, m.Sweep(time.Now().Add(time.Hour)))
	assert.Equal(t, []string{closed, idle}, removed)

	// Unknown IDs and empty sweeps notify nobody.
	assert.Error(t, m.Close(ctx, closed))
	assert.Equal(t, 0, m.Sweep(time.Now().Add(time.Hour)))
	assert.Len(t, removed, 2)
}

func TestManager_SweepDisabled(t *testing.T) {
	m := newTestManager(t, Config{})
	_, err := m.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, m.Sweep(time.Now().Add(24*time.Hour)))
	assert.Equal(t, 1, m.Len())
}

func TestManager_SweepSkipsBusySession(t *testing.T) {
	m := newTestManager(t, Config{TTL: time.Nanosecond})
	ctx := context.Background()
	id, err := m.Create(ctx)
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = m.With(ctx, id, func(*resolver.Session) error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered
	assert.Equal(t, 0, m.Sweep(time.Now().Add(time.Hour)))
	close(release)
	wg.Wait()
	assert.Equal(t, 1, m.Sweep(time.Now().Add(time.Hour)))
}

func TestManager_StartStop(t *testing.T) {
	m := newTestManager(t, Config{TTL: time.Nanosecond, SweepSchedule: "@every 10ms"})
	ctx := context.Background()
	_, err := m.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Start(ctx))
	assert.Error(t, m.Start(ctx))

	assert.Eventually(t, func() bool { return m.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())
}

func TestManager_ConcurrentSessions(t *testing.T) {
	m := newTestManager(t, Config{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := m.Create(ctx)
			if !assert.NoError(t, err) {
				return
			}
			for j := 0; j < 10; j++ {
				_ = m.With(ctx, id, func(s *resolver.Session) error {
					m.Resolver().Execute(ctx, s, "g(x)=x+1")
					return nil
				})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, m.Len())
}
