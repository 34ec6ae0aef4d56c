package executor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/dialect"
	"github.com/aqasim81/safe-migrate/internal/executor"
	"github.com/aqasim81/safe-migrate/internal/migration"
)

func TestNew_defaultOptions(t *testing.T) {
	t.Parallel()

	exec := executor.New(nil, nil)

	require.NotNil(t, exec)
}

func TestNew_withOptions(t *testing.T) {
	t.Parallel()

	var received []executor.ProgressEvent
	cb := func(e executor.ProgressEvent) { received = append(received, e) }

	exec := executor.New(nil, nil,
		executor.WithDispatcher(analyzer.New()),
		executor.WithLockTimeout(10*time.Second),
		executor.WithStatementTimeout(30*time.Second),
		executor.WithDryRun(true),
		executor.WithProgressCallback(cb),
	)

	require.NotNil(t, exec)
	assert.Empty(t, received)
}

func TestProgressEvent_fields(t *testing.T) {
	t.Parallel()

	m := &migration.Migration{Version: "001", Name: "create_users"}
	testErr := errors.New("test error")

	event := executor.ProgressEvent{
		Migration: m,
		Direction: analyzer.Down,
		Status:    executor.StatusFailed,
		Duration:  5 * time.Second,
		Error:     testErr,
	}

	assert.Equal(t, m, event.Migration)
	assert.Equal(t, analyzer.Down, event.Direction)
	assert.Equal(t, executor.StatusFailed, event.Status)
	assert.Equal(t, 5*time.Second, event.Duration)
	assert.ErrorIs(t, event.Error, testErr)
}

func TestStatusConstants(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "starting", executor.StatusStarting)
	assert.Equal(t, "completed", executor.StatusCompleted)
	assert.Equal(t, "failed", executor.StatusFailed)
	assert.Equal(t, "skipped", executor.StatusSkipped)
	assert.Equal(t, "checked", executor.StatusChecked)
}

func TestRollback_rejectsZeroSteps(t *testing.T) {
	t.Parallel()

	exec := executor.New(nil, nil)

	err := exec.Rollback(context.Background(), nil, 0)
	assert.ErrorIs(t, err, executor.ErrInvalidSteps)
}

func TestSessionTimeouts(t *testing.T) {
	t.Parallel()

	conn := dialect.NewStatic("PostgreSQL", "160002")
	ctx := context.Background()

	require.NoError(t, executor.SetLockTimeout(ctx, conn, 1500*time.Millisecond))
	require.NoError(t, executor.SetStatementTimeout(ctx, conn, time.Minute))
	require.NoError(t, executor.ResetTimeouts(ctx, conn))

	assert.Equal(t, []string{
		"SET lock_timeout = '1500ms'",
		"SET statement_timeout = '60000ms'",
		"RESET lock_timeout",
		"RESET statement_timeout",
	}, conn.Executed())
}

type failingExecer struct{}

func (failingExecer) Exec(context.Context, string) error { return errors.New("connection reset") }

func TestSessionTimeouts_errorsAreWrapped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	err := executor.SetLockTimeout(ctx, failingExecer{}, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setting lock_timeout")

	err = executor.SetStatementTimeout(ctx, failingExecer{}, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setting statement_timeout")

	err = executor.ResetTimeouts(ctx, failingExecer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resetting timeouts")
}

func TestCheck_offline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		adapter string
		sql     string
		unsafe  bool
	}{
		{name: "new table with index", adapter: "PostgreSQL", sql: "CREATE TABLE t (id int);\nCREATE INDEX t_id ON t (id);"},
		{name: "index on existing table", adapter: "PostgreSQL", sql: "CREATE INDEX users_email ON users (email);", unsafe: true},
		{name: "concurrent index", adapter: "PostgreSQL", sql: "CREATE INDEX CONCURRENTLY users_email ON users (email);"},
		{name: "sqlite has no concurrent indexes", adapter: "SQLite", sql: "CREATE INDEX users_email ON users (email);"},
		{name: "assured file", adapter: "PostgreSQL", sql: "-- safe-migrate:safety-assured\nALTER TABLE users DROP COLUMN legacy;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conn := dialect.NewStatic(tt.adapter, "16.2")
			m := &migration.Migration{Version: "001", Name: "check", UpSQL: tt.sql}

			err := executor.New(nil, nil).Check(context.Background(), conn, m)

			if tt.unsafe {
				require.ErrorIs(t, err, analyzer.ErrUnsafeMigration)
			} else {
				require.NoError(t, err)
			}

			assert.Empty(t, conn.Executed())
		})
	}
}
