//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/safe-migrate/internal/database"
	"github.com/aqasim81/safe-migrate/internal/executor"
	"github.com/aqasim81/safe-migrate/internal/migration"
	"github.com/aqasim81/safe-migrate/internal/tracker"
)

func schemaMigrations() []migration.Migration {
	return []migration.Migration{
		newMigration("001", "create_users",
			"CREATE TABLE users (id bigserial PRIMARY KEY, name text NOT NULL);", "DROP TABLE users;"),
		newMigration("002", "create_posts",
			"CREATE TABLE posts (id bigserial PRIMARY KEY, user_id bigint REFERENCES users (id), title text);",
			"DROP TABLE posts;"),
		newMigration("003", "add_users_email",
			"ALTER TABLE users ADD COLUMN email text;", "ALTER TABLE users DROP COLUMN email;"),
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []executor.ProgressEvent
}

func (l *eventLog) record(e executor.ProgressEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, e)
}

func (l *eventLog) statuses() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Migration.Version+":"+e.Status)
	}

	return out
}

func TestApply_recordsEachMigration(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	tr := tracker.New(pool)
	events := &eventLog{}

	exec := executor.New(pool, tr, executor.WithProgressCallback(events.record))
	require.NoError(t, exec.Apply(ctx, schemaMigrations()))

	assert.Equal(t, []string{
		"001:starting", "001:completed",
		"002:starting", "002:completed",
		"003:starting", "003:completed",
	}, events.statuses())

	applied, err := tr.GetApplied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 3)

	for i, a := range applied {
		assert.Equal(t, schemaMigrations()[i].Version, a.Version)
		assert.Equal(t, tracker.StatusApplied, a.Status)
		assert.GreaterOrEqual(t, a.DurationMs, 0)
	}
}

func TestApply_secondRunSkipsEverything(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	tr := tracker.New(pool)

	require.NoError(t, executor.New(pool, tr).Apply(ctx, schemaMigrations()))

	events := &eventLog{}
	exec := executor.New(pool, tr, executor.WithProgressCallback(events.record))
	require.NoError(t, exec.Apply(ctx, schemaMigrations()))

	assert.Equal(t, []string{"001:skipped", "002:skipped", "003:skipped"}, events.statuses())
}

func TestApply_editedAppliedMigration_checksumMismatch(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	tr := tracker.New(pool)
	ms := schemaMigrations()

	require.NoError(t, executor.New(pool, tr).Apply(ctx, ms[:1]))

	ms[0].UpSQL = "CREATE TABLE users (id int);"
	ms[0].Checksum = migration.ComputeChecksum(ms[0].UpSQL)

	err := executor.New(pool, tr).Apply(ctx, ms)
	require.ErrorIs(t, err, tracker.ErrChecksumMismatch)
	assert.False(t, tableExists(ctx, t, pool, "posts"))
}

func TestApply_concurrentIndexBuildsValidIndex(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	tr := tracker.New(pool)

	ms := []migration.Migration{
		schemaMigrations()[0],
		newMigration("002", "index_users_name",
			"CREATE INDEX CONCURRENTLY idx_users_name ON users (name);", "DROP INDEX CONCURRENTLY idx_users_name;"),
	}

	require.NoError(t, executor.New(pool, tr).Apply(ctx, ms))

	var valid bool
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT indisvalid FROM pg_index WHERE indexrelid = 'idx_users_name'::regclass",
	).Scan(&valid))
	assert.True(t, valid)
}

func TestApply_dryRunChecksWithoutExecuting(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	tr := tracker.New(pool)
	events := &eventLog{}

	exec := executor.New(pool, tr,
		executor.WithDryRun(true),
		executor.WithProgressCallback(events.record),
	)
	require.NoError(t, exec.Apply(ctx, schemaMigrations()))

	assert.Equal(t, []string{"001:checked", "002:checked", "003:checked"}, events.statuses())
	assert.False(t, tableExists(ctx, t, pool, "users"))

	applied, err := tr.GetApplied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestApply_failingStatementStopsTheRun(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	tr := tracker.New(pool)
	events := &eventLog{}

	ms := []migration.Migration{
		newMigration("001", "create_widgets", "CREATE TABLE widgets (id bigserial PRIMARY KEY);", ""),
		newMigration("002", "create_parts",
			"CREATE TABLE parts (id bigserial PRIMARY KEY, widget_id bigint REFERENCES nowhere (id));", ""),
		newMigration("003", "create_boxes", "CREATE TABLE boxes (id bigserial PRIMARY KEY);", ""),
	}

	exec := executor.New(pool, tr, executor.WithProgressCallback(events.record))

	err := exec.Apply(ctx, ms)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executing migration 002")

	assert.Equal(t, []string{"001:starting", "001:completed", "002:starting", "002:failed"}, events.statuses())

	applied, err := tr.GetApplied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "001", applied[0].Version)
	assert.False(t, tableExists(ctx, t, pool, "boxes"))
}

func TestApply_lockHeldElsewhere(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	held, err := database.TryAcquireLock(ctx, pool)
	require.NoError(t, err)

	t.Cleanup(func() { _ = held.Release(context.Background()) })

	err = executor.New(pool, tracker.New(pool)).Apply(ctx, schemaMigrations())
	require.ErrorIs(t, err, database.ErrLockNotAcquired)
}

func TestApply_timeoutsDoNotLeakIntoPool(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	exec := executor.New(pool, tracker.New(pool),
		executor.WithLockTimeout(10*time.Second),
		executor.WithStatementTimeout(30*time.Second),
	)
	require.NoError(t, exec.Apply(ctx, schemaMigrations()))

	// The pool holds at most a few connections; every one must be back at the defaults.
	for range 5 {
		var lockTimeout string
		require.NoError(t, pool.QueryRow(ctx, "SHOW lock_timeout").Scan(&lockTimeout))
		assert.Equal(t, "0", lockTimeout)
	}
}

func TestApply_parallelRunsApplyOnce(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	var wg sync.WaitGroup

	errs := make([]error, 2)

	for i := range errs {
		wg.Go(func() {
			errs[i] = executor.New(pool, tracker.New(pool)).Apply(ctx, schemaMigrations())
		})
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, database.ErrLockNotAcquired)
		}
	}

	applied, err := tracker.New(pool).GetApplied(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, 3)
}
