package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/analyzer/rules"
	"github.com/aqasim81/safe-migrate/internal/database"
	"github.com/aqasim81/safe-migrate/internal/dialect"
	"github.com/aqasim81/safe-migrate/internal/migration"
	"github.com/aqasim81/safe-migrate/internal/parser"
	"github.com/aqasim81/safe-migrate/internal/tracker"
)

// Progress status constants reported via ProgressEvent.
const (
	StatusStarting  = "starting"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
	StatusChecked   = "checked" // dry run: evaluated, not executed
)

// ProgressEvent is emitted by the executor for each migration processed.
type ProgressEvent struct {
	Migration *migration.Migration
	Direction analyzer.Direction
	Status    string
	Duration  time.Duration
	Error     error
}

// MigrationTracker abstracts schema_migrations operations for testability.
type MigrationTracker interface {
	EnsureTable(ctx context.Context) error
	IsApplied(ctx context.Context, version string) (bool, error)
	GetChecksum(ctx context.Context, version string) (string, error)
	GetApplied(ctx context.Context) ([]tracker.AppliedMigration, error)
	RecordApplied(ctx context.Context, p tracker.RecordParams) error
	RecordRolledBack(ctx context.Context, version string) error
}

// lockFunc acquires the migration lock and returns the connection holding it.
type lockFunc func(ctx context.Context) (runConn, error)

// migrationFunc executes a single migration in the given direction.
type migrationFunc func(ctx context.Context, conn runConn, m *migration.Migration, dir analyzer.Direction) error

// Executor runs migrations statement by statement. Every operation is
// evaluated by the dispatcher before it reaches the database, and reported
// back to it after it succeeds.
type Executor struct {
	pool             *pgxpool.Pool
	tracker          MigrationTracker
	dispatcher       *analyzer.Dispatcher
	log              logrus.FieldLogger
	lockTimeout      time.Duration
	statementTimeout time.Duration
	dryRun           bool
	waitForLock      bool
	onProgress       func(ProgressEvent)
	acquireLock      lockFunc
	execMigration    migrationFunc
}

// Option configures an Executor.
type Option func(*Executor)

// WithDispatcher sets the dispatcher that guards every operation.
func WithDispatcher(d *analyzer.Dispatcher) Option {
	return func(e *Executor) { e.dispatcher = d }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Executor) { e.log = l }
}

// WithLockTimeout sets the session lock_timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Executor) { e.lockTimeout = d }
}

// WithStatementTimeout sets the session statement_timeout.
func WithStatementTimeout(d time.Duration) Option {
	return func(e *Executor) { e.statementTimeout = d }
}

// WithDryRun enables dry-run mode: migrations are evaluated against the live
// database but no SQL is executed and nothing is recorded.
func WithDryRun(b bool) Option {
	return func(e *Executor) { e.dryRun = b }
}

// WithWaitForLock makes the executor wait for a concurrent run to release
// the migration lock instead of failing with database.ErrLockNotAcquired.
func WithWaitForLock(b bool) Option {
	return func(e *Executor) { e.waitForLock = b }
}

// WithProgressCallback sets a function called for each migration processed.
func WithProgressCallback(fn func(ProgressEvent)) Option {
	return func(e *Executor) { e.onProgress = fn }
}

// New creates an Executor with the given pool, tracker, and options.
func New(pool *pgxpool.Pool, t MigrationTracker, opts ...Option) *Executor {
	e := &Executor{
		pool:    pool,
		tracker: t,
		log:     logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.dispatcher == nil {
		e.dispatcher = analyzer.New(
			analyzer.WithRegistry(rules.NewDefaultRegistry()),
			analyzer.WithLogger(e.log),
		)
	}

	// Set defaults for injectable functions after options are applied,
	// so tests can override them via options.
	if e.acquireLock == nil {
		e.acquireLock = func(ctx context.Context) (runConn, error) {
			acquire := database.TryAcquireLock
			if e.waitForLock {
				acquire = database.AcquireLock
			}

			h, err := acquire(ctx, e.pool)
			if err != nil {
				return nil, err
			}

			return lockedConn{h: h}, nil
		}
	}

	if e.execMigration == nil {
		e.execMigration = e.executeMigration
	}

	return e
}

// Apply executes pending migrations in order. Already-applied migrations
// are skipped after verifying their checksum. The advisory lock prevents
// concurrent migration runs.
func (e *Executor) Apply(ctx context.Context, migrations []migration.Migration) error {
	return e.withLock(ctx, func(conn runConn) error {
		for i := range migrations {
			if err := e.applyOne(ctx, conn, &migrations[i]); err != nil {
				return err
			}
		}

		return nil
	})
}

// withLock acquires the migration lock, configures the session and makes
// sure the tracking table exists before running fn.
func (e *Executor) withLock(ctx context.Context, fn func(conn runConn) error) error {
	conn, err := e.acquireLock(ctx)
	if err != nil {
		return fmt.Errorf("acquiring migration lock: %w", err)
	}
	defer conn.Release(ctx) //nolint:errcheck // best-effort release on return

	if err := e.configureSession(ctx, conn.Direct()); err != nil {
		return err
	}
	defer ResetTimeouts(ctx, conn.Direct()) //nolint:errcheck // best-effort reset before release

	if err := e.tracker.EnsureTable(ctx); err != nil {
		return err
	}

	return fn(conn)
}

func (e *Executor) configureSession(ctx context.Context, conn dialect.Conn) error {
	if e.lockTimeout > 0 {
		if err := SetLockTimeout(ctx, conn, e.lockTimeout); err != nil {
			return err
		}
	}

	if e.statementTimeout > 0 {
		if err := SetStatementTimeout(ctx, conn, e.statementTimeout); err != nil {
			return err
		}
	}

	return nil
}

// applyOne handles a single migration: skip if applied, dry-run check,
// execute, record, and fire progress.
func (e *Executor) applyOne(ctx context.Context, conn runConn, m *migration.Migration) error {
	skip, err := e.shouldSkip(ctx, m)
	if err != nil {
		return err
	}

	if skip {
		e.fireProgress(ProgressEvent{Migration: m, Status: StatusSkipped})
		return nil
	}

	if e.dryRun {
		return e.check(ctx, conn, m, analyzer.Up)
	}

	e.fireProgress(ProgressEvent{Migration: m, Status: StatusStarting})

	start := time.Now()
	execErr := e.execMigration(ctx, conn, m, analyzer.Up)
	duration := time.Since(start)

	if execErr != nil {
		e.fireProgress(ProgressEvent{
			Migration: m,
			Status:    StatusFailed,
			Duration:  duration,
			Error:     execErr,
		})

		return fmt.Errorf("executing migration %s: %w", m.Version, execErr)
	}

	if err := e.tracker.RecordApplied(ctx, tracker.RecordParams{
		Version:    m.Version,
		Filename:   filepath.Base(m.FilePath),
		Checksum:   m.Checksum,
		DurationMs: int(duration.Milliseconds()),
	}); err != nil {
		return fmt.Errorf("recording migration %s: %w", m.Version, err)
	}

	e.log.WithFields(logrus.Fields{
		"version":  m.Version,
		"name":     m.Name,
		"duration": duration,
	}).Info("migration applied")

	e.fireProgress(ProgressEvent{
		Migration: m,
		Status:    StatusCompleted,
		Duration:  duration,
	})

	return nil
}

// check evaluates a migration against the live database without executing it.
func (e *Executor) check(ctx context.Context, conn runConn, m *migration.Migration, dir analyzer.Direction) error {
	if err := e.evaluate(ctx, conn.Direct(), m, dir); err != nil {
		e.fireProgress(ProgressEvent{Migration: m, Direction: dir, Status: StatusFailed, Error: err})
		return fmt.Errorf("checking migration %s: %w", m.Version, err)
	}

	e.fireProgress(ProgressEvent{Migration: m, Direction: dir, Status: StatusChecked})

	return nil
}

// Check evaluates the up direction of m against conn without executing any
// statement. conn is only used for dialect detection and column lookups, so it
// may be an offline dialect.Static. It needs neither a pool nor a tracker.
func (e *Executor) Check(ctx context.Context, conn dialect.Conn, m *migration.Migration) error {
	return e.evaluate(ctx, conn, m, analyzer.Up)
}

func (e *Executor) evaluate(ctx context.Context, conn dialect.Conn, m *migration.Migration, dir analyzer.Direction) error {
	stmts, err := parser.Statements(migrationSQL(m, dir))
	if err != nil {
		return err
	}

	return e.runStatements(ctx, dialect.DryRun(conn), m, dir, stmts)
}

// shouldSkip returns true if the migration is already applied.
// Verifies the checksum of applied migrations to catch file tampering.
func (e *Executor) shouldSkip(ctx context.Context, m *migration.Migration) (bool, error) {
	applied, err := e.tracker.IsApplied(ctx, m.Version)
	if err != nil {
		return false, fmt.Errorf("checking migration %s: %w", m.Version, err)
	}

	if !applied {
		return false, nil
	}

	storedChecksum, err := e.tracker.GetChecksum(ctx, m.Version)
	if err != nil {
		return false, fmt.Errorf("getting checksum for %s: %w", m.Version, err)
	}

	if storedChecksum != m.Checksum {
		return false, fmt.Errorf(
			"migration %s: %w: stored=%s computed=%s",
			m.Version, tracker.ErrChecksumMismatch, storedChecksum, m.Checksum,
		)
	}

	return true, nil
}

// executeMigration runs one migration file. It runs inside a transaction
// unless a statement such as CREATE INDEX CONCURRENTLY forbids it.
func (e *Executor) executeMigration(ctx context.Context, conn runConn, m *migration.Migration, dir analyzer.Direction) error {
	stmts, err := parser.Statements(migrationSQL(m, dir))
	if err != nil {
		return err
	}

	if runsOutsideTransaction(stmts) {
		return e.runStatements(ctx, conn.Direct(), m, dir, stmts)
	}

	return conn.InTx(ctx, func(tx dialect.Conn) error {
		return e.runStatements(ctx, tx, m, dir, stmts)
	})
}

// runStatements evaluates every operation of a statement, executes it, then
// reports the operations as done. Statements under a safety-assured
// directive run inside an assurance block.
func (e *Executor) runStatements(ctx context.Context, conn dialect.Conn, m *migration.Migration, dir analyzer.Direction, stmts []parser.Statement) error {
	s := analyzer.NewSession(conn, dir, m.Ordinal(), analyzer.WithMigrationName(m.Name))

	for i, stmt := range stmts {
		run := func() error { return e.runStatement(ctx, conn, s, stmt) }

		var err error
		if stmt.Assured {
			err = s.SafetyAssured(run)
		} else {
			err = run()
		}

		if err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}

	return nil
}

func (e *Executor) runStatement(ctx context.Context, conn dialect.Conn, s *analyzer.Session, stmt parser.Statement) error {
	for _, op := range stmt.Ops {
		if err := e.dispatcher.Evaluate(ctx, s, op); err != nil {
			return err
		}
	}

	e.log.WithField("sql", analyzer.TruncateSQL(stmt.SQL, maxLoggedSQL)).Debug("executing statement")

	if err := conn.Exec(ctx, stmt.SQL); err != nil {
		return err
	}

	for _, op := range stmt.Ops {
		if err := e.dispatcher.After(ctx, s, op); err != nil {
			return err
		}
	}

	return nil
}

const maxLoggedSQL = 120

func migrationSQL(m *migration.Migration, dir analyzer.Direction) string {
	if dir == analyzer.Down {
		return m.DownSQL
	}

	return m.UpSQL
}

func (e *Executor) fireProgress(event ProgressEvent) {
	if e.onProgress != nil {
		e.onProgress(event)
	}
}
