package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Status values stored per migration.
const (
	StatusApplied    = "applied"
	StatusRolledBack = "rolled_back"
)

// DB is the subset of a pgx pool or connection the tracker needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AppliedMigration is one row of the tracking table.
type AppliedMigration struct {
	Version    string
	Filename   string
	Checksum   string
	AppliedAt  time.Time
	DurationMs int
	Status     string
}

// RecordParams contains the fields needed to record a migration as applied.
type RecordParams struct {
	Version    string
	Filename   string
	Checksum   string
	DurationMs int
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithTable sets the tracking table, optionally schema-qualified.
func WithTable(name string) Option {
	return func(t *Tracker) {
		if name != "" {
			t.table = pgx.Identifier(strings.Split(name, ".")).Sanitize()
		}
	}
}

// Tracker records which migrations have been applied.
type Tracker struct {
	db    DB
	table string
}

// New creates a Tracker backed by the given pool or connection.
func New(db DB, opts ...Option) *Tracker {
	t := &Tracker{db: db, table: pgx.Identifier{DefaultTable}.Sanitize()}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Table returns the quoted tracking table name.
func (t *Tracker) Table() string {
	return t.table
}

// EnsureTable creates the tracking table if it does not exist.
func (t *Tracker) EnsureTable(ctx context.Context) error {
	_, err := t.db.Exec(ctx, createSchemaSQL(t.table))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTableCreation, err)
	}

	return nil
}

// IsApplied checks whether a migration version has been successfully applied.
func (t *Tracker) IsApplied(ctx context.Context, version string) (bool, error) {
	var exists bool

	err := t.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+t.table+` WHERE version = $1 AND status = $2)`,
		version, StatusApplied,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking if migration %s is applied: %w", version, err)
	}

	return exists, nil
}

// GetApplied returns all applied migrations ordered by version.
func (t *Tracker) GetApplied(ctx context.Context) ([]AppliedMigration, error) {
	return t.query(ctx,
		`SELECT version, filename, checksum, applied_at, duration_ms, status
		 FROM `+t.table+`
		 WHERE status = $1
		 ORDER BY version`,
		StatusApplied,
	)
}

// GetAll returns every recorded migration, rolled back ones included,
// ordered by version.
func (t *Tracker) GetAll(ctx context.Context) ([]AppliedMigration, error) {
	return t.query(ctx,
		`SELECT version, filename, checksum, applied_at, duration_ms, status
		 FROM `+t.table+`
		 ORDER BY version`,
	)
}

func (t *Tracker) query(ctx context.Context, sql string, args ...any) ([]AppliedMigration, error) {
	rows, err := t.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer rows.Close()

	applied, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (AppliedMigration, error) {
		var m AppliedMigration
		if scanErr := row.Scan(&m.Version, &m.Filename, &m.Checksum, &m.AppliedAt, &m.DurationMs, &m.Status); scanErr != nil {
			return AppliedMigration{}, fmt.Errorf("scanning migration row: %w", scanErr)
		}

		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning applied migrations: %w", err)
	}

	return applied, nil
}

// RecordApplied inserts or updates a migration record with status 'applied'.
// Uses upsert to handle re-applying a previously rolled-back migration.
func (t *Tracker) RecordApplied(ctx context.Context, p RecordParams) error {
	_, err := t.db.Exec(ctx,
		`INSERT INTO `+t.table+` (version, filename, checksum, duration_ms, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (version) DO UPDATE SET
		     filename = EXCLUDED.filename,
		     checksum = EXCLUDED.checksum,
		     applied_at = NOW(),
		     duration_ms = EXCLUDED.duration_ms,
		     status = EXCLUDED.status`,
		p.Version, p.Filename, p.Checksum, p.DurationMs, StatusApplied,
	)
	if err != nil {
		return fmt.Errorf("recording migration %s as applied: %w", p.Version, err)
	}

	return nil
}

// RecordRolledBack updates a migration's status to 'rolled_back'.
func (t *Tracker) RecordRolledBack(ctx context.Context, version string) error {
	tag, err := t.db.Exec(ctx,
		`UPDATE `+t.table+` SET status = $2 WHERE version = $1`,
		version, StatusRolledBack,
	)
	if err != nil {
		return fmt.Errorf("recording migration %s as rolled back: %w", version, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("migration %s: %w", version, ErrMigrationNotFound)
	}

	return nil
}

// GetChecksum returns the recorded checksum for a migration version.
func (t *Tracker) GetChecksum(ctx context.Context, version string) (string, error) {
	var checksum string

	err := t.db.QueryRow(ctx,
		`SELECT checksum FROM `+t.table+` WHERE version = $1`,
		version,
	).Scan(&checksum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("migration %s: %w", version, ErrMigrationNotFound)
		}

		return "", fmt.Errorf("getting checksum for migration %s: %w", version, err)
	}

	return checksum, nil
}
