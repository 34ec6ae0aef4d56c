package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// AdapterPostgreSQL is the adapter name reported by PgConn.
const AdapterPostgreSQL = "PostgreSQL"

// Querier is the subset of pgx shared by pools, pooled connections and
// transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgConn adapts a pgx Querier to dialect.Conn.
type PgConn struct {
	q Querier
}

// NewPgConn wraps q. Pass a transaction to keep version lookups and statements on the
// same backend as the migration.
func NewPgConn(q Querier) *PgConn {
	return &PgConn{q: q}
}

// AdapterName returns "PostgreSQL".
func (c *PgConn) AdapterName() string { return AdapterPostgreSQL }

// ServerVersion returns server_version_num, e.g. "160002".
func (c *PgConn) ServerVersion(ctx context.Context) (string, error) {
	var v string
	if err := c.q.QueryRow(ctx, "SHOW server_version_num").Scan(&v); err != nil {
		return "", fmt.Errorf("querying server version: %w", err)
	}

	return v, nil
}

// ColumnType returns the formatted type of a live column, such as
// "character varying(255)", or "" when the table or column does not exist.
func (c *PgConn) ColumnType(ctx context.Context, table, column string) (string, error) {
	const q = `SELECT format_type(a.atttypid, a.atttypmod)
FROM pg_attribute a
WHERE a.attrelid = to_regclass($1) AND a.attname = $2 AND a.attnum > 0 AND NOT a.attisdropped`

	var typ string

	err := c.q.QueryRow(ctx, q, table, column).Scan(&typ)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("looking up type of %s.%s: %w", table, column, err)
	}

	return typ, nil
}

// Exec runs a single statement.
func (c *PgConn) Exec(ctx context.Context, sql string) error {
	if _, err := c.q.Exec(ctx, sql); err != nil {
		return fmt.Errorf("executing statement: %w", err)
	}

	return nil
}
