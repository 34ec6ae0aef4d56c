package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// AdapterSQLite is the adapter name reported by SQLiteConn.
const AdapterSQLite = "SQLite"

// SQLiteConn adapts a SQLite database to dialect.Conn.
type SQLiteConn struct {
	db *sql.DB
}

// OpenSQLite opens the SQLite database at dsn and verifies it is reachable.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteConn, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// An in-memory database exists once per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return &SQLiteConn{db: db}, nil
}

// AdapterName returns "SQLite".
func (c *SQLiteConn) AdapterName() string { return AdapterSQLite }

// ServerVersion returns the library version, e.g. "3.46.0".
func (c *SQLiteConn) ServerVersion(ctx context.Context) (string, error) {
	var v string
	if err := c.db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&v); err != nil {
		return "", fmt.Errorf("querying sqlite version: %w", err)
	}

	return v, nil
}

// ColumnType returns the declared type of a column, or "" when the table or
// column does not exist.
func (c *SQLiteConn) ColumnType(ctx context.Context, table, column string) (string, error) {
	var typ string

	err := c.db.QueryRowContext(ctx,
		"SELECT type FROM pragma_table_info(?) WHERE name = ?", table, column).Scan(&typ)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("looking up type of %s.%s: %w", table, column, err)
	}

	return typ, nil
}

// Exec runs a single statement.
func (c *SQLiteConn) Exec(ctx context.Context, stmt string) error {
	if _, err := c.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("executing statement: %w", err)
	}

	return nil
}

// Close closes the database.
func (c *SQLiteConn) Close() error {
	return c.db.Close()
}
