package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aqasim81/safe-migrate/internal/dialect"
)

// Conn is a live dialect.Conn that owns its connection.
type Conn interface {
	dialect.Conn
	Close() error
}

type poolConn struct {
	*PgConn
	pool *pgxpool.Pool
}

func (c *poolConn) Close() error {
	c.pool.Close()
	return nil
}

// Connect opens a live connection for analysis. URLs starting with
// "sqlite:" open a SQLite file (or ":memory:"); anything else is treated as
// a PostgreSQL connection string.
func Connect(ctx context.Context, databaseURL string) (Conn, error) {
	if dsn, ok := strings.CutPrefix(databaseURL, "sqlite:"); ok {
		dsn = strings.TrimPrefix(dsn, "//")
		if dsn == "" {
			return nil, fmt.Errorf("%w: sqlite URL names no database", ErrInvalidDatabaseURL)
		}

		conn, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}

		return conn, nil
	}

	pool, err := NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	return &poolConn{PgConn: NewPgConn(pool), pool: pool}, nil
}
