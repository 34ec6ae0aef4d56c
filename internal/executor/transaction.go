package executor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aqasim81/safe-migrate/internal/database"
	"github.com/aqasim81/safe-migrate/internal/dialect"
)

// beginner starts transactions; satisfied by pools and pooled connections.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ExecInTransaction runs fn inside a database transaction.
// On success the transaction is committed; on error it is rolled back.
func ExecInTransaction(ctx context.Context, db beginner, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // rollback on committed tx returns ErrTxClosed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// runConn is the connection a run holds from lock acquisition to release.
type runConn interface {
	Release(ctx context.Context) error
	// Direct returns the connection outside any transaction.
	Direct() dialect.Conn
	// InTx runs fn with a connection bound to a new transaction.
	InTx(ctx context.Context, fn func(conn dialect.Conn) error) error
}

// lockedConn runs everything on the connection that holds the advisory lock.
type lockedConn struct {
	h *database.LockHandle
}

func (c lockedConn) Release(ctx context.Context) error {
	return c.h.Release(ctx)
}

func (c lockedConn) Direct() dialect.Conn {
	return database.NewPgConn(c.h.Conn())
}

func (c lockedConn) InTx(ctx context.Context, fn func(conn dialect.Conn) error) error {
	return ExecInTransaction(ctx, c.h.Conn(), func(tx pgx.Tx) error {
		return fn(database.NewPgConn(tx))
	})
}
