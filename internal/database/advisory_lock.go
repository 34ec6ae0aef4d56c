package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MigrationLockID is the advisory lock key held for the duration of a
// migration run. Analysis never takes it.
const MigrationLockID int64 = 0x5afe_1167

// LockHandle owns a dedicated pooled connection holding a session-level
// advisory lock. Every statement of the run goes through Conn so that
// session settings and the lock share one backend.
type LockHandle struct {
	conn *pgxpool.Conn
}

// TryAcquireLock takes the migration lock without waiting. It returns
// ErrLockNotAcquired if another process holds it. The caller must call
// Release when done.
func TryAcquireLock(ctx context.Context, pool *pgxpool.Pool) (*LockHandle, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for advisory lock: %w", err)
	}

	var acquired bool

	err = conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", MigrationLockID).Scan(&acquired)
	if err != nil {
		conn.Release()

		return nil, fmt.Errorf("executing pg_try_advisory_lock: %w", err)
	}

	if !acquired {
		conn.Release()

		return nil, ErrLockNotAcquired
	}

	return &LockHandle{conn: conn}, nil
}

// AcquireLock waits for the migration lock until ctx is done.
func AcquireLock(ctx context.Context, pool *pgxpool.Pool) (*LockHandle, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for advisory lock: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", MigrationLockID); err != nil {
		conn.Release()

		return nil, fmt.Errorf("%w: %w", ErrLockNotAcquired, err)
	}

	return &LockHandle{conn: conn}, nil
}

// Conn returns the connection holding the lock.
func (h *LockHandle) Conn() *pgxpool.Conn {
	return h.conn
}

// Release unlocks the advisory lock and returns the connection to the pool.
// Safe to call multiple times; subsequent calls are no-ops.
func (h *LockHandle) Release(ctx context.Context) error {
	if h == nil || h.conn == nil {
		return nil
	}

	_, err := h.conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", MigrationLockID)
	h.conn.Release()
	h.conn = nil

	if err != nil {
		return fmt.Errorf("releasing advisory lock: %w", err)
	}

	return nil
}
