package executor

import (
	"context"
	"fmt"
	"time"
)

// execer runs a single statement.
type execer interface {
	Exec(ctx context.Context, sql string) error
}

// SetLockTimeout sets lock_timeout for the session. This causes a
// statement to fail fast if it cannot acquire a lock within the specified
// duration, instead of queueing every other query behind it.
func SetLockTimeout(ctx context.Context, conn execer, timeout time.Duration) error {
	sql := fmt.Sprintf("SET lock_timeout = '%dms'", timeout.Milliseconds())

	if err := conn.Exec(ctx, sql); err != nil {
		return fmt.Errorf("setting lock_timeout: %w", err)
	}

	return nil
}

// SetStatementTimeout sets statement_timeout for the session.
func SetStatementTimeout(ctx context.Context, conn execer, timeout time.Duration) error {
	sql := fmt.Sprintf("SET statement_timeout = '%dms'", timeout.Milliseconds())

	if err := conn.Exec(ctx, sql); err != nil {
		return fmt.Errorf("setting statement_timeout: %w", err)
	}

	return nil
}

// ResetTimeouts restores both timeouts to the server defaults before the
// connection goes back to the pool.
func ResetTimeouts(ctx context.Context, conn execer) error {
	for _, sql := range []string{"RESET lock_timeout", "RESET statement_timeout"} {
		if err := conn.Exec(ctx, sql); err != nil {
			return fmt.Errorf("resetting timeouts: %w", err)
		}
	}

	return nil
}
