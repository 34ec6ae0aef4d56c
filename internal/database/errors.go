package database

import "errors"

var (
	// ErrInvalidDatabaseURL is returned when a PostgreSQL or SQLite URL cannot be parsed.
	ErrInvalidDatabaseURL = errors.New("invalid database URL")
	// ErrConnectionFailed is returned when the database does not answer a ping.
	ErrConnectionFailed = errors.New("database connection failed")
	// ErrLockNotAcquired means another process is migrating the same database.
	ErrLockNotAcquired = errors.New("migration lock not acquired")
)
