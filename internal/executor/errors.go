package executor

import "errors"

// ErrNoDownMigration indicates an applied migration has no .down.sql file.
var ErrNoDownMigration = errors.New("migration has no down SQL")

// ErrMigrationFileMissing indicates an applied migration is no longer on disk.
var ErrMigrationFileMissing = errors.New("applied migration not found in migrations directory")

// ErrInvalidSteps indicates a rollback step count below one.
var ErrInvalidSteps = errors.New("rollback steps must be at least 1")
