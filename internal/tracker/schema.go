package tracker

import "fmt"

// DefaultTable is the tracking table used unless WithTable overrides it.
const DefaultTable = "schema_migrations"

// createSchemaSQL returns the DDL for the tracking table.
func createSchemaSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    version      TEXT PRIMARY KEY,
    filename     TEXT NOT NULL,
    checksum     TEXT NOT NULL,
    applied_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    duration_ms  INTEGER NOT NULL,
    status       TEXT NOT NULL DEFAULT 'applied'
)`, table)
}
