package rules_test

import (
	"context"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/dialect"
)

// columnConn is a Static connection that knows the declared types of some columns.
type columnConn struct {
	*dialect.Static
	columns map[string]string // "table.column" -> type
}

func (c *columnConn) ColumnType(_ context.Context, table, column string) (string, error) {
	return c.columns[table+"."+column], nil
}

func pgSession(version string) *analyzer.Session {
	return analyzer.NewSession(dialect.NewStatic("PostgreSQL", version), analyzer.Up, 0,
		analyzer.WithMigrationName("add_things"))
}

func sqliteSession() *analyzer.Session {
	return analyzer.NewSession(dialect.NewStatic("SQLite", "3.45.1"), analyzer.Up, 0)
}
