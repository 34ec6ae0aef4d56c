package rules

import (
	"context"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/operation"
)

const maxIndexColumns = 3

// AddIndexRule detects wide non-unique indexes and blocking index builds.
type AddIndexRule struct{}

// NewAddIndexRule creates a new AddIndexRule.
func NewAddIndexRule() *AddIndexRule { return &AddIndexRule{} }

// ID returns the rule identifier.
func (r *AddIndexRule) ID() string { return "add-index" }

// Kinds returns the classified operation kinds.
func (r *AddIndexRule) Kinds() []operation.Kind {
	return []operation.Kind{operation.KindAddIndex}
}

// Check denies a non-unique index over more than three columns first, then
// a non-concurrent build on an existing PostgreSQL table.
func (r *AddIndexRule) Check(_ context.Context, op operation.Operation, s *analyzer.Session) (analyzer.Verdict, error) {
	vars := analyzer.Vars{
		"table":          op.Table,
		"column":         operation.ColumnList(op.Columns),
		"options":        op.Options.Render("algorithm"),
		"migration_name": migrationName(s),
		"code":           concurrentIndexCode(op.Table, op.Columns, op.Options),
	}

	if len(op.Columns) > maxIndexColumns && !op.Options.Unique {
		return analyzer.Deny(analyzer.MsgAddIndexColumns, vars), nil
	}

	// Only PostgreSQL offers a concurrent build; a table created in this run has no readers yet.
	if !s.IsPostgres() || op.Options.Concurrent() || s.IsNewTable(op.Table) {
		return analyzer.Allow(), nil
	}

	return analyzer.Deny(analyzer.MsgAddIndex, vars), nil
}
