package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/operation"
)

// AddReferenceRule detects references whose index is built with a blocking lock.
type AddReferenceRule struct{}

// NewAddReferenceRule creates a new AddReferenceRule.
func NewAddReferenceRule() *AddReferenceRule { return &AddReferenceRule{} }

// ID returns the rule identifier.
func (r *AddReferenceRule) ID() string { return "add-reference" }

// Kinds returns the classified operation kinds.
func (r *AddReferenceRule) Kinds() []operation.Kind {
	return []operation.Kind{operation.KindAddReference, operation.KindAddBelongsTo}
}

// Check denies an implicit or explicit blocking index on an existing
// PostgreSQL table.
func (r *AddReferenceRule) Check(_ context.Context, op operation.Operation, s *analyzer.Session) (analyzer.Verdict, error) {
	opts := op.Options
	if !s.IsPostgres() || !opts.IndexRequested() || opts.Concurrent() || s.IsNewTable(op.Table) {
		return analyzer.Allow(), nil
	}

	t := analyzer.QuoteTable(op.Table)

	var columns, code []string

	if opts.Polymorphic {
		columns = append(columns, op.Column+"_type")
		code = append(code, fmt.Sprintf("  ALTER TABLE %s ADD COLUMN %s varchar;", t, sqlColumn(op.Column+"_type")))
	}

	columns = append(columns, op.Column+"_id")
	code = append(code,
		fmt.Sprintf("  ALTER TABLE %s ADD COLUMN %s bigint;", t, sqlColumn(op.Column+"_id")),
		concurrentIndexCode(op.Table, columns, operation.Options{}))

	return analyzer.Deny(analyzer.MsgAddReference, analyzer.Vars{
		"command":        op.Kind.String(),
		"table":          op.Table,
		"reference":      op.Column,
		"column":         operation.ColumnList(columns),
		"options":        opts.Render("index", "algorithm"),
		"migration_name": migrationName(s),
		"code":           strings.Join(code, "\n"),
	}), nil
}
