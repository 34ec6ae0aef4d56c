package rules

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/operation"
)

// ChangeColumnNullRule detects forbidding NULLs together with a backfill default.
type ChangeColumnNullRule struct{}

// NewChangeColumnNullRule creates a new ChangeColumnNullRule.
func NewChangeColumnNullRule() *ChangeColumnNullRule { return &ChangeColumnNullRule{} }

// ID returns the rule identifier.
func (r *ChangeColumnNullRule) ID() string { return "change-column-null" }

// Kinds returns the classified operation kinds.
func (r *ChangeColumnNullRule) Kinds() []operation.Kind {
	return []operation.Kind{operation.KindChangeColumnNull}
}

// Check denies null=false with a non-nil default.
func (r *ChangeColumnNullRule) Check(_ context.Context, op operation.Operation, s *analyzer.Session) (analyzer.Verdict, error) {
	if op.Null || op.Default == nil {
		return analyzer.Allow(), nil
	}

	notNull := fmt.Sprintf("  ALTER TABLE %s ALTER COLUMN %s SET NOT NULL;",
		analyzer.QuoteTable(op.Table), pgx.Identifier{op.Column}.Sanitize())

	return analyzer.Deny(analyzer.MsgChangeColumnNull, analyzer.Vars{
		"table":          op.Table,
		"column":         op.Column,
		"migration_name": migrationName(s),
		"code":           backfillCode(op.Table, op.Column, op.Default),
		"not_null":       notNull,
	}), nil
}
