package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/operation"
)

// RemoveColumnRule detects column drops that running code may still read.
type RemoveColumnRule struct{}

// NewRemoveColumnRule creates a new RemoveColumnRule.
func NewRemoveColumnRule() *RemoveColumnRule { return &RemoveColumnRule{} }

// ID returns the rule identifier.
func (r *RemoveColumnRule) ID() string { return "remove-column" }

// Kinds returns the classified operation kinds.
func (r *RemoveColumnRule) Kinds() []operation.Kind {
	return []operation.Kind{operation.KindRemoveColumn, operation.KindRemoveTimestamps}
}

// Check always denies and shows the two-step removal.
func (r *RemoveColumnRule) Check(_ context.Context, op operation.Operation, _ *analyzer.Session) (analyzer.Verdict, error) {
	columns := []string{op.Column}
	if op.Kind == operation.KindRemoveTimestamps {
		columns = []string{"created_at", "updated_at"}
	}

	var code strings.Builder

	code.WriteString("  -- safe-migrate:safety-assured begin\n")

	for _, c := range columns {
		fmt.Fprintf(&code, "  ALTER TABLE %s DROP COLUMN %s;\n", analyzer.QuoteTable(op.Table), pgx.Identifier{c}.Sanitize())
	}

	code.WriteString("  -- safe-migrate:safety-assured end\n")

	return analyzer.Deny(analyzer.MsgRemoveColumn, analyzer.Vars{
		"table":   op.Table,
		"columns": operation.ColumnList(columns),
		"code":    strings.TrimRight(code.String(), "\n"),
	}), nil
}
