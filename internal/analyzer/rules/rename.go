package rules

import (
	"context"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/operation"
)

// RenameRule detects table and column renames.
type RenameRule struct{}

// NewRenameRule creates a new RenameRule.
func NewRenameRule() *RenameRule { return &RenameRule{} }

// ID returns the rule identifier.
func (r *RenameRule) ID() string { return "rename" }

// Kinds returns the classified operation kinds.
func (r *RenameRule) Kinds() []operation.Kind {
	return []operation.Kind{operation.KindRenameTable, operation.KindRenameColumn}
}

// Check always denies.
func (r *RenameRule) Check(_ context.Context, op operation.Operation, _ *analyzer.Session) (analyzer.Verdict, error) {
	if op.Kind == operation.KindRenameTable {
		return analyzer.Deny(analyzer.MsgRenameTable, analyzer.Vars{
			"table":    op.Table,
			"new_name": op.NewName,
		}), nil
	}

	return analyzer.Deny(analyzer.MsgRenameColumn, analyzer.Vars{
		"table":    op.Table,
		"column":   op.Column,
		"new_name": op.NewName,
	}), nil
}
