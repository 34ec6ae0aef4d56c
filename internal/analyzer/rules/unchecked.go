package rules

import (
	"context"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/operation"
)

const maxDisplayedSQL = 200

// ChangeTableRule denies alterations that cannot be classified statically.
type ChangeTableRule struct{}

// NewChangeTableRule creates a new ChangeTableRule.
func NewChangeTableRule() *ChangeTableRule { return &ChangeTableRule{} }

// ID returns the rule identifier.
func (r *ChangeTableRule) ID() string { return "change-table" }

// Kinds returns the classified operation kinds.
func (r *ChangeTableRule) Kinds() []operation.Kind {
	return []operation.Kind{operation.KindChangeTable}
}

// Check always denies.
func (r *ChangeTableRule) Check(_ context.Context, op operation.Operation, _ *analyzer.Session) (analyzer.Verdict, error) {
	return analyzer.Deny(analyzer.MsgChangeTable, analyzer.Vars{"table": op.Table}), nil
}

// ExecuteRule denies raw SQL.
type ExecuteRule struct{}

// NewExecuteRule creates a new ExecuteRule.
func NewExecuteRule() *ExecuteRule { return &ExecuteRule{} }

// ID returns the rule identifier.
func (r *ExecuteRule) ID() string { return "execute" }

// Kinds returns the classified operation kinds.
func (r *ExecuteRule) Kinds() []operation.Kind {
	return []operation.Kind{operation.KindExecute}
}

// Check always denies.
func (r *ExecuteRule) Check(_ context.Context, op operation.Operation, _ *analyzer.Session) (analyzer.Verdict, error) {
	return analyzer.Deny(analyzer.MsgExecute, analyzer.Vars{
		"sql": analyzer.TruncateSQL(op.SQL, maxDisplayedSQL),
	}), nil
}
