package rules

import (
	"context"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/operation"
)

// CreateTableRule detects table creation that drops an existing table first.
type CreateTableRule struct{}

// NewCreateTableRule creates a new CreateTableRule.
func NewCreateTableRule() *CreateTableRule { return &CreateTableRule{} }

// ID returns the rule identifier.
func (r *CreateTableRule) ID() string { return "create-table" }

// Kinds returns the classified operation kinds.
func (r *CreateTableRule) Kinds() []operation.Kind {
	return []operation.Kind{operation.KindCreateTable}
}

// Check denies the force option.
func (r *CreateTableRule) Check(_ context.Context, op operation.Operation, _ *analyzer.Session) (analyzer.Verdict, error) {
	if !op.Options.Force {
		return analyzer.Allow(), nil
	}

	return analyzer.Deny(analyzer.MsgCreateTable, analyzer.Vars{"table": op.Table}), nil
}
