package rules

import (
	"context"
	"strings"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/operation"
)

// ChangeColumnRule detects column type changes, which rewrite the table.
type ChangeColumnRule struct{}

// NewChangeColumnRule creates a new ChangeColumnRule.
func NewChangeColumnRule() *ChangeColumnRule { return &ChangeColumnRule{} }

// ID returns the rule identifier.
func (r *ChangeColumnRule) ID() string { return "change-column" }

// Kinds returns the classified operation kinds.
func (r *ChangeColumnRule) Kinds() []operation.Kind {
	return []operation.Kind{operation.KindChangeColumn}
}

// Check denies every type change except varchar to text on PostgreSQL,
// which is binary coercible and leaves rows untouched. The exemption assumes
// PostgreSQL 9.1 or later and never covers a change with a USING cast.
func (r *ChangeColumnRule) Check(ctx context.Context, op operation.Operation, s *analyzer.Session) (analyzer.Verdict, error) {
	if s.IsPostgres() && op.Options.Cast == "" && strings.EqualFold(op.Type, "text") {
		current, err := s.ColumnType(ctx, op.Table, op.Column)
		if err != nil {
			return analyzer.Verdict{}, err
		}

		if isVarchar(current) {
			return analyzer.Allow(), nil
		}
	}

	return analyzer.Deny(analyzer.MsgChangeColumn, analyzer.Vars{
		"table":  op.Table,
		"column": op.Column,
		"type":   op.Type,
	}), nil
}

func isVarchar(typ string) bool {
	typ = strings.ToLower(strings.TrimSpace(typ))

	return strings.HasPrefix(typ, "character varying") || strings.HasPrefix(typ, "varchar")
}
