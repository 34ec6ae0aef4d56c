package rules

import (
	"context"
	"strings"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/dialect"
	"github.com/aqasim81/safe-migrate/internal/operation"
)

// AddColumnRule detects defaults that force a table rewrite and json columns.
type AddColumnRule struct{}

// NewAddColumnRule creates a new AddColumnRule.
func NewAddColumnRule() *AddColumnRule { return &AddColumnRule{} }

// ID returns the rule identifier.
func (r *AddColumnRule) ID() string { return "add-column" }

// Kinds returns the classified operation kinds.
func (r *AddColumnRule) Kinds() []operation.Kind {
	return []operation.Kind{operation.KindAddColumn}
}

// Check examines the default first and the column type second.
func (r *AddColumnRule) Check(ctx context.Context, op operation.Operation, s *analyzer.Session) (analyzer.Verdict, error) {
	if op.Default != nil {
		fast, err := addsDefaultWithoutRewrite(ctx, op, s)
		if err != nil {
			return analyzer.Verdict{}, err
		}

		if !fast {
			return analyzer.Deny(analyzer.MsgAddColumnDefault, analyzer.Vars{
				"table":          op.Table,
				"column":         op.Column,
				"type":           op.Type,
				"options":        op.Options.Render(),
				"default":        operation.Literal(op.Default),
				"migration_name": migrationName(s),
				"code":           addColumnDefaultCode(op),
			}), nil
		}
	}

	if !strings.EqualFold(op.Type, "json") || !s.IsPostgres() {
		return analyzer.Allow(), nil
	}

	info, err := s.Dialect(ctx)
	if err != nil {
		return analyzer.Verdict{}, err
	}

	vars := analyzer.Vars{"table": op.Table, "column": op.Column}
	if info.Version >= dialect.PGVersionJSONB {
		return analyzer.Deny(analyzer.MsgAddColumnJSON, vars), nil
	}

	return analyzer.Deny(analyzer.MsgAddColumnJSONLegacy, vars), nil
}

// addsDefaultWithoutRewrite reports whether the engine stores a new column's
// default in the catalog instead of rewriting rows (PostgreSQL 11+, and only
// for defaults that do not change from row to row).
func addsDefaultWithoutRewrite(ctx context.Context, op operation.Operation, s *analyzer.Session) (bool, error) {
	if !s.IsPostgres() || op.Options.VolatileDefault {
		return false, nil
	}

	info, err := s.Dialect(ctx)
	if err != nil {
		return false, err
	}

	return info.Version >= dialect.PGVersionFastAddDefault, nil
}
