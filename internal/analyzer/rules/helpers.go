package rules

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/operation"
)

const backfillBatchSize = 10000

// backfillCode renders a batched UPDATE that fills NULLs with def.
func backfillCode(table, column string, def any) string {
	t := analyzer.QuoteTable(table)
	c := pgx.Identifier{column}.Sanitize()

	return fmt.Sprintf(`  UPDATE %s SET %s = %s
  WHERE ctid IN (SELECT ctid FROM %s WHERE %s IS NULL LIMIT %d);
  -- repeat in batches until no rows are updated`,
		t, c, operation.Literal(def), t, c, backfillBatchSize)
}

func migrationName(s *analyzer.Session) string {
	if name := s.MigrationName(); name != "" {
		return name
	}

	return "<migration>"
}

// sqlColumn quotes a plain column name and keeps an index expression as written.
func sqlColumn(column string) string {
	if strings.ContainsAny(column, "() ") {
		return column
	}

	return pgx.Identifier{column}.Sanitize()
}

// concurrentIndexCode renders an index as CREATE INDEX CONCURRENTLY.
func concurrentIndexCode(table string, columns []string, opts operation.Options) string {
	var b strings.Builder

	b.WriteString("  CREATE ")

	if opts.Unique {
		b.WriteString("UNIQUE ")
	}

	b.WriteString("INDEX CONCURRENTLY ")

	if opts.Name != "" {
		b.WriteString(pgx.Identifier{opts.Name}.Sanitize() + " ")
	}

	b.WriteString("ON " + analyzer.QuoteTable(table))

	if opts.Using != "" {
		b.WriteString(" USING " + opts.Using)
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = sqlColumn(c)
	}

	b.WriteString(" (" + strings.Join(quoted, ", ") + ")")

	if opts.Where != "" {
		b.WriteString(" WHERE " + opts.Where)
	}

	b.WriteString(";")

	return b.String()
}

// addColumnDefaultCode splits an add_column with a default into adding the
// bare column, setting the default and backfilling in batches.
func addColumnDefaultCode(op operation.Operation) string {
	t := analyzer.QuoteTable(op.Table)
	c := pgx.Identifier{op.Column}.Sanitize()

	lines := []string{
		fmt.Sprintf("  ALTER TABLE %s ADD COLUMN %s %s;", t, c, op.Type),
		fmt.Sprintf("  ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s;", t, c, operation.Literal(op.Default)),
		backfillCode(op.Table, op.Column, op.Default),
	}

	if op.Options.NotNull {
		lines = append(lines, fmt.Sprintf("  ALTER TABLE %s ALTER COLUMN %s SET NOT NULL;", t, c))
	}

	return strings.Join(lines, "\n")
}
