package analyzer

import (
	"fmt"
	"strings"
)

// Template keys for the built-in rules.
const (
	MsgRemoveColumn        = "remove_column"
	MsgChangeTable         = "change_table"
	MsgRenameTable         = "rename_table"
	MsgRenameColumn        = "rename_column"
	MsgAddIndex            = "add_index"
	MsgAddIndexColumns     = "add_index_columns"
	MsgAddColumnDefault    = "add_column_default"
	MsgAddColumnJSON       = "add_column_json"
	MsgAddColumnJSONLegacy = "add_column_json_legacy"
	MsgChangeColumn        = "change_column"
	MsgCreateTable         = "create_table"
	MsgAddReference        = "add_reference"
	MsgExecute             = "execute"
	MsgChangeColumnNull    = "change_column_null"
)

const missingMessage = "Missing message"

// Messages maps template keys to template text.
type Messages map[string]string

// DefaultMessages returns a fresh copy of the built-in templates.
func DefaultMessages() Messages {
	m := make(Messages, len(defaultMessages))
	for k, v := range defaultMessages {
		m[k] = v
	}

	return m
}

// Merge returns a copy of m with overrides applied on top.
func (m Messages) Merge(overrides map[string]string) Messages {
	out := make(Messages, len(m)+len(overrides))
	for k, v := range m {
		out[k] = v
	}

	for k, v := range overrides {
		out[k] = v
	}

	return out
}

// Render looks up a template by key and substitutes vars into it.
func (m Messages) Render(key string, vars Vars) (string, error) {
	tmpl, ok := m[key]
	if !ok {
		return missingMessage, nil
	}

	return Render(tmpl, vars)
}

// Render substitutes %{name} placeholders in tmpl. "%%" produces a literal
// percent sign, and a "%" not followed by "{" is kept as written. Every
// placeholder must have a value in vars.
func Render(tmpl string, vars Vars) (string, error) {
	var b strings.Builder

	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '%' || i+1 == len(tmpl) {
			b.WriteByte(c)
			continue
		}

		switch tmpl[i+1] {
		case '%':
			b.WriteByte('%')
			i++
		case '{':
			end := strings.IndexByte(tmpl[i+2:], '}')
			if end < 0 {
				b.WriteString(tmpl[i:])
				return b.String(), nil
			}

			name := tmpl[i+2 : i+2+end]

			val, ok := vars[name]
			if !ok {
				return "", fmt.Errorf("%w: %%{%s}", ErrUnknownPlaceholder, name)
			}

			b.WriteString(val)

			i += end + 2
		default:
			b.WriteByte('%')
		}
	}

	return b.String(), nil
}

var defaultMessages = map[string]string{ //nolint:gochecknoglobals // built-in template table
	MsgRemoveColumn: `Dropping a column that running application code still selects makes
those queries fail until every instance is restarted.

1. Deploy application code that no longer reads or writes %{columns} on %{table}.
2. Drop the column in a later migration, once that deploy is live:

%{code}`,

	MsgChangeTable: `This ALTER TABLE on %{table} combines changes that cannot be classified
on their own, so its lock and rewrite behaviour is unknown.

Split it into separate statements, or verify it and wrap it in a
safety-assured block.`,

	MsgRenameTable: `Renaming a table that is in use breaks running application code.
A safer approach is to:

1. Create a new table %{new_name}
2. Write to both %{table} and %{new_name}
3. Backfill data from %{table} into %{new_name}
4. Move reads from %{table} to %{new_name}
5. Stop writing to %{table}
6. Drop %{table}`,

	MsgRenameColumn: `Renaming a column that is in use breaks running application code.
A safer approach is to:

1. Create a new column %{new_name} on %{table}
2. Write to both %{column} and %{new_name}
3. Backfill data from %{column} into %{new_name}
4. Move reads to %{new_name}
5. Stop writing to %{column}
6. Drop %{column}`,

	MsgAddIndexColumns: `Adding a non-unique index on %{table} with more than three columns
(%{column}) rarely improves performance.

Instead, start an index with the columns that narrow down the results the most.`,

	MsgAddIndex: `Adding an index non-concurrently locks %{table} against writes for the
whole build. Build it concurrently instead:

%{code}

CREATE INDEX CONCURRENTLY cannot run inside a transaction block, so keep
it alone in migration %{migration_name}.`,

	MsgAddColumnDefault: `Adding column %{column} with this default rewrites every row of %{table}
while holding an exclusive lock. Either the database version cannot store
the default in the catalog, or the default differs from row to row.

Add the column without a default, set the default separately, then
backfill existing rows in batches:

%{code}`,

	MsgAddColumnJSON: `There is no equality operator for the json column type, which makes
SELECT DISTINCT queries against %{table} fail.

Use jsonb for %{column} instead.`,

	MsgAddColumnJSONLegacy: `There is no equality operator for the json column type, which makes
SELECT DISTINCT queries against %{table} fail, and this database
version has no jsonb.

Replace SELECT DISTINCT on %{table} with a query that does not compare
%{column}, for example:

  SELECT DISTINCT ON (id) * FROM %{table}`,

	MsgChangeColumn: `Changing the type of %{table}.%{column} to %{type} rewrites the entire
table and its indexes. A safer approach is to:

1. Create a new column
2. Write to both columns
3. Backfill data from the old column to the new column
4. Move reads from the old column to the new column
5. Stop writing to the old column
6. Drop the old column`,

	MsgCreateTable: `The force option drops %{table} if it already exists, destroying its data.
If that is intended, drop the table explicitly in its own statement.
Otherwise, remove the option.`,

	MsgAddReference: `Adding a non-concurrent index locks %{table} against writes.
Add the reference columns without an index, then index them concurrently:

%{code}

Keep the concurrent index alone in migration %{migration_name}.`,

	MsgExecute: `Raw SQL cannot be checked:

  %{sql}

Make really sure it is safe, then wrap it in a safety-assured block.`,

	MsgChangeColumnNull: `Forbidding NULLs on %{table}.%{column} with a default backfills every
row in a single UPDATE, which can lock the table for a long time.

Backfill the existing rows in batches first:

%{code}

Then forbid NULLs without a default:

%{not_null}`,
}
