package operation

import (
	"fmt"
	"strings"
)

// AlgorithmConcurrently requests a non-blocking index build.
const AlgorithmConcurrently = "concurrently"

// Expr is a non-literal SQL expression used as a column default (e.g. now()).
type Expr string

// Options carries the keyword arguments of an operation. Fields that do not
// apply to a kind are left at their zero value.
type Options struct {
	Unique      bool
	Algorithm   string
	Name        string
	Using       string
	Where       string
	NotNull     bool
	Index       *bool // add_reference / add_belongs_to; nil means the implicit default (true)
	Polymorphic bool
	Force       bool
	// Cast is the USING expression of a change_column. Any cast rewrites
	// every row, even between binary coercible types.
	Cast string
	// VolatileDefault marks an add_column default that is evaluated per row
	// (e.g. gen_random_uuid()), which no engine can store in the catalog.
	VolatileDefault bool
}

// Concurrent reports whether the non-blocking build mode was requested.
func (o Options) Concurrent() bool {
	return o.Algorithm == AlgorithmConcurrently
}

// IndexRequested reports whether a reference asks for an index.
func (o Options) IndexRequested() bool {
	return o.Index == nil || *o.Index
}

// Render formats the options as ", key: value" pairs in a fixed order.
// Names passed in omit are skipped.
func (o Options) Render(omit ...string) string {
	skip := make(map[string]bool, len(omit))
	for _, k := range omit {
		skip[k] = true
	}

	var b strings.Builder

	add := func(key, value string) {
		if skip[key] {
			return
		}

		fmt.Fprintf(&b, ", %s: %s", key, value)
	}

	if o.Unique {
		add("unique", "true")
	}

	if o.Name != "" {
		add("name", Literal(o.Name))
	}

	if o.Using != "" {
		add("using", o.Using)
	}

	if o.Where != "" {
		add("where", Literal(o.Where))
	}

	if o.Algorithm != "" {
		add("algorithm", o.Algorithm)
	}

	if o.NotNull {
		add("null", "false")
	}

	if o.Index != nil {
		add("index", fmt.Sprint(*o.Index))
	}

	if o.Polymorphic {
		add("polymorphic", "true")
	}

	if o.Force {
		add("force", "true")
	}

	return b.String()
}

// Operation is one schema-mutating step attempted by a migration. It is
// built once by a constructor and treated as immutable afterwards.
type Operation struct {
	Kind    Kind
	Table   string
	Column  string   // single column, or the reference name for add_reference
	Columns []string // add_index
	Type    string   // add_column, change_column
	NewName string   // rename_table, rename_column
	SQL     string   // execute
	Null    bool     // change_column_null
	Default any      // add_column, change_column_null; nil means no default
	Options Options
}

// CreateTable builds a create_table operation.
func CreateTable(table string, opts Options) Operation {
	return Operation{Kind: KindCreateTable, Table: table, Options: opts}
}

// DropTable builds a drop_table operation.
func DropTable(table string) Operation {
	return Operation{Kind: KindDropTable, Table: table}
}

// AddColumn builds an add_column operation.
func AddColumn(table, column, typ string, def any, opts Options) Operation {
	return Operation{Kind: KindAddColumn, Table: table, Column: column, Type: typ, Default: def, Options: opts}
}

// RemoveColumn builds a remove_column operation.
func RemoveColumn(table, column string) Operation {
	return Operation{Kind: KindRemoveColumn, Table: table, Column: column}
}

// RemoveTimestamps builds a remove_timestamps operation.
func RemoveTimestamps(table string) Operation {
	return Operation{Kind: KindRemoveTimestamps, Table: table}
}

// RenameColumn builds a rename_column operation.
func RenameColumn(table, column, newName string) Operation {
	return Operation{Kind: KindRenameColumn, Table: table, Column: column, NewName: newName}
}

// RenameTable builds a rename_table operation.
func RenameTable(table, newName string) Operation {
	return Operation{Kind: KindRenameTable, Table: table, NewName: newName}
}

// ChangeTable builds a change_table operation.
func ChangeTable(table string) Operation {
	return Operation{Kind: KindChangeTable, Table: table}
}

// ChangeColumn builds a change_column operation.
func ChangeColumn(table, column, typ string) Operation {
	return Operation{Kind: KindChangeColumn, Table: table, Column: column, Type: typ}
}

// ChangeColumnNull builds a change_column_null operation. null=false forbids
// NULLs; def, when non-nil, backfills existing NULL rows.
func ChangeColumnNull(table, column string, null bool, def any) Operation {
	return Operation{Kind: KindChangeColumnNull, Table: table, Column: column, Null: null, Default: def}
}

// ChangeColumnDefault builds a change_column_default operation.
func ChangeColumnDefault(table, column string, def any) Operation {
	return Operation{Kind: KindChangeColumnDefault, Table: table, Column: column, Default: def}
}

// AddIndex builds an add_index operation.
func AddIndex(table string, columns []string, opts Options) Operation {
	return Operation{Kind: KindAddIndex, Table: table, Columns: columns, Options: opts}
}

// RemoveIndex builds a remove_index operation.
func RemoveIndex(table string, opts Options) Operation {
	return Operation{Kind: KindRemoveIndex, Table: table, Options: opts}
}

// AddReference builds an add_reference operation.
func AddReference(table, reference string, opts Options) Operation {
	return Operation{Kind: KindAddReference, Table: table, Column: reference, Options: opts}
}

// AddBelongsTo builds an add_belongs_to operation, an alias of add_reference.
func AddBelongsTo(table, reference string, opts Options) Operation {
	return Operation{Kind: KindAddBelongsTo, Table: table, Column: reference, Options: opts}
}

// Execute builds an execute operation for raw SQL.
func Execute(sql string) Operation {
	return Operation{Kind: KindExecute, SQL: sql}
}

// Literal renders a value the way it would appear in SQL.
func Literal(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case Expr:
		return string(t)
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'"
	case bool, int, int32, int64, float32, float64:
		return fmt.Sprint(t)
	default:
		return Literal(fmt.Sprint(t))
	}
}

// ColumnList renders one column bare and several as a bracketed list.
func ColumnList(columns []string) string {
	if len(columns) == 1 {
		return columns[0]
	}

	return "[" + strings.Join(columns, ", ") + "]"
}
