package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import (
	"fmt"
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/safe-migrate/internal/operation"
)

// Statement is one SQL statement of a migration file together with the
// operations it performs.
type Statement struct {
	SQL        string
	Ops        []operation.Operation
	Assured    bool // covered by a safety-assured directive
	Concurrent bool // must run outside a transaction block
}

// Statements parses sql and translates each statement into operations.
// Statements that cannot be classified become a single execute operation.
func Statements(sql string) ([]Statement, error) {
	result, err := Parse(sql)
	if err != nil {
		return nil, err
	}

	stmts := make([]Statement, 0, len(result.Stmts))
	fileAssured := false
	inRegion := false

	for i, raw := range result.Stmts {
		text := result.StmtText(i)

		for _, d := range leadingDirectives(text) {
			switch d {
			case directiveFile:
				fileAssured = true
			case directiveBegin:
				inRegion = true
			case directiveEnd:
				inRegion = false
			case directiveNone:
			}
		}

		ops, err := translate(raw.Stmt, text)
		if err != nil {
			return nil, fmt.Errorf("translating statement %d: %w", i+1, err)
		}

		stmts = append(stmts, Statement{
			SQL:        text,
			Ops:        ops,
			Assured:    inRegion,
			Concurrent: isConcurrent(raw.Stmt),
		})
	}

	if fileAssured {
		for i := range stmts {
			stmts[i].Assured = true
		}
	}

	return stmts, nil
}

func translate(node *pg_query.Node, text string) ([]operation.Operation, error) {
	switch n := node.Node.(type) {
	case *pg_query.Node_CreateStmt:
		return []operation.Operation{
			operation.CreateTable(tableName(n.CreateStmt.Relation), operation.Options{}),
		}, nil
	case *pg_query.Node_IndexStmt:
		op, err := translateIndex(n.IndexStmt)
		if err != nil {
			return nil, err
		}

		return []operation.Operation{op}, nil
	case *pg_query.Node_AlterTableStmt:
		return translateAlterTable(n.AlterTableStmt, text)
	case *pg_query.Node_RenameStmt:
		return translateRename(n.RenameStmt, text), nil
	case *pg_query.Node_DropStmt:
		return translateDrop(n.DropStmt, text), nil
	default:
		return []operation.Operation{operation.Execute(text)}, nil
	}
}

func translateIndex(idx *pg_query.IndexStmt) (operation.Operation, error) {
	columns := make([]string, 0, len(idx.IndexParams))

	for _, p := range idx.IndexParams {
		elem, ok := p.Node.(*pg_query.Node_IndexElem)
		if !ok {
			continue
		}

		if elem.IndexElem.Name != "" {
			columns = append(columns, elem.IndexElem.Name)
			continue
		}

		expr, err := deparseExpr(elem.IndexElem.Expr)
		if err != nil {
			return operation.Operation{}, err
		}

		columns = append(columns, expr)
	}

	opts := operation.Options{
		Unique: idx.Unique,
		Name:   idx.Idxname,
	}

	if idx.AccessMethod != "" && idx.AccessMethod != "btree" {
		opts.Using = idx.AccessMethod
	}

	if idx.Concurrent {
		opts.Algorithm = operation.AlgorithmConcurrently
	}

	if idx.WhereClause != nil {
		where, err := deparseExpr(idx.WhereClause)
		if err != nil {
			return operation.Operation{}, err
		}

		opts.Where = where
	}

	return operation.AddIndex(tableName(idx.Relation), columns, opts), nil
}

// translateAlterTable maps each subcommand to an operation. A statement with
// any subcommand outside the known set becomes a single change_table.
func translateAlterTable(alt *pg_query.AlterTableStmt, text string) ([]operation.Operation, error) {
	if alt.Objtype != pg_query.ObjectType_OBJECT_TABLE {
		return []operation.Operation{operation.Execute(text)}, nil
	}

	table := tableName(alt.Relation)
	cmds := make([]*pg_query.AlterTableCmd, 0, len(alt.Cmds))

	for _, c := range alt.Cmds {
		cmd, ok := c.Node.(*pg_query.Node_AlterTableCmd)
		if !ok {
			continue
		}

		cmds = append(cmds, cmd.AlterTableCmd)
	}

	if isRemoveTimestamps(cmds) {
		return []operation.Operation{operation.RemoveTimestamps(table)}, nil
	}

	defaults := columnDefaults(cmds)

	var ops []operation.Operation

	for _, cmd := range cmds {
		cmdOps, ok, err := translateAlterCmd(table, cmd, defaults)
		if err != nil {
			return nil, err
		}

		if !ok {
			return []operation.Operation{operation.ChangeTable(table)}, nil
		}

		ops = append(ops, cmdOps...)
	}

	return ops, nil
}

// translateAlterCmd returns ok=false for subcommands it cannot classify and
// no operations for subcommands already folded into another one.
func translateAlterCmd(table string, cmd *pg_query.AlterTableCmd, defaults map[string]*pg_query.Node) ([]operation.Operation, bool, error) {
	one := func(op operation.Operation, err error) ([]operation.Operation, bool, error) {
		if err != nil {
			return nil, false, err
		}

		return []operation.Operation{op}, true, nil
	}

	switch cmd.Subtype {
	case pg_query.AlterTableType_AT_AddColumn:
		return translateAddColumn(table, cmd)
	case pg_query.AlterTableType_AT_DropColumn:
		return one(operation.RemoveColumn(table, cmd.Name), nil)
	case pg_query.AlterTableType_AT_AlterColumnType:
		def, ok := cmd.Def.GetNode().(*pg_query.Node_ColumnDef)
		if !ok {
			return nil, false, nil
		}

		op := operation.ChangeColumn(table, cmd.Name, typeName(def.ColumnDef.TypeName))

		cast, err := deparseExpr(def.ColumnDef.RawDefault)
		op.Options.Cast = cast

		return one(op, err)
	case pg_query.AlterTableType_AT_SetNotNull:
		def, err := defaultValue(defaults[cmd.Name])

		return one(operation.ChangeColumnNull(table, cmd.Name, false, def), err)
	case pg_query.AlterTableType_AT_DropNotNull:
		return one(operation.ChangeColumnNull(table, cmd.Name, true, nil), nil)
	case pg_query.AlterTableType_AT_ColumnDefault:
		if _, folded := defaults[cmd.Name]; folded && cmd.Def != nil {
			return nil, true, nil
		}

		def, err := defaultValue(cmd.Def)

		return one(operation.ChangeColumnDefault(table, cmd.Name, def), err)
	default:
		return nil, false, nil
	}
}

// serialTypes create and fill a sequence-backed default for every row.
var serialTypes = map[string]bool{ //nolint:gochecknoglobals // lookup table
	"serial": true, "serial2": true, "serial4": true, "serial8": true,
	"smallserial": true, "bigserial": true,
}

// translateAddColumn returns add_column, plus a unique add_index for an
// inline UNIQUE or PRIMARY KEY. Column definitions that rewrite or scan the
// table in ways no rule models (serial, identity, generated, foreign key,
// check) are reported as unclassifiable.
func translateAddColumn(table string, cmd *pg_query.AlterTableCmd) ([]operation.Operation, bool, error) {
	node, ok := cmd.Def.GetNode().(*pg_query.Node_ColumnDef)
	if !ok {
		return nil, false, nil
	}

	col := node.ColumnDef
	typ := typeName(col.TypeName)

	if serialTypes[strings.ToLower(typ)] || col.Identity != "" || col.Generated != "" {
		return nil, false, nil
	}

	opts := operation.Options{NotNull: col.IsNotNull}

	var (
		rawDefault *pg_query.Node
		indexes    []operation.Operation
	)

	for _, c := range col.Constraints {
		cn, ok := c.Node.(*pg_query.Node_Constraint)
		if !ok {
			continue
		}

		switch cn.Constraint.Contype {
		case pg_query.ConstrType_CONSTR_DEFAULT:
			rawDefault = cn.Constraint.RawExpr
		case pg_query.ConstrType_CONSTR_NOTNULL:
			opts.NotNull = true
		case pg_query.ConstrType_CONSTR_UNIQUE, pg_query.ConstrType_CONSTR_PRIMARY:
			indexes = append(indexes, operation.AddIndex(table, []string{col.Colname},
				operation.Options{Unique: true, Name: cn.Constraint.Conname}))
		case pg_query.ConstrType_CONSTR_NULL,
			pg_query.ConstrType_CONSTR_ATTR_DEFERRABLE, pg_query.ConstrType_CONSTR_ATTR_NOT_DEFERRABLE,
			pg_query.ConstrType_CONSTR_ATTR_DEFERRED, pg_query.ConstrType_CONSTR_ATTR_IMMEDIATE:
		default:
			return nil, false, nil
		}
	}

	def, err := defaultValue(rawDefault)
	if err != nil {
		return nil, false, err
	}

	if rawDefault != nil && !rowIndependent(rawDefault) {
		opts.VolatileDefault = true
	}

	ops := []operation.Operation{operation.AddColumn(table, col.Colname, typ, def, opts)}

	return append(ops, indexes...), true, nil
}

// stableFunctions return one value per statement, so a default built from
// them is computed once and stored in the catalog.
var stableFunctions = map[string]bool{ //nolint:gochecknoglobals // lookup table
	"now": true, "transaction_timestamp": true, "statement_timestamp": true,
}

// rowIndependent reports whether a default expression yields the same value
// for every existing row: constants, casts, CURRENT_TIMESTAMP and friends,
// operators over those, and the functions in stableFunctions. Anything else
// is assumed volatile.
func rowIndependent(node *pg_query.Node) bool {
	if node == nil {
		return true
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_AConst, *pg_query.Node_SqlvalueFunction:
		return true
	case *pg_query.Node_TypeCast:
		return rowIndependent(n.TypeCast.Arg)
	case *pg_query.Node_AExpr:
		return rowIndependent(n.AExpr.Lexpr) && rowIndependent(n.AExpr.Rexpr)
	case *pg_query.Node_FuncCall:
		if !stableFunctions[funcName(n.FuncCall)] {
			return false
		}

		for _, arg := range n.FuncCall.Args {
			if !rowIndependent(arg) {
				return false
			}
		}

		return true
	default:
		return false
	}
}

func funcName(fc *pg_query.FuncCall) string {
	var name string

	for _, n := range fc.Funcname {
		if s, ok := n.Node.(*pg_query.Node_String_); ok && s.String_.Sval != "pg_catalog" {
			name = s.String_.Sval
		}
	}

	return strings.ToLower(name)
}

// columnDefaults collects SET DEFAULT subcommands for columns that are also
// made NOT NULL in the same statement; those pairs become change_column_null.
func columnDefaults(cmds []*pg_query.AlterTableCmd) map[string]*pg_query.Node {
	notNull := make(map[string]bool)

	for _, cmd := range cmds {
		if cmd.Subtype == pg_query.AlterTableType_AT_SetNotNull {
			notNull[cmd.Name] = true
		}
	}

	defaults := make(map[string]*pg_query.Node)

	for _, cmd := range cmds {
		if cmd.Subtype == pg_query.AlterTableType_AT_ColumnDefault && cmd.Def != nil && notNull[cmd.Name] {
			defaults[cmd.Name] = cmd.Def
		}
	}

	return defaults
}

func isRemoveTimestamps(cmds []*pg_query.AlterTableCmd) bool {
	if len(cmds) != 2 { //nolint:mnd // created_at and updated_at
		return false
	}

	seen := make(map[string]bool, len(cmds))

	for _, cmd := range cmds {
		if cmd.Subtype != pg_query.AlterTableType_AT_DropColumn {
			return false
		}

		seen[cmd.Name] = true
	}

	return seen["created_at"] && seen["updated_at"]
}

func translateRename(rename *pg_query.RenameStmt, text string) []operation.Operation {
	table := tableName(rename.Relation)

	switch rename.RenameType {
	case pg_query.ObjectType_OBJECT_TABLE:
		return []operation.Operation{operation.RenameTable(table, rename.Newname)}
	case pg_query.ObjectType_OBJECT_COLUMN:
		return []operation.Operation{operation.RenameColumn(table, rename.Subname, rename.Newname)}
	default:
		return []operation.Operation{operation.Execute(text)}
	}
}

func translateDrop(drop *pg_query.DropStmt, text string) []operation.Operation {
	var ops []operation.Operation

	switch drop.RemoveType {
	case pg_query.ObjectType_OBJECT_TABLE:
		for _, name := range objectNames(drop) {
			ops = append(ops, operation.DropTable(name))
		}
	case pg_query.ObjectType_OBJECT_INDEX:
		for _, name := range objectNames(drop) {
			opts := operation.Options{Name: name}
			if drop.Concurrent {
				opts.Algorithm = operation.AlgorithmConcurrently
			}

			ops = append(ops, operation.RemoveIndex("", opts))
		}
	default:
		return []operation.Operation{operation.Execute(text)}
	}

	return ops
}

func objectNames(drop *pg_query.DropStmt) []string {
	var names []string

	for _, obj := range drop.Objects {
		listNode, ok := obj.Node.(*pg_query.Node_List)
		if !ok {
			continue
		}

		var parts []string

		for _, item := range listNode.List.Items {
			if s, ok := item.Node.(*pg_query.Node_String_); ok {
				parts = append(parts, s.String_.Sval)
			}
		}

		if len(parts) > 0 {
			names = append(names, strings.Join(parts, "."))
		}
	}

	return names
}

// isConcurrent reports whether the statement cannot run inside a
// transaction block.
func isConcurrent(node *pg_query.Node) bool {
	switch n := node.Node.(type) {
	case *pg_query.Node_IndexStmt:
		return n.IndexStmt.Concurrent
	case *pg_query.Node_DropStmt:
		return n.DropStmt.Concurrent
	default:
		return false
	}
}

func tableName(rv *pg_query.RangeVar) string {
	if rv == nil {
		return ""
	}

	if rv.Schemaname != "" {
		return rv.Schemaname + "." + rv.Relname
	}

	return rv.Relname
}

// typeName renders a column type the way it was written, without the
// pg_catalog qualifier, e.g. "varchar(255)" or "text[]".
func typeName(tn *pg_query.TypeName) string {
	if tn == nil {
		return ""
	}

	var parts []string

	for _, n := range tn.Names {
		s, ok := n.Node.(*pg_query.Node_String_)
		if !ok || s.String_.Sval == "pg_catalog" {
			continue
		}

		parts = append(parts, s.String_.Sval)
	}

	name := strings.Join(parts, ".")

	var mods []string

	for _, m := range tn.Typmods {
		if c, ok := m.Node.(*pg_query.Node_AConst); ok {
			if iv := c.AConst.GetIval(); iv != nil {
				mods = append(mods, strconv.Itoa(int(iv.Ival)))
			}
		}
	}

	if len(mods) > 0 {
		name += "(" + strings.Join(mods, ",") + ")"
	}

	for range tn.ArrayBounds {
		name += "[]"
	}

	return name
}

// defaultValue converts a DEFAULT expression to a Go value: literals become
// strings, numbers or bools, DEFAULT NULL becomes nil and anything else an
// operation.Expr.
func defaultValue(node *pg_query.Node) (any, error) {
	if node == nil {
		return nil, nil //nolint:nilnil // no default
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_AConst:
		return constValue(n.AConst), nil
	case *pg_query.Node_TypeCast:
		if arg, ok := n.TypeCast.Arg.GetNode().(*pg_query.Node_AConst); ok {
			return constValue(arg.AConst), nil
		}
	default:
	}

	expr, err := deparseExpr(node)
	if err != nil {
		return nil, err
	}

	return operation.Expr(expr), nil
}

func constValue(c *pg_query.A_Const) any {
	if c.Isnull {
		return nil
	}

	switch {
	case c.GetIval() != nil:
		return int64(c.GetIval().Ival)
	case c.GetSval() != nil:
		return c.GetSval().Sval
	case c.GetBoolval() != nil:
		return c.GetBoolval().Boolval
	case c.GetFval() != nil:
		return operation.Expr(c.GetFval().Fval)
	default:
		return nil
	}
}

// deparseExpr renders an expression node back to SQL by deparsing it as the
// target of a SELECT.
func deparseExpr(node *pg_query.Node) (string, error) {
	if node == nil {
		return "", nil
	}

	stmt := &pg_query.Node{Node: &pg_query.Node_SelectStmt{SelectStmt: &pg_query.SelectStmt{
		TargetList: []*pg_query.Node{{Node: &pg_query.Node_ResTarget{ResTarget: &pg_query.ResTarget{Val: node}}}},
		Op:         pg_query.SetOperation_SETOP_NONE,
	}}}

	out, err := pg_query.Deparse(&pg_query.ParseResult{Stmts: []*pg_query.RawStmt{{Stmt: stmt}}})
	if err != nil {
		return "", fmt.Errorf("deparsing expression: %w", err)
	}

	return strings.TrimPrefix(out, "SELECT "), nil
}
