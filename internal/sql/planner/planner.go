// Package planner lowers a parsed AST (internal/sql/parser) into a
// logical plan (internal/plan), resolving table/column names against a
// catalog. It mirrors the reference planner's per-statement "bind then
// build" structure: a SELECT becomes Scan[/Join] -> Filter -> Project ->
// Sort -> Limit, in that order, so ORDER BY can reference a projected
// (computed) column.
package planner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tuannm99/novadb/internal/catalog"
	"github.com/tuannm99/novadb/internal/expr"
	"github.com/tuannm99/novadb/internal/plan"
	"github.com/tuannm99/novadb/internal/sql/parser"
	"github.com/tuannm99/novadb/internal/types"
)

// Planner lowers AST statements against a fixed catalog.
type Planner struct {
	Catalog *catalog.Catalog
}

func New(cat *catalog.Catalog) *Planner {
	return &Planner{Catalog: cat}
}

// Plan lowers one parsed statement into a logical plan root.
func (p *Planner) Plan(stmt parser.Statement) (plan.Node, error) {
	switch s := stmt.(type) {
	case *parser.CreateTableStmt:
		return p.planCreateTable(s)
	case *parser.CreateIndexStmt:
		return p.planCreateIndex(s)
	case *parser.InsertStmt:
		return p.planInsert(s)
	case *parser.SelectStmt:
		return p.planSelect(s)
	case *parser.UpdateStmt:
		return p.planUpdate(s)
	case *parser.DeleteStmt:
		return p.planDelete(s)
	default:
		return nil, fmt.Errorf("planner: unsupported statement %T", stmt)
	}
}

func (p *Planner) planCreateTable(s *parser.CreateTableStmt) (plan.Node, error) {
	cols := make([]plan.Column, len(s.Columns))
	for i, c := range s.Columns {
		kind, varcharLen, err := parseColumnType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("planner: column %q: %w", c.Name, err)
		}
		cols[i] = plan.Column{Name: c.Name, DataType: kind, Nullable: true, VarcharLen: varcharLen}
	}
	return plan.NewCreateTable(s.TableName, cols), nil
}

func (p *Planner) planCreateIndex(s *parser.CreateIndexStmt) (plan.Node, error) {
	if _, _, ok := p.Catalog.Table(s.TableName); !ok {
		return nil, fmt.Errorf("planner: table %q does not exist", s.TableName)
	}
	// Every entry in s.Columns is already a bare identifier: the grammar
	// for CREATE INDEX only ever accepts a parenthesized column list, so
	// the spec's "OrderBy.expr must be a bare column reference" rule is
	// enforced structurally by the parser rather than checked here.
	return plan.NewCreateIndex(s.IndexName, s.TableName, s.Columns), nil
}

func (p *Planner) planInsert(s *parser.InsertStmt) (plan.Node, error) {
	_, info, ok := p.Catalog.Table(s.TableName)
	if !ok {
		return nil, fmt.Errorf("planner: table %q does not exist", s.TableName)
	}
	if len(s.Values) != len(info.Schema.Columns) {
		return nil, fmt.Errorf("planner: INSERT into %q expects %d values, got %d", s.TableName, len(info.Schema.Columns), len(s.Values))
	}
	row := make([]expr.Expr, len(s.Values))
	for i, v := range s.Values {
		e, err := bindExpr(v, nil)
		if err != nil {
			return nil, err
		}
		row[i] = e
	}
	values := plan.NewValues(info.Schema, [][]expr.Expr{row})
	return plan.NewInsert(s.TableName, info.Schema, values), nil
}

func (p *Planner) planSelect(s *parser.SelectStmt) (plan.Node, error) {
	base, schema, err := p.planFrom(s.TableName, s.Joins, s.Where)
	if err != nil {
		return nil, err
	}
	var node plan.Node = base

	if s.Where != nil {
		pred, err := bindExpr(s.Where, schema)
		if err != nil {
			return nil, err
		}
		node = plan.NewFilter(pred, node)
	}

	projExprs, projNames, err := p.resolveProjection(s.Columns, schema)
	if err != nil {
		return nil, err
	}
	projNode, err := plan.NewProject(projExprs, projNames, node)
	if err != nil {
		return nil, err
	}
	node = projNode

	if len(s.OrderBy) > 0 {
		orderBys := make([]plan.OrderBy, len(s.OrderBy))
		for i, ob := range s.OrderBy {
			idx := node.Schema().IndexOf("", ob.Column)
			if idx < 0 {
				return nil, fmt.Errorf("planner: unknown ORDER BY column %q", ob.Column)
			}
			orderBys[i] = plan.OrderBy{Expr: &expr.Column{Name: ob.Column}, Desc: ob.Desc}
		}
		node = plan.NewSort(orderBys, node)
	}

	if s.Limit != nil {
		node = plan.NewLimit(s.Limit.Limit, s.Limit.Offset, node)
	}
	return node, nil
}

// planFrom builds the Scan (optionally joined) plan for a SELECT/UPDATE/
// DELETE's FROM clause, returning the node and its output schema (with
// each column tagged with its originating table name so qualified
// references like "orders.user_id" resolve across a join). where, if
// non-nil, is matched against the base table's indexes so an equality
// predicate can turn the base scan into an IndexScan; joined tables are
// always scanned by the seq path, since where isn't known to apply to
// them independent of the join condition.
func (p *Planner) planFrom(tableName string, joins []parser.JoinClause, where parser.Expr) (plan.Node, *types.Schema, error) {
	leftNode, leftSchema, err := p.planTableScan(tableName, where)
	if err != nil {
		return nil, nil, err
	}
	var node plan.Node = leftNode
	schema := leftSchema

	for _, j := range joins {
		rightNode, rightSchema, err := p.planTableScan(j.TableName, nil)
		if err != nil {
			return nil, nil, err
		}
		kind, err := joinKind(j.Kind)
		if err != nil {
			return nil, nil, err
		}
		var on expr.Expr
		if j.On != nil {
			combinedSchema := types.Concat(schema, rightSchema, false, false)
			on, err = bindExpr(j.On, combinedSchema)
			if err != nil {
				return nil, nil, err
			}
		}
		joinNode := plan.NewJoin(kind, on, node, rightNode)
		node = joinNode
		schema = joinNode.Schema()
	}
	return node, schema, nil
}

func (p *Planner) planTableScan(tableName string, where parser.Expr) (plan.Node, *types.Schema, error) {
	_, info, ok := p.Catalog.Table(tableName)
	if !ok {
		return nil, nil, fmt.Errorf("planner: table %q does not exist", tableName)
	}
	schema := withRelation(info.Schema, tableName)
	indexName := p.selectIndex(tableName, info.Schema, where)
	return plan.NewTableScan(schema, tableName, indexName), schema, nil
}

// selectIndex picks a single-column index on tableName that a top-level
// equality conjunct in where matches, e.g. "WHERE id = 5" with an index on
// id. Returns "" if no index applies, leaving the caller to fall back to a
// full sequential scan. Only exact single-column equality is considered:
// compound keys, ranges, and OR branches are left to the seq scan + filter.
func (p *Planner) selectIndex(tableName string, schema *types.Schema, where parser.Expr) string {
	if where == nil {
		return ""
	}
	cols := make(map[string]bool)
	collectEqualityColumns(where, tableName, cols)
	if len(cols) == 0 {
		return ""
	}
	for _, name := range p.Catalog.IndexesOn(tableName) {
		_, info, ok := p.Catalog.Index(name)
		if !ok || len(info.KeyColumns) != 1 {
			continue
		}
		if cols[schema.Columns[info.KeyColumns[0]].Name] {
			return name
		}
	}
	return ""
}

// collectEqualityColumns walks down through AND conjuncts collecting every
// column that appears on one side of a "column = literal" comparison
// against tableName (or an unqualified reference). It does not descend
// into OR, since a predicate under OR doesn't hold for every row.
func collectEqualityColumns(e parser.Expr, tableName string, cols map[string]bool) {
	b, ok := e.(*parser.BinaryCondExpr)
	if !ok {
		return
	}
	switch b.Op {
	case "AND":
		collectEqualityColumns(b.Left, tableName, cols)
		collectEqualityColumns(b.Right, tableName, cols)
	case "=":
		if c, okCol := b.Left.(*parser.ColumnExpr); okCol {
			if _, okLit := b.Right.(*parser.LiteralExpr); okLit && (c.Table == "" || c.Table == tableName) {
				cols[c.Name] = true
			}
		}
		if c, okCol := b.Right.(*parser.ColumnExpr); okCol {
			if _, okLit := b.Left.(*parser.LiteralExpr); okLit && (c.Table == "" || c.Table == tableName) {
				cols[c.Name] = true
			}
		}
	}
}

func (p *Planner) resolveProjection(columns []string, schema *types.Schema) ([]expr.Expr, []string, error) {
	if columns == nil {
		exprs := make([]expr.Expr, len(schema.Columns))
		names := make([]string, len(schema.Columns))
		for i, c := range schema.Columns {
			exprs[i] = &expr.Column{Relation: c.Relation, Name: c.Name}
			names[i] = c.Name
		}
		return exprs, names, nil
	}
	exprs := make([]expr.Expr, len(columns))
	names := make([]string, len(columns))
	for i, name := range columns {
		if schema.IndexOf("", name) < 0 {
			return nil, nil, fmt.Errorf("planner: unknown column %q", name)
		}
		exprs[i] = &expr.Column{Name: name}
		names[i] = name
	}
	return exprs, names, nil
}

func (p *Planner) planUpdate(s *parser.UpdateStmt) (plan.Node, error) {
	node, schema, err := p.planTableScan(s.TableName, s.Where)
	if err != nil {
		return nil, err
	}
	if s.Where != nil {
		pred, err := bindExpr(s.Where, schema)
		if err != nil {
			return nil, err
		}
		node = plan.NewFilter(pred, node)
	}
	assignments := make(map[string]expr.Expr, len(s.Assignments))
	for _, a := range s.Assignments {
		if schema.IndexOf("", a.Column) < 0 {
			return nil, fmt.Errorf("planner: unknown column %q in SET", a.Column)
		}
		e, err := bindExpr(a.Value, schema)
		if err != nil {
			return nil, err
		}
		assignments[a.Column] = e
	}
	return plan.NewUpdate(s.TableName, assignments, node), nil
}

func (p *Planner) planDelete(s *parser.DeleteStmt) (plan.Node, error) {
	node, schema, err := p.planTableScan(s.TableName, s.Where)
	if err != nil {
		return nil, err
	}
	if s.Where != nil {
		pred, err := bindExpr(s.Where, schema)
		if err != nil {
			return nil, err
		}
		node = plan.NewFilter(pred, node)
	}
	return plan.NewDelete(s.TableName, node), nil
}

// withRelation returns a copy of schema with every column's Relation set
// to name, so joins can disambiguate same-named columns from different
// tables.
func withRelation(schema *types.Schema, name string) *types.Schema {
	cols := make([]types.Column, len(schema.Columns))
	for i, c := range schema.Columns {
		c.Relation = name
		cols[i] = c
	}
	return types.NewSchema(cols)
}

func joinKind(k parser.JoinKind) (plan.JoinType, error) {
	switch k {
	case parser.JoinInner:
		return plan.InnerJoin, nil
	case parser.JoinLeft:
		return plan.LeftOuterJoin, nil
	case parser.JoinRight:
		return plan.RightOuterJoin, nil
	case parser.JoinFull:
		return plan.FullOuterJoin, nil
	case parser.JoinCross:
		return plan.CrossJoin, nil
	default:
		return 0, fmt.Errorf("planner: unknown join kind %d", k)
	}
}

// bindExpr converts a parsed AST expression into an evaluatable expr.Expr.
// schema may be nil for contexts with no input row (VALUES).
func bindExpr(e parser.Expr, schema *types.Schema) (expr.Expr, error) {
	switch x := e.(type) {
	case *parser.LiteralExpr:
		v, err := literalValue(x.Value)
		if err != nil {
			return nil, err
		}
		return &expr.Literal{Value: v}, nil
	case *parser.ColumnExpr:
		return &expr.Column{Relation: x.Table, Name: x.Name}, nil
	case *parser.BinaryCondExpr:
		left, err := bindExpr(x.Left, schema)
		if err != nil {
			return nil, err
		}
		right, err := bindExpr(x.Right, schema)
		if err != nil {
			return nil, err
		}
		op, err := binOp(x.Op)
		if err != nil {
			return nil, err
		}
		return &expr.BinaryExpr{Left: left, Op: op, Right: right}, nil
	default:
		return nil, fmt.Errorf("planner: unsupported expression %T", e)
	}
}

func binOp(op string) (expr.BinOp, error) {
	switch op {
	case "=":
		return expr.Eq, nil
	case "!=", "<>":
		return expr.Ne, nil
	case "<":
		return expr.Lt, nil
	case "<=":
		return expr.Le, nil
	case ">":
		return expr.Gt, nil
	case ">=":
		return expr.Ge, nil
	case "AND":
		return expr.And, nil
	case "OR":
		return expr.Or, nil
	default:
		return 0, fmt.Errorf("planner: unsupported operator %q", op)
	}
}

// literalValue converts the parser's untyped literal (int64, float64,
// string, bool, or nil for NULL) into a typed types.Value.
func literalValue(v any) (types.Value, error) {
	switch x := v.(type) {
	case nil:
		return types.Null(types.Varchar), nil
	case bool:
		return types.NewBoolean(x), nil
	case int64:
		return types.NewInt64(x), nil
	case float64:
		return types.NewFloat64(x), nil
	case string:
		return types.NewVarchar(x), nil
	default:
		return types.Value{}, fmt.Errorf("planner: unsupported literal type %T", v)
	}
}

// parseColumnType maps a SQL type name (optionally "VARCHAR(n)") to a
// storage Kind, per the spec's §6 type list.
func parseColumnType(raw string) (types.Kind, int, error) {
	up := strings.ToUpper(strings.TrimSpace(raw))
	if strings.HasPrefix(up, "VARCHAR") {
		n := 0
		if i := strings.IndexByte(up, '('); i >= 0 {
			j := strings.IndexByte(up, ')')
			if j > i {
				if parsed, err := strconv.Atoi(strings.TrimSpace(up[i+1 : j])); err == nil {
					n = parsed
				}
			}
		}
		return types.Varchar, n, nil
	}
	switch up {
	case "BOOLEAN", "BOOL":
		return types.Boolean, 0, nil
	case "TINYINT", "INT8":
		return types.Int8, 0, nil
	case "SMALLINT", "INT16":
		return types.Int16, 0, nil
	case "INT", "INTEGER", "INT32":
		return types.Int32, 0, nil
	case "BIGINT", "INT64":
		return types.Int64, 0, nil
	case "UNSIGNED BIGINT", "UINT64":
		return types.Uint64, 0, nil
	case "FLOAT", "FLOAT32":
		return types.Float32, 0, nil
	case "DOUBLE", "FLOAT64":
		return types.Float64, 0, nil
	default:
		return 0, 0, fmt.Errorf("unknown type %q", raw)
	}
}
