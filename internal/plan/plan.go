// Package plan implements the logical query plan: a tree of relational
// operators, each carrying its own output schema, produced by the planner
// from a parsed AST and rewritten by the optimizer before being lowered
// 1:1 into physical (Volcano) executors.
package plan

import (
	"github.com/tuannm99/novadb/internal/expr"
	"github.com/tuannm99/novadb/internal/types"
)

// Node is one logical operator.
type Node interface {
	Schema() *types.Schema
	Children() []Node
	String() string
}

// OrderBy is one sort key: an expression plus ascending/descending.
type OrderBy struct {
	Expr expr.Expr
	Desc bool
}

// JoinType mirrors the join variants the spec names.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftOuterJoin
	RightOuterJoin
	FullOuterJoin
	CrossJoin
)

func (t JoinType) String() string {
	switch t {
	case LeftOuterJoin:
		return "LeftOuter"
	case RightOuterJoin:
		return "RightOuter"
	case FullOuterJoin:
		return "FullOuter"
	case CrossJoin:
		return "Cross"
	default:
		return "Inner"
	}
}

// leaf implements Children()/Schema() plumbing shared by leaf nodes.
type leaf struct{ schema *types.Schema }

func (l leaf) Schema() *types.Schema { return l.schema }
func (l leaf) Children() []Node      { return nil }

// CreateTable is a side-effecting DDL node.
type CreateTable struct {
	leaf
	TableName string
	Columns   []Column
}

// Column describes one column in a CreateTable's definition.
type Column struct {
	Name     string
	DataType types.Kind
	Nullable bool
	VarcharLen int
}

func NewCreateTable(tableName string, cols []Column) *CreateTable {
	return &CreateTable{leaf: leaf{types.NewSchema(nil)}, TableName: tableName, Columns: cols}
}

func (n *CreateTable) String() string { return "CreateTable(" + n.TableName + ")" }

// CreateIndex is a side-effecting DDL node. Every entry in OrderByColumns
// must be a bare column name (enforced by the parser's grammar).
type CreateIndex struct {
	leaf
	IndexName       string
	TableName       string
	OrderByColumns  []string
}

func NewCreateIndex(indexName, tableName string, orderByColumns []string) *CreateIndex {
	return &CreateIndex{leaf: leaf{types.NewSchema(nil)}, IndexName: indexName, TableName: tableName, OrderByColumns: orderByColumns}
}

func (n *CreateIndex) String() string { return "CreateIndex(" + n.IndexName + ")" }

// Insert writes every tuple produced by Input into Table, casting to
// ProjectedSchema first.
type Insert struct {
	TableName      string
	ProjectedSchema *types.Schema
	Input          Node
	outSchema      *types.Schema
}

func NewInsert(tableName string, projected *types.Schema, input Node) *Insert {
	return &Insert{
		TableName:       tableName,
		ProjectedSchema: projected,
		Input:           input,
		outSchema:       countSchema("insert_rows"),
	}
}

func (n *Insert) Schema() *types.Schema { return n.outSchema }
func (n *Insert) Children() []Node      { return []Node{n.Input} }
func (n *Insert) String() string        { return "Insert(" + n.TableName + ")" }

// countSchema builds the single-column Int32 schema Insert/Update/Delete
// yield.
func countSchema(colName string) *types.Schema {
	return types.NewSchema([]types.Column{{Name: colName, DataType: types.Int32}})
}

// Values yields each row of Rows, its expressions evaluated against an
// empty input tuple.
type Values struct {
	leaf
	Rows [][]expr.Expr
}

func NewValues(schema *types.Schema, rows [][]expr.Expr) *Values {
	return &Values{leaf: leaf{schema}, Rows: rows}
}

func (n *Values) String() string { return "Values" }

// EmptyRelation yields N all-NULL tuples of its schema; N==0 is
// the canonical "no rows" relation used by EliminateLimit.
type EmptyRelation struct {
	leaf
	N int
}

func NewEmptyRelation(schema *types.Schema, n int) *EmptyRelation {
	return &EmptyRelation{leaf: leaf{schema}, N: n}
}

func (n *EmptyRelation) String() string { return "EmptyRelation" }

// TableScan reads every live tuple of a table, optionally through a named
// index's ordered range (IndexName == "" means a plain sequential scan).
type TableScan struct {
	leaf
	TableName string
	IndexName string
}

func NewTableScan(schema *types.Schema, tableName, indexName string) *TableScan {
	return &TableScan{leaf: leaf{schema}, TableName: tableName, IndexName: indexName}
}

func (n *TableScan) String() string {
	if n.IndexName != "" {
		return "IndexScan(" + n.TableName + " via " + n.IndexName + ")"
	}
	return "SeqScan(" + n.TableName + ")"
}

// Filter keeps only input tuples for which Predicate evaluates true.
type Filter struct {
	Predicate expr.Expr
	Input     Node
}

func NewFilter(pred expr.Expr, input Node) *Filter { return &Filter{Predicate: pred, Input: input} }

func (n *Filter) Schema() *types.Schema { return n.Input.Schema() }
func (n *Filter) Children() []Node      { return []Node{n.Input} }
func (n *Filter) String() string        { return "Filter" }

// Project evaluates Exprs against each input tuple.
type Project struct {
	Exprs     []expr.Expr
	Input     Node
	outSchema *types.Schema
}

func NewProject(exprs []expr.Expr, names []string, input Node) (*Project, error) {
	cols := make([]types.Column, len(exprs))
	for i, e := range exprs {
		kind, nullable, err := e.ResolveType(input.Schema())
		if err != nil {
			return nil, err
		}
		cols[i] = types.Column{Name: names[i], DataType: kind, Nullable: nullable}
	}
	return &Project{Exprs: exprs, Input: input, outSchema: types.NewSchema(cols)}, nil
}

func (n *Project) Schema() *types.Schema { return n.outSchema }
func (n *Project) Children() []Node      { return []Node{n.Input} }
func (n *Project) String() string        { return "Project" }

// Sort is (materializing) ORDER BY over OrderBys; Limit optionally lets the
// executor early-terminate (PushDownLimit rewrites this in from above).
type Sort struct {
	OrderBys []OrderBy
	Input    Node
	Limit    *int
}

func NewSort(orderBys []OrderBy, input Node) *Sort { return &Sort{OrderBys: orderBys, Input: input} }

func (n *Sort) Schema() *types.Schema { return n.Input.Schema() }
func (n *Sort) Children() []Node      { return []Node{n.Input} }
func (n *Sort) String() string        { return "Sort" }

// Limit discards the first Offset tuples, then yields at most Limit
// tuples (unbounded if nil).
type Limit struct {
	Limit  *int64
	Offset int64
	Input  Node
}

func NewLimit(limit *int64, offset int64, input Node) *Limit {
	return &Limit{Limit: limit, Offset: offset, Input: input}
}

func (n *Limit) Schema() *types.Schema { return n.Input.Schema() }
func (n *Limit) Children() []Node      { return []Node{n.Input} }
func (n *Limit) String() string        { return "Limit" }

// Join combines Left and Right tuples; On is nil for CrossJoin.
type Join struct {
	Kind      JoinType
	On        expr.Expr
	Left      Node
	Right     Node
	outSchema *types.Schema
}

// NewJoin builds the join output schema via Concat, marking the
// appropriate side nullable for outer joins per the spec's
// build_join_schema.
func NewJoin(kind JoinType, on expr.Expr, left, right Node) *Join {
	nullableLeft := kind == RightOuterJoin || kind == FullOuterJoin
	nullableRight := kind == LeftOuterJoin || kind == FullOuterJoin
	schema := types.Concat(left.Schema(), right.Schema(), nullableLeft, nullableRight)
	return &Join{Kind: kind, On: on, Left: left, Right: right, outSchema: schema}
}

func (n *Join) Schema() *types.Schema { return n.outSchema }
func (n *Join) Children() []Node      { return []Node{n.Left, n.Right} }
func (n *Join) String() string        { return n.Kind.String() + "Join" }

// Update scans Input (typically a Filter over a TableScan), replacing the
// columns named in Assignments with their evaluated expression for every
// tuple Input yields (Input already encodes the WHERE filter, if any).
type Update struct {
	TableName   string
	Assignments map[string]expr.Expr
	Input       Node
	outSchema   *types.Schema
}

func NewUpdate(tableName string, assignments map[string]expr.Expr, input Node) *Update {
	return &Update{TableName: tableName, Assignments: assignments, Input: input, outSchema: countSchema("update_rows")}
}

func (n *Update) Schema() *types.Schema { return n.outSchema }
func (n *Update) Children() []Node      { return []Node{n.Input} }
func (n *Update) String() string        { return "Update(" + n.TableName + ")" }

// Delete scans Input, removing every tuple it yields (Input already
// encodes the WHERE filter, if any).
type Delete struct {
	TableName string
	Input     Node
	outSchema *types.Schema
}

func NewDelete(tableName string, input Node) *Delete {
	return &Delete{TableName: tableName, Input: input, outSchema: countSchema("delete_rows")}
}

func (n *Delete) Schema() *types.Schema { return n.outSchema }
func (n *Delete) Children() []Node      { return []Node{n.Input} }
func (n *Delete) String() string        { return "Delete(" + n.TableName + ")" }
