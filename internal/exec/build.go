package exec

import (
	"fmt"

	"github.com/tuannm99/novadb/internal/catalog"
	"github.com/tuannm99/novadb/internal/plan"
	"github.com/tuannm99/novadb/internal/types"
)

// Build lowers a logical plan.Node into its physical Executor, resolving
// table/index names against cat. It is a 1:1 structural translation: every
// plan.Node variant maps to exactly one Executor variant.
func Build(cat *catalog.Catalog, node plan.Node) (Executor, error) {
	switch n := node.(type) {
	case *plan.CreateTable:
		cols := make([]types.Column, len(n.Columns))
		for i, c := range n.Columns {
			cols[i] = types.Column{Name: c.Name, DataType: c.DataType, Nullable: c.Nullable, VarcharLen: c.VarcharLen}
		}
		return NewCreateTable(cat, n.TableName, types.NewSchema(cols), n.Schema()), nil

	case *plan.CreateIndex:
		return NewCreateIndex(cat, n.IndexName, n.TableName, n.OrderByColumns, n.Schema()), nil

	case *plan.Values:
		return NewValues(n.Schema(), n.Rows), nil

	case *plan.EmptyRelation:
		return NewEmpty(n.Schema(), n.N), nil

	case *plan.TableScan:
		table, _, ok := cat.Table(n.TableName)
		if !ok {
			return nil, fmt.Errorf("exec: table %q does not exist", n.TableName)
		}
		if n.IndexName == "" {
			return NewSeqScan(table, n.Schema()), nil
		}
		tree, _, ok := cat.Index(n.IndexName)
		if !ok {
			return nil, fmt.Errorf("exec: index %q does not exist", n.IndexName)
		}
		return NewIndexScan(table, tree, n.Schema(), nil), nil

	case *plan.Filter:
		input, err := Build(cat, n.Input)
		if err != nil {
			return nil, err
		}
		return NewFilter(n.Predicate, input), nil

	case *plan.Project:
		input, err := Build(cat, n.Input)
		if err != nil {
			return nil, err
		}
		return NewProject(n.Exprs, n.Schema(), input), nil

	case *plan.Sort:
		input, err := Build(cat, n.Input)
		if err != nil {
			return nil, err
		}
		return NewSort(n.OrderBys, input, n.Limit), nil

	case *plan.Limit:
		input, err := Build(cat, n.Input)
		if err != nil {
			return nil, err
		}
		return NewLimit(n.Limit, n.Offset, input), nil

	case *plan.Join:
		left, err := Build(cat, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := Build(cat, n.Right)
		if err != nil {
			return nil, err
		}
		return NewNestedLoopJoin(n.Kind, n.On, left, right, n.Schema()), nil

	case *plan.Insert:
		input, err := Build(cat, n.Input)
		if err != nil {
			return nil, err
		}
		table, _, ok := cat.Table(n.TableName)
		if !ok {
			return nil, fmt.Errorf("exec: table %q does not exist", n.TableName)
		}
		return NewInsert(table, n.ProjectedSchema, input, n.Schema()), nil

	case *plan.Update:
		input, err := Build(cat, n.Input)
		if err != nil {
			return nil, err
		}
		table, _, ok := cat.Table(n.TableName)
		if !ok {
			return nil, fmt.Errorf("exec: table %q does not exist", n.TableName)
		}
		return NewUpdate(table, n.Assignments, input, n.Schema()), nil

	case *plan.Delete:
		input, err := Build(cat, n.Input)
		if err != nil {
			return nil, err
		}
		table, _, ok := cat.Table(n.TableName)
		if !ok {
			return nil, fmt.Errorf("exec: table %q does not exist", n.TableName)
		}
		return NewDelete(table, input, n.Schema()), nil

	default:
		return nil, fmt.Errorf("exec: unsupported plan node %T", node)
	}
}
