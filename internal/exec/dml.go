package exec

import (
	"context"

	"github.com/tuannm99/novadb/internal/expr"
	"github.com/tuannm99/novadb/internal/heap"
	"github.com/tuannm99/novadb/internal/types"
)

// Insert drains Input, casting each row to ProjectedSchema's column types
// before writing it to Table, then yields a single {insert_rows} tuple.
//
// Index maintenance on DML is out of scope here: an index reflects the
// table's contents as of CREATE INDEX, not later Insert/Update/Delete
// traffic (see DESIGN.md).
type Insert struct {
	Table           *heap.Table
	ProjectedSchema *types.Schema
	Input           Executor
	outSchema       *types.Schema

	done bool
}

func NewInsert(table *heap.Table, projected *types.Schema, input Executor, outSchema *types.Schema) *Insert {
	return &Insert{Table: table, ProjectedSchema: projected, Input: input, outSchema: outSchema}
}

func (e *Insert) Schema() *types.Schema { return e.outSchema }

func (e *Insert) Init(ctx context.Context) error {
	e.done = false
	return e.Input.Init(ctx)
}

func (e *Insert) Next(ctx context.Context) (types.Tuple, types.RecordId, bool, error) {
	if e.done {
		return types.Tuple{}, types.RecordId{}, false, nil
	}
	var count int32
	for {
		tuple, _, ok, err := e.Input.Next(ctx)
		if err != nil {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		if !ok {
			break
		}
		row, err := castTupleTypes(tuple, e.ProjectedSchema, expr.CastValue)
		if err != nil {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		if _, err := e.Table.Insert(types.TupleMeta{}, row); err != nil {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		count++
	}
	e.done = true
	return countTuple(e.outSchema, count), types.RecordId{}, true, nil
}

// Update scans Input (typically Filter over a TableScan), replacing the
// columns named in Assignments with the assignment expression evaluated
// against the OLD row, then writes the new row back in place.
type Update struct {
	Table       *heap.Table
	Assignments map[string]expr.Expr
	Input       Executor
	outSchema   *types.Schema

	done bool
}

func NewUpdate(table *heap.Table, assignments map[string]expr.Expr, input Executor, outSchema *types.Schema) *Update {
	return &Update{Table: table, Assignments: assignments, Input: input, outSchema: outSchema}
}

func (e *Update) Schema() *types.Schema { return e.outSchema }

func (e *Update) Init(ctx context.Context) error {
	e.done = false
	return e.Input.Init(ctx)
}

func (e *Update) Next(ctx context.Context) (types.Tuple, types.RecordId, bool, error) {
	if e.done {
		return types.Tuple{}, types.RecordId{}, false, nil
	}
	schema := e.Input.Schema()
	var count int32
	for {
		tuple, rid, ok, err := e.Input.Next(ctx)
		if err != nil {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		if !ok {
			break
		}
		meta, err := e.Table.GetMeta(rid)
		if err != nil {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		newValues := append([]types.Value(nil), tuple.Values...)
		for col, assignExpr := range e.Assignments {
			idx := schema.IndexOf("", col)
			if idx < 0 {
				continue
			}
			v, err := assignExpr.Evaluate(tuple)
			if err != nil {
				return types.Tuple{}, types.RecordId{}, false, err
			}
			cast, err := expr.CastValue(v, schema.Columns[idx].DataType)
			if err != nil {
				return types.Tuple{}, types.RecordId{}, false, err
			}
			newValues[idx] = cast
		}
		newTuple := types.NewTuple(schema, newValues)
		if _, err := e.Table.Update(rid, meta, newTuple); err != nil {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		count++
	}
	e.done = true
	return countTuple(e.outSchema, count), types.RecordId{}, true, nil
}

// Delete scans Input, marking every row it yields deleted in Table.
type Delete struct {
	Table     *heap.Table
	Input     Executor
	outSchema *types.Schema

	done bool
}

func NewDelete(table *heap.Table, input Executor, outSchema *types.Schema) *Delete {
	return &Delete{Table: table, Input: input, outSchema: outSchema}
}

func (e *Delete) Schema() *types.Schema { return e.outSchema }

func (e *Delete) Init(ctx context.Context) error {
	e.done = false
	return e.Input.Init(ctx)
}

func (e *Delete) Next(ctx context.Context) (types.Tuple, types.RecordId, bool, error) {
	if e.done {
		return types.Tuple{}, types.RecordId{}, false, nil
	}
	var count int32
	for {
		_, rid, ok, err := e.Input.Next(ctx)
		if err != nil {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		if !ok {
			break
		}
		if err := e.Table.MarkDeleted(rid); err != nil {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		count++
	}
	e.done = true
	return countTuple(e.outSchema, count), types.RecordId{}, true, nil
}
