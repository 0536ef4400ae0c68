package exec

import (
	"context"

	"github.com/tuannm99/novadb/internal/expr"
	"github.com/tuannm99/novadb/internal/types"
)

// Values yields each row in Rows, evaluating its expressions against an
// empty tuple (so only literals and casts of literals are valid here).
type Values struct {
	Rows   [][]expr.Expr
	schema *types.Schema
	idx    int
}

func NewValues(schema *types.Schema, rows [][]expr.Expr) *Values {
	return &Values{Rows: rows, schema: schema}
}

func (e *Values) Schema() *types.Schema { return e.schema }

func (e *Values) Init(context.Context) error {
	e.idx = 0
	return nil
}

func (e *Values) Next(context.Context) (types.Tuple, types.RecordId, bool, error) {
	if e.idx >= len(e.Rows) {
		return types.Tuple{}, types.RecordId{}, false, nil
	}
	row := e.Rows[e.idx]
	e.idx++
	empty := types.Tuple{Schema: e.schema}
	vals := make([]types.Value, len(row))
	for i, ex := range row {
		v, err := ex.Evaluate(empty)
		if err != nil {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		vals[i] = v
	}
	return types.NewTuple(e.schema, vals), types.RecordId{}, true, nil
}

// Empty yields N all-NULL tuples of its schema; N==0 is the canonical
// "no rows" relation the optimizer's EliminateLimit folds to.
type Empty struct {
	N      int
	schema *types.Schema
	idx    int
}

func NewEmpty(schema *types.Schema, n int) *Empty {
	return &Empty{N: n, schema: schema}
}

func (e *Empty) Schema() *types.Schema { return e.schema }

func (e *Empty) Init(context.Context) error {
	e.idx = 0
	return nil
}

func (e *Empty) Next(context.Context) (types.Tuple, types.RecordId, bool, error) {
	if e.idx >= e.N {
		return types.Tuple{}, types.RecordId{}, false, nil
	}
	e.idx++
	vals := make([]types.Value, len(e.schema.Columns))
	for i, col := range e.schema.Columns {
		vals[i] = types.Null(col.DataType)
	}
	return types.NewTuple(e.schema, vals), types.RecordId{}, true, nil
}
