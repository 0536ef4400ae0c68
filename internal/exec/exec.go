// Package exec implements the Volcano-style physical executors: a pull
// based iterator tree lowered 1:1 from the logical plan. Every executor's
// Next also returns the RecordId of the row it came from (InvalidRecordId
// when the tuple isn't tied to one, e.g. a join or a projection) so that
// Update/Delete/IndexScan can act on the underlying heap row without the
// tuple itself carrying storage addresses.
package exec

import (
	"context"
	"fmt"

	"github.com/tuannm99/novadb/internal/types"
)

// Executor is the physical iterator contract: Init resets state (and
// recursively inits children) and must be called once before the first
// Next; Next produces the next row or ok=false on EOF and must keep
// returning ok=false once reached.
type Executor interface {
	Init(ctx context.Context) error
	Next(ctx context.Context) (types.Tuple, types.RecordId, bool, error)
	Schema() *types.Schema
}

// countTuple builds the single-row, single-Int32-column result Insert,
// Update, and Delete yield after draining their input.
func countTuple(schema *types.Schema, n int32) types.Tuple {
	return types.NewTuple(schema, []types.Value{types.NewInt32(n)})
}

// mergeTuples concatenates left and right's values for a join's output
// schema.
func mergeTuples(left, right types.Tuple, schema *types.Schema) types.Tuple {
	vals := make([]types.Value, 0, len(left.Values)+len(right.Values))
	vals = append(vals, left.Values...)
	vals = append(vals, right.Values...)
	return types.NewTuple(schema, vals)
}

// mergeWithNullRight pads left with typed NULLs for every column schema
// carries beyond left's own, used by NestedLoopJoin's LEFT OUTER path when
// a left tuple matched nothing on the right.
func mergeWithNullRight(left types.Tuple, schema *types.Schema) types.Tuple {
	vals := make([]types.Value, len(schema.Columns))
	copy(vals, left.Values)
	for i := len(left.Values); i < len(schema.Columns); i++ {
		vals[i] = types.Null(schema.Columns[i].DataType)
	}
	return types.NewTuple(schema, vals)
}

// castTupleTypes casts src's values positionally to dst's column types, used
// by Insert before writing to the heap.
func castTupleTypes(src types.Tuple, dst *types.Schema, castFn func(types.Value, types.Kind) (types.Value, error)) (types.Tuple, error) {
	if len(src.Values) != len(dst.Columns) {
		return types.Tuple{}, fmt.Errorf("exec: value count %d does not match column count %d", len(src.Values), len(dst.Columns))
	}
	vals := make([]types.Value, len(dst.Columns))
	for i, col := range dst.Columns {
		v, err := castFn(src.Values[i], col.DataType)
		if err != nil {
			return types.Tuple{}, err
		}
		vals[i] = v
	}
	return types.NewTuple(dst, vals), nil
}
