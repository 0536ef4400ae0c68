package exec

import (
	"context"
	"fmt"

	"github.com/tuannm99/novadb/internal/expr"
	"github.com/tuannm99/novadb/internal/types"
)

// Filter keeps only input rows for which Predicate evaluates to true;
// a NULL result is treated as not-matching, mirroring SQL's three-valued
// WHERE semantics, and a non-boolean result is an execution error.
type Filter struct {
	Predicate expr.Expr
	Input     Executor
}

func NewFilter(predicate expr.Expr, input Executor) *Filter {
	return &Filter{Predicate: predicate, Input: input}
}

func (e *Filter) Schema() *types.Schema { return e.Input.Schema() }

func (e *Filter) Init(ctx context.Context) error { return e.Input.Init(ctx) }

func (e *Filter) Next(ctx context.Context) (types.Tuple, types.RecordId, bool, error) {
	for {
		tuple, rid, ok, err := e.Input.Next(ctx)
		if err != nil {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		if !ok {
			return types.Tuple{}, types.RecordId{}, false, nil
		}
		v, err := e.Predicate.Evaluate(tuple)
		if err != nil {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		if v.IsNull() {
			continue
		}
		if v.Kind() != types.Boolean {
			return types.Tuple{}, types.RecordId{}, false, fmt.Errorf("exec: WHERE predicate did not evaluate to BOOLEAN")
		}
		b, _ := v.Bool()
		if b {
			return tuple, rid, true, nil
		}
	}
}

// Project evaluates Exprs against each input row, discarding its RecordId
// since the output row is no longer the same shape as any single table row.
type Project struct {
	Exprs     []expr.Expr
	Input     Executor
	outSchema *types.Schema
}

func NewProject(exprs []expr.Expr, outSchema *types.Schema, input Executor) *Project {
	return &Project{Exprs: exprs, Input: input, outSchema: outSchema}
}

func (e *Project) Schema() *types.Schema { return e.outSchema }

func (e *Project) Init(ctx context.Context) error { return e.Input.Init(ctx) }

func (e *Project) Next(ctx context.Context) (types.Tuple, types.RecordId, bool, error) {
	tuple, _, ok, err := e.Input.Next(ctx)
	if err != nil || !ok {
		return types.Tuple{}, types.RecordId{}, false, err
	}
	vals := make([]types.Value, len(e.Exprs))
	for i, ex := range e.Exprs {
		v, err := ex.Evaluate(tuple)
		if err != nil {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		vals[i] = v
	}
	return types.NewTuple(e.outSchema, vals), types.RecordId{}, true, nil
}
