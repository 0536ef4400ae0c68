package exec

import (
	"context"
	"fmt"

	"github.com/tuannm99/novadb/internal/expr"
	"github.com/tuannm99/novadb/internal/plan"
	"github.com/tuannm99/novadb/internal/types"
)

// NestedLoopJoin implements INNER, CROSS, and LEFT OUTER join by rescanning
// Right (re-Init'ing it) for every Left row. On is nil only for CrossJoin.
//
// RIGHT OUTER and FULL OUTER are not implemented: tracking which Right rows
// were never matched requires buffering Right's entire output (Right is
// re-Init'd and redrained once per Left row), which the spec leaves as a
// reserved, undecided extension. Building one of those plans returns an
// error at Init time rather than silently producing wrong rows.
type NestedLoopJoin struct {
	Kind  plan.JoinType
	On    expr.Expr
	Left  Executor
	Right Executor

	outSchema *types.Schema

	leftDone       bool
	curLeft        types.Tuple
	curLeftMatched bool
	rightInited    bool
}

func NewNestedLoopJoin(kind plan.JoinType, on expr.Expr, left, right Executor, outSchema *types.Schema) *NestedLoopJoin {
	return &NestedLoopJoin{Kind: kind, On: on, Left: left, Right: right, outSchema: outSchema}
}

func (e *NestedLoopJoin) Schema() *types.Schema { return e.outSchema }

func (e *NestedLoopJoin) Init(ctx context.Context) error {
	if e.Kind == plan.RightOuterJoin || e.Kind == plan.FullOuterJoin {
		return fmt.Errorf("exec: %s join is not supported (reserved)", e.Kind)
	}
	if err := e.Left.Init(ctx); err != nil {
		return err
	}
	e.rightInited = false
	e.leftDone = false
	return e.advanceLeft(ctx)
}

func (e *NestedLoopJoin) advanceLeft(ctx context.Context) error {
	tuple, _, ok, err := e.Left.Next(ctx)
	if err != nil {
		return err
	}
	if !ok {
		e.leftDone = true
		return nil
	}
	e.curLeft = tuple
	e.curLeftMatched = false
	return nil
}

func (e *NestedLoopJoin) Next(ctx context.Context) (types.Tuple, types.RecordId, bool, error) {
	for {
		if e.leftDone {
			return types.Tuple{}, types.RecordId{}, false, nil
		}
		if !e.rightInited {
			if err := e.Right.Init(ctx); err != nil {
				return types.Tuple{}, types.RecordId{}, false, err
			}
			e.rightInited = true
		}

		rightTuple, _, ok, err := e.Right.Next(ctx)
		if err != nil {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		if !ok {
			e.rightInited = false
			emitUnmatched := e.Kind == plan.LeftOuterJoin && !e.curLeftMatched
			prevLeft := e.curLeft
			if err := e.advanceLeft(ctx); err != nil {
				return types.Tuple{}, types.RecordId{}, false, err
			}
			if emitUnmatched {
				return mergeWithNullRight(prevLeft, e.outSchema), types.RecordId{}, true, nil
			}
			continue
		}

		merged := mergeTuples(e.curLeft, rightTuple, e.outSchema)
		if e.On == nil {
			e.curLeftMatched = true
			return merged, types.RecordId{}, true, nil
		}
		v, err := e.On.Evaluate(merged)
		if err != nil {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		if v.IsNull() {
			continue
		}
		if v.Kind() != types.Boolean {
			return types.Tuple{}, types.RecordId{}, false, fmt.Errorf("exec: JOIN ON predicate did not evaluate to BOOLEAN")
		}
		b, _ := v.Bool()
		if !b {
			continue
		}
		e.curLeftMatched = true
		return merged, types.RecordId{}, true, nil
	}
}
