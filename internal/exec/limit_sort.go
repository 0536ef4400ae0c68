package exec

import (
	"container/heap"
	"context"
	"fmt"
	"sort"

	"github.com/tuannm99/novadb/internal/plan"
	"github.com/tuannm99/novadb/internal/types"
)

// Limit discards the first Offset input rows, then yields at most Limit
// rows (unbounded when Limit is nil).
type Limit struct {
	Limit  *int64
	Offset int64
	Input  Executor

	skipped int64
	emitted int64
}

func NewLimit(limit *int64, offset int64, input Executor) *Limit {
	return &Limit{Limit: limit, Offset: offset, Input: input}
}

func (e *Limit) Schema() *types.Schema { return e.Input.Schema() }

func (e *Limit) Init(ctx context.Context) error {
	e.skipped, e.emitted = 0, 0
	return e.Input.Init(ctx)
}

func (e *Limit) Next(ctx context.Context) (types.Tuple, types.RecordId, bool, error) {
	if e.Limit != nil && e.emitted >= *e.Limit {
		return types.Tuple{}, types.RecordId{}, false, nil
	}
	for e.skipped < e.Offset {
		_, _, ok, err := e.Input.Next(ctx)
		if err != nil || !ok {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		e.skipped++
	}
	tuple, rid, ok, err := e.Input.Next(ctx)
	if err != nil || !ok {
		return types.Tuple{}, types.RecordId{}, false, err
	}
	e.emitted++
	return tuple, rid, true, nil
}

// sortRow pairs a materialized row with its precomputed sort keys so the
// comparator never re-evaluates expressions.
type sortRow struct {
	tuple types.Tuple
	rid   types.RecordId
	keys  []types.Value
}

// Sort is a materializing ORDER BY: on Init it drains Input, evaluates
// every OrderBy expression once per row, then sorts. Without Limit the sort
// is stable: rows with equal keys keep their input order. When Limit is set
// (PushDownLimit proved only the first Limit rows are ever read), Init
// keeps at most Limit rows materialized at a time via a bounded max-heap
// instead of buffering the whole input; on that path rows with equal keys
// come out in heap order, not input order.
type Sort struct {
	OrderBys []plan.OrderBy
	Input    Executor
	Limit    *int

	rows []sortRow
	idx  int
}

func NewSort(orderBys []plan.OrderBy, input Executor, limit *int) *Sort {
	return &Sort{OrderBys: orderBys, Input: input, Limit: limit}
}

func (e *Sort) Schema() *types.Schema { return e.Input.Schema() }

func (e *Sort) Init(ctx context.Context) error {
	if err := e.Input.Init(ctx); err != nil {
		return err
	}
	e.idx = 0
	if e.Limit != nil {
		return e.initBounded(ctx, *e.Limit)
	}
	return e.initUnbounded(ctx)
}

func (e *Sort) initUnbounded(ctx context.Context) error {
	e.rows = nil
	for {
		row, ok, err := e.nextRow(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		e.rows = append(e.rows, row)
	}
	return e.sortRows()
}

// initBounded keeps only the smallest (per less) limit rows seen so far,
// using h as a max-heap over the kept set: the root is always the worst
// row currently kept, so a new row only displaces it when the new row
// sorts ahead of it. Peak materialization is therefore min(limit,
// rows seen), not the whole input.
func (e *Sort) initBounded(ctx context.Context, limit int) error {
	e.rows = nil
	if limit <= 0 {
		return nil
	}
	h := &sortHeap{sort: e}
	for {
		row, ok, err := e.nextRow(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if h.Len() < limit {
			heap.Push(h, row)
			continue
		}
		ahead, err := e.less(row, h.rows[0])
		if err != nil {
			return err
		}
		if ahead {
			h.rows[0] = row
			heap.Fix(h, 0)
		}
	}
	e.rows = h.rows
	return e.sortRows()
}

func (e *Sort) nextRow(ctx context.Context) (sortRow, bool, error) {
	tuple, rid, ok, err := e.Input.Next(ctx)
	if err != nil || !ok {
		return sortRow{}, false, err
	}
	keys := make([]types.Value, len(e.OrderBys))
	for i, ob := range e.OrderBys {
		v, err := ob.Expr.Evaluate(tuple)
		if err != nil {
			return sortRow{}, false, err
		}
		keys[i] = v
	}
	return sortRow{tuple: tuple, rid: rid, keys: keys}, true, nil
}

func (e *Sort) sortRows() error {
	var sortErr error
	sort.SliceStable(e.rows, func(i, j int) bool {
		less, err := e.less(e.rows[i], e.rows[j])
		if err != nil {
			sortErr = err
		}
		return less
	})
	return sortErr
}

// sortHeap is a container/heap max-heap over sort's ORDER BY order: Less
// reports "worse" (sorts later), so the root (index 0) is the worst row
// currently kept.
type sortHeap struct {
	sort *Sort
	rows []sortRow
	err  error
}

func (h *sortHeap) Len() int { return len(h.rows) }

func (h *sortHeap) Less(i, j int) bool {
	less, err := h.sort.less(h.rows[i], h.rows[j])
	if err != nil {
		h.err = err
	}
	return !less
}

func (h *sortHeap) Swap(i, j int) { h.rows[i], h.rows[j] = h.rows[j], h.rows[i] }

func (h *sortHeap) Push(x any) { h.rows = append(h.rows, x.(sortRow)) }

func (h *sortHeap) Pop() any {
	n := len(h.rows)
	row := h.rows[n-1]
	h.rows = h.rows[:n-1]
	return row
}

func (e *Sort) less(a, b sortRow) (bool, error) {
	for i, ob := range e.OrderBys {
		av, bv := a.keys[i], b.keys[i]
		if av.IsNull() && bv.IsNull() {
			continue
		}
		if av.IsNull() {
			return !ob.Desc, nil
		}
		if bv.IsNull() {
			return ob.Desc, nil
		}
		cmp, err := av.Compare(bv)
		if err != nil {
			return false, fmt.Errorf("exec: ORDER BY: %w", err)
		}
		if cmp == 0 {
			continue
		}
		if ob.Desc {
			return cmp > 0, nil
		}
		return cmp < 0, nil
	}
	return false, nil
}

func (e *Sort) Next(context.Context) (types.Tuple, types.RecordId, bool, error) {
	if e.idx >= len(e.rows) {
		return types.Tuple{}, types.RecordId{}, false, nil
	}
	row := e.rows[e.idx]
	e.idx++
	return row.tuple, row.rid, true, nil
}
