package exec

import (
	"context"

	"github.com/tuannm99/novadb/internal/btree"
	"github.com/tuannm99/novadb/internal/heap"
	"github.com/tuannm99/novadb/internal/types"
)

// SeqScan walks every slot of a table's page chain, skipping tuples marked
// deleted.
type SeqScan struct {
	table  *heap.Table
	schema *types.Schema
	it     *heap.Iterator
}

func NewSeqScan(table *heap.Table, schema *types.Schema) *SeqScan {
	return &SeqScan{table: table, schema: schema}
}

func (e *SeqScan) Schema() *types.Schema { return e.schema }

func (e *SeqScan) Init(context.Context) error {
	e.it = e.table.Scan()
	return nil
}

func (e *SeqScan) Next(context.Context) (types.Tuple, types.RecordId, bool, error) {
	for {
		rid, meta, tuple, ok, err := e.it.Next()
		if err != nil {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		if !ok {
			return types.Tuple{}, types.RecordId{}, false, nil
		}
		if meta.IsDeleted {
			continue
		}
		return tuple, rid, true, nil
	}
}

func (e *SeqScan) Close() {
	if e.it != nil {
		e.it.Close()
	}
}

// IndexScan walks an index's B+-tree in key order (optionally from a start
// key), fetching each matching tuple back from the table heap. Start == nil
// scans from the beginning.
type IndexScan struct {
	table  *heap.Table
	tree   *btree.Tree
	schema *types.Schema
	start  *types.Tuple
	it     *btree.Iterator
}

func NewIndexScan(table *heap.Table, tree *btree.Tree, schema *types.Schema, start *types.Tuple) *IndexScan {
	return &IndexScan{table: table, tree: tree, schema: schema, start: start}
}

func (e *IndexScan) Schema() *types.Schema { return e.schema }

func (e *IndexScan) Init(context.Context) error {
	var (
		it  *btree.Iterator
		err error
	)
	if e.start != nil {
		it, err = e.tree.ScanFrom(*e.start)
	} else {
		it, err = e.tree.Scan()
	}
	if err != nil {
		return err
	}
	e.it = it
	return nil
}

func (e *IndexScan) Next(context.Context) (types.Tuple, types.RecordId, bool, error) {
	for {
		_, rid, ok, err := e.it.Next()
		if err != nil {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		if !ok {
			return types.Tuple{}, types.RecordId{}, false, nil
		}
		meta, tuple, err := e.table.Get(rid)
		if err != nil {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		if meta.IsDeleted {
			continue
		}
		return tuple, rid, true, nil
	}
}

func (e *IndexScan) Close() {
	if e.it != nil {
		e.it.Close()
	}
}
