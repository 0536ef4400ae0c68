// Package heap implements the table heap: an unordered, append-mostly
// collection of tuples stored as a singly linked list of slotted pages.
package heap

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tuannm99/novadb/internal/bufferpool"
	"github.com/tuannm99/novadb/internal/storage"
	"github.com/tuannm99/novadb/internal/types"
)

var ErrTableClosed = errors.New("heap: table is closed")

// Table is a heap file: a chain of TablePages linked by NextPageID,
// backed by a dedicated buffer pool. Every table (and every index) in a
// Catalog gets its own Table/BufferPool pair, all sharing one underlying
// DiskManager.
type Table struct {
	mu sync.Mutex

	Name   string
	Schema *types.Schema
	Pool   *bufferpool.Pool

	firstPageID uint32
	lastPageID  uint32

	closed bool
}

// NewTable creates an empty heap: a single empty page that is both the
// first and last page of the chain.
func NewTable(name string, schema *types.Schema, pool *bufferpool.Pool) (*Table, error) {
	g, err := pool.NewGuarded()
	if err != nil {
		return nil, err
	}
	storage.NewTablePage(g.Page().Bytes())
	g.MarkDirty()
	g.Drop()

	return &Table{
		Name:        name,
		Schema:      schema,
		Pool:        pool,
		firstPageID: g.Page().ID(),
		lastPageID:  g.Page().ID(),
	}, nil
}

// OpenTable reattaches to an existing heap whose chain head/tail are
// already known (loaded from the catalog).
func OpenTable(name string, schema *types.Schema, pool *bufferpool.Pool, firstPageID, lastPageID uint32) *Table {
	return &Table{Name: name, Schema: schema, Pool: pool, firstPageID: firstPageID, lastPageID: lastPageID}
}

func (t *Table) FirstPageID() uint32 { return t.firstPageID }
func (t *Table) LastPageID() uint32  { return t.lastPageID }

func (t *Table) ensureOpen() error {
	if t.closed {
		return ErrTableClosed
	}
	return nil
}

// Insert appends tuple to the heap, allocating a new tail page if the
// current tail is full, and returns its RecordId.
func (t *Table) Insert(meta types.TupleMeta, tuple types.Tuple) (types.RecordId, error) {
	if err := t.ensureOpen(); err != nil {
		return types.RecordId{}, err
	}
	encoded, err := tuple.Encode()
	if err != nil {
		return types.RecordId{}, err
	}
	if len(encoded)+21+10 > storage.PageSize {
		return types.RecordId{}, fmt.Errorf("heap: tuple of %d bytes cannot fit any page", len(encoded))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for {
		g, err := t.Pool.FetchGuarded(t.lastPageID)
		if err != nil {
			return types.RecordId{}, err
		}
		page := storage.NewTablePage(g.Page().Bytes())

		slot, err := page.InsertTuple(meta, encoded)
		if err == nil {
			g.MarkDirty()
			g.Drop()
			return types.RecordId{PageID: t.lastPageID, Slot: uint32(slot)}, nil
		}
		g.Drop()
		if !errors.Is(err, storage.ErrNoSpace) {
			return types.RecordId{}, err
		}

		ng, err := t.Pool.NewGuarded()
		if err != nil {
			return types.RecordId{}, err
		}
		newPage := storage.NewTablePage(ng.Page().Bytes())
		newPage.SetNextPageID(storage.InvalidPageID)

		og, err := t.Pool.FetchGuarded(t.lastPageID)
		if err != nil {
			ng.Drop()
			return types.RecordId{}, err
		}
		storage.NewTablePage(og.Page().Bytes()).SetNextPageID(ng.Page().ID())
		og.MarkDirty()
		og.Drop()

		t.lastPageID = ng.Page().ID()
		ng.MarkDirty()
		ng.Drop()
	}
}

// Get reads a tuple's meta and value by RecordId.
func (t *Table) Get(rid types.RecordId) (types.TupleMeta, types.Tuple, error) {
	if err := t.ensureOpen(); err != nil {
		return types.TupleMeta{}, types.Tuple{}, err
	}
	g, err := t.Pool.FetchGuarded(rid.PageID)
	if err != nil {
		return types.TupleMeta{}, types.Tuple{}, err
	}
	defer g.Drop()

	page := storage.NewTablePage(g.Page().Bytes())
	meta, raw, err := page.Tuple(int(rid.Slot))
	if err != nil {
		return types.TupleMeta{}, types.Tuple{}, err
	}
	tuple, err := types.Decode(t.Schema, raw)
	if err != nil {
		return types.TupleMeta{}, types.Tuple{}, err
	}
	return meta, tuple, nil
}

// GetMeta reads only a tuple's meta (visibility bookkeeping) without
// decoding its payload.
func (t *Table) GetMeta(rid types.RecordId) (types.TupleMeta, error) {
	g, err := t.Pool.FetchGuarded(rid.PageID)
	if err != nil {
		return types.TupleMeta{}, err
	}
	defer g.Drop()
	page := storage.NewTablePage(g.Page().Bytes())
	return page.TupleMeta(int(rid.Slot))
}

// MarkDeleted flips a tuple's IsDeleted bit without reclaiming its slot.
func (t *Table) MarkDeleted(rid types.RecordId) error {
	g, err := t.Pool.FetchGuarded(rid.PageID)
	if err != nil {
		return err
	}
	defer func() { g.MarkDirty(); g.Drop() }()

	page := storage.NewTablePage(g.Page().Bytes())
	meta, err := page.TupleMeta(int(rid.Slot))
	if err != nil {
		return err
	}
	meta.IsDeleted = true
	return page.UpdateTupleMeta(int(rid.Slot), meta)
}

// Update overwrites the tuple at rid. If the new encoding no longer fits
// the slot's reserved size, the tuple is relocated: the old slot is
// marked deleted and a new tuple is appended via Insert, returning its
// new RecordId (per the update-in-place open question: grow-in-place is
// rejected, not silently truncated or overwritten out of bounds).
func (t *Table) Update(rid types.RecordId, meta types.TupleMeta, tuple types.Tuple) (types.RecordId, error) {
	if err := t.ensureOpen(); err != nil {
		return types.RecordId{}, err
	}
	encoded, err := tuple.Encode()
	if err != nil {
		return types.RecordId{}, err
	}

	g, err := t.Pool.FetchGuarded(rid.PageID)
	if err != nil {
		return types.RecordId{}, err
	}
	page := storage.NewTablePage(g.Page().Bytes())

	err = page.UpdateTuple(int(rid.Slot), encoded)
	if err == nil {
		g.MarkDirty()
		g.Drop()
		return rid, nil
	}
	g.Drop()
	if !errors.Is(err, storage.ErrNoSpace) {
		return types.RecordId{}, err
	}

	if err := t.MarkDeleted(rid); err != nil {
		return types.RecordId{}, err
	}
	return t.Insert(meta, tuple)
}

// Iterator walks the heap's page chain in order, yielding every slot
// including deleted ones; callers filter on TupleMeta.IsDeleted (the
// forward-only cursor the spec's "visible" notion is layered on top of).
type Iterator struct {
	table   *Table
	pageID  uint32
	page    *storage.TablePage
	guard   *bufferpool.Guard
	slot    int
	started bool
}

// Scan returns a fresh iterator positioned before the heap's first slot.
func (t *Table) Scan() *Iterator {
	return &Iterator{table: t, pageID: t.firstPageID, slot: -1}
}

func (it *Iterator) loadPage() error {
	if it.guard != nil {
		return nil
	}
	if it.pageID == storage.InvalidPageID {
		return nil
	}
	g, err := it.table.Pool.FetchGuarded(it.pageID)
	if err != nil {
		return err
	}
	it.guard = g
	it.page = storage.NewTablePage(g.Page().Bytes())
	return nil
}

func (it *Iterator) releasePage() {
	if it.guard != nil {
		it.guard.Drop()
		it.guard = nil
		it.page = nil
	}
}

// Next advances to the next slot and returns (rid, meta, tuple, true), or
// ok=false once the chain is exhausted. Safe to call again after
// exhaustion (returns false every time).
func (it *Iterator) Next() (types.RecordId, types.TupleMeta, types.Tuple, bool, error) {
	for {
		if it.pageID == storage.InvalidPageID {
			return types.RecordId{}, types.TupleMeta{}, types.Tuple{}, false, nil
		}
		if err := it.loadPage(); err != nil {
			return types.RecordId{}, types.TupleMeta{}, types.Tuple{}, false, err
		}

		it.slot++
		if it.slot >= it.page.NumTuples() {
			next := it.page.NextPageID()
			it.releasePage()
			it.pageID = next
			it.slot = -1
			continue
		}

		meta, raw, err := it.page.Tuple(it.slot)
		if err != nil {
			return types.RecordId{}, types.TupleMeta{}, types.Tuple{}, false, err
		}
		tuple, err := types.Decode(it.table.Schema, raw)
		if err != nil {
			return types.RecordId{}, types.TupleMeta{}, types.Tuple{}, false, err
		}
		rid := types.RecordId{PageID: it.pageID, Slot: uint32(it.slot)}
		return rid, meta, tuple, true, nil
	}
}

// Close releases any page currently pinned by the iterator.
func (it *Iterator) Close() {
	it.releasePage()
}

// Close flushes the table's dirty pages back to disk.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.Pool.FlushAllPages()
}
