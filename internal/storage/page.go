package storage

import (
	"github.com/tuannm99/novadb/internal/bx"
	"github.com/tuannm99/novadb/internal/types"
)

// PageSize is the compile-time page size constant. It must remain
// consistent across a single database file.
const PageSize = 8 * 1024

// InvalidPageID is the reserved sentinel page id; 0 is never allocated to
// a real page.
const InvalidPageID uint32 = 0

const (
	tableHeaderSize = 10 // next_page_id(4) + num_tuples(2) + num_deleted_tuples(2) + page_id(2 unused pad) -- see init
	slotSize        = 21 // offset(2) + size(2) + insert_txn(8) + delete_txn(8) + is_deleted(1)
)

// TablePage is a slotted page for the table heap:
//
//	[ header | slot directory (grows forward) ]
//	...free space...
//	[ tuple_n ][ ... ][ tuple_1 ]   (payloads grow backward from the end)
//
// All multi-byte header/slot fields are big-endian.
type TablePage struct {
	buf []byte
}

// NewTablePage wraps a PageSize buffer, initializing its header if the
// buffer is all zeros. The page does not record its own id; identity is
// tracked by the buffer pool's page table.
func NewTablePage(buf []byte) *TablePage {
	p := &TablePage{buf: buf}
	if p.isUninitialized() {
		p.init()
	}
	return p
}

func (p *TablePage) init() {
	for i := range p.buf {
		p.buf[i] = 0
	}
	p.SetNextPageID(InvalidPageID)
}

func (p *TablePage) isUninitialized() bool {
	for _, b := range p.buf {
		if b != 0 {
			return false
		}
	}
	return true
}

func (p *TablePage) Bytes() []byte { return p.buf }

func (p *TablePage) NextPageID() uint32 { return bx.U32BE(p.buf[0:4]) }
func (p *TablePage) SetNextPageID(id uint32) { bx.PutU32BE(p.buf[0:4], id) }

func (p *TablePage) NumTuples() int        { return int(bx.U16BE(p.buf[4:6])) }
func (p *TablePage) NumDeletedTuples() int { return int(bx.U16BE(p.buf[6:8])) }

func (p *TablePage) setNumTuples(n int)        { bx.PutU16BE(p.buf[4:6], uint16(n)) }
func (p *TablePage) setNumDeletedTuples(n int) { bx.PutU16BE(p.buf[6:8], uint16(n)) }

func (p *TablePage) slotOffset(i int) int { return tableHeaderSize + i*slotSize }

func (p *TablePage) headerSizeFor(numTuples int) int {
	return tableHeaderSize + numTuples*slotSize
}

type slotInfo struct {
	offset    int
	size      int
	insertTxn uint64
	deleteTxn uint64
	isDeleted bool
}

func (p *TablePage) readSlot(i int) slotInfo {
	o := p.slotOffset(i)
	s := slotInfo{
		offset:    int(bx.U16BE(p.buf[o : o+2])),
		size:      int(bx.U16BE(p.buf[o+2 : o+4])),
		insertTxn: bx.U64BE(p.buf[o+4 : o+12]),
		deleteTxn: bx.U64BE(p.buf[o+12 : o+20]),
		isDeleted: p.buf[o+20] != 0,
	}
	return s
}

func (p *TablePage) writeSlot(i int, s slotInfo) {
	o := p.slotOffset(i)
	bx.PutU16BE(p.buf[o:o+2], uint16(s.offset))
	bx.PutU16BE(p.buf[o+2:o+4], uint16(s.size))
	bx.PutU64BE(p.buf[o+4:o+12], s.insertTxn)
	bx.PutU64BE(p.buf[o+12:o+20], s.deleteTxn)
	if s.isDeleted {
		p.buf[o+20] = 1
	} else {
		p.buf[o+20] = 0
	}
}

// nextTupleOffset computes where a tuple of encodedLen bytes would land,
// per the insertion contract: slot_end - encoded_size, where slot_end is
// the previous tuple's offset (or PageSize if this is the first tuple).
func (p *TablePage) nextTupleOffset(encodedLen int) (int, bool) {
	n := p.NumTuples()
	slotEnd := PageSize
	if n > 0 {
		slotEnd = p.readSlot(n - 1).offset
	}
	offset := slotEnd - encodedLen
	minOffset := p.headerSizeFor(n + 1)
	if offset < minOffset {
		return 0, false
	}
	return offset, true
}

// InsertTuple appends tuple with the given meta, returning its slot
// number. Returns ErrNoSpace if the page cannot fit it; the caller must
// then allocate a new page.
func (p *TablePage) InsertTuple(meta types.TupleMeta, tuple []byte) (int, error) {
	offset, ok := p.nextTupleOffset(len(tuple))
	if !ok {
		return 0, ErrNoSpace
	}
	slot := p.NumTuples()
	copy(p.buf[offset:offset+len(tuple)], tuple)
	p.writeSlot(slot, slotInfo{
		offset:    offset,
		size:      len(tuple),
		insertTxn: meta.InsertTxnID,
		deleteTxn: meta.DeleteTxnID,
		isDeleted: meta.IsDeleted,
	})
	p.setNumTuples(slot + 1)
	if meta.IsDeleted {
		p.setNumDeletedTuples(p.NumDeletedTuples() + 1)
	}
	return slot, nil
}

// Tuple returns the meta and raw payload stored at slot.
func (p *TablePage) Tuple(slot int) (types.TupleMeta, []byte, error) {
	if slot < 0 || slot >= p.NumTuples() {
		return types.TupleMeta{}, nil, ErrBadSlot
	}
	s := p.readSlot(slot)
	return types.TupleMeta{InsertTxnID: s.insertTxn, DeleteTxnID: s.deleteTxn, IsDeleted: s.isDeleted},
		p.buf[s.offset : s.offset+s.size], nil
}

func (p *TablePage) TupleMeta(slot int) (types.TupleMeta, error) {
	if slot < 0 || slot >= p.NumTuples() {
		return types.TupleMeta{}, ErrBadSlot
	}
	s := p.readSlot(slot)
	return types.TupleMeta{InsertTxnID: s.insertTxn, DeleteTxnID: s.deleteTxn, IsDeleted: s.isDeleted}, nil
}

func (p *TablePage) UpdateTupleMeta(slot int, meta types.TupleMeta) error {
	if slot < 0 || slot >= p.NumTuples() {
		return ErrBadSlot
	}
	s := p.readSlot(slot)
	wasDeleted := s.isDeleted
	s.insertTxn = meta.InsertTxnID
	s.deleteTxn = meta.DeleteTxnID
	s.isDeleted = meta.IsDeleted
	p.writeSlot(slot, s)
	if meta.IsDeleted && !wasDeleted {
		p.setNumDeletedTuples(p.NumDeletedTuples() + 1)
	} else if !meta.IsDeleted && wasDeleted {
		p.setNumDeletedTuples(p.NumDeletedTuples() - 1)
	}
	return nil
}

// UpdateTuple overwrites slot's payload in place. It only succeeds if the
// new encoding is no larger than the slot's reserved size; callers that
// need to grow a tuple must relocate it (see heap.Table.Update, which
// resolves the "grows past its slot" open question by relocating).
func (p *TablePage) UpdateTuple(slot int, newTuple []byte) error {
	if slot < 0 || slot >= p.NumTuples() {
		return ErrBadSlot
	}
	s := p.readSlot(slot)
	if len(newTuple) > s.size {
		return ErrNoSpace
	}
	copy(p.buf[s.offset:s.offset+len(newTuple)], newTuple)
	s.size = len(newTuple)
	p.writeSlot(slot, s)
	return nil
}

// GetNextRid returns the next slot on this page after slot, or -1 if
// slot is the last one. Deleted tuples are included; callers filter by
// TupleMeta.IsDeleted.
func (p *TablePage) GetNextRid(slot int) int {
	if slot+1 >= p.NumTuples() {
		return -1
	}
	return slot + 1
}
