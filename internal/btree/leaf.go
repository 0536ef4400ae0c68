package btree

import (
	"github.com/tuannm99/novadb/internal/bx"
	"github.com/tuannm99/novadb/internal/types"
)

// leafEntryWidth is keySize + RecordId (PageID uint32 + Slot uint32).
func leafEntryWidth(keySchema *types.Schema) int { return keySize(keySchema) + 8 }

type leafNode struct {
	node
}

func newLeafNode(buf []byte, keySchema *types.Schema, maxSize int) *leafNode {
	n := initNode(buf, pageTypeLeaf, maxSize)
	n.keySchema = keySchema
	return &leafNode{node: *n}
}

func asLeaf(buf []byte, keySchema *types.Schema) *leafNode {
	return &leafNode{node: node{buf: buf, keySchema: keySchema}}
}

func (n *leafNode) entryOffset(i int) int {
	return nodeHeaderSize + i*leafEntryWidth(n.keySchema)
}

func (n *leafNode) keyBytesAt(i int) []byte {
	o := n.entryOffset(i)
	return n.buf[o : o+keySize(n.keySchema)]
}

func (n *leafNode) ridAt(i int) types.RecordId {
	o := n.entryOffset(i) + keySize(n.keySchema)
	return types.RecordId{PageID: bx.U32BE(n.buf[o : o+4]), Slot: bx.U32BE(n.buf[o+4 : o+8])}
}

func (n *leafNode) setEntry(i int, key []byte, rid types.RecordId) {
	o := n.entryOffset(i)
	ks := keySize(n.keySchema)
	copy(n.buf[o:o+ks], key)
	bx.PutU32BE(n.buf[o+ks:o+ks+4], rid.PageID)
	bx.PutU32BE(n.buf[o+ks+4:o+ks+8], rid.Slot)
}

// find returns the index of the first entry whose key is >= key (lower
// bound), and whether that entry's key equals key exactly.
func (n *leafNode) find(keySchema *types.Schema, key []byte) (int, bool, error) {
	size := n.Size()
	lo, hi := 0, size
	for lo < hi {
		mid := (lo + hi) / 2
		cmp, err := compareKeyBytes(keySchema, n.keyBytesAt(mid), key)
		if err != nil {
			return 0, false, err
		}
		if cmp < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < size {
		cmp, err := compareKeyBytes(keySchema, n.keyBytesAt(lo), key)
		if err != nil {
			return 0, false, err
		}
		if cmp == 0 {
			return lo, true, nil
		}
	}
	return lo, false, nil
}

// insertAt shifts entries right from idx and writes the new entry,
// growing Size by one. Caller must have already verified capacity.
func (n *leafNode) insertAt(idx int, key []byte, rid types.RecordId) {
	size := n.Size()
	for i := size; i > idx; i-- {
		k := n.keyBytesAt(i - 1)
		r := n.ridAt(i - 1)
		n.setEntry(i, k, r)
	}
	n.setEntry(idx, key, rid)
	n.setSize(size + 1)
}

func (n *leafNode) removeAt(idx int) {
	size := n.Size()
	for i := idx; i < size-1; i++ {
		n.setEntry(i, n.keyBytesAt(i+1), n.ridAt(i+1))
	}
	n.setSize(size - 1)
}

// isFull reports overflow after an unconditional insert: the node is
// allowed exactly one entry beyond max_size before it must split (the
// page's physical capacity reserves that slack entry).
func (n *leafNode) isFull() bool { return n.Size() > n.MaxSize() }

// splitInto moves the upper half of n's entries into right, which must
// be a freshly initialized empty leaf. Returns the first key now in
// right, which becomes the separator key pushed to the parent.
func (n *leafNode) splitInto(right *leafNode) []byte {
	size := n.Size()
	mid := size / 2
	for i := mid; i < size; i++ {
		right.insertAt(i-mid, n.keyBytesAt(i), n.ridAt(i))
	}
	n.setSize(mid)
	right.setNextPageID(n.NextPageID())
	return append([]byte(nil), right.keyBytesAt(0)...)
}

// borrowFromLeft moves left's last entry onto the front of n, if left
// can spare one (left's size would stay at or above its min_size).
// Returns n's new first key (the updated separator) and true on success.
func (n *leafNode) borrowFromLeft(left *leafNode) ([]byte, bool) {
	if left.Size() <= left.MinSize() {
		return nil, false
	}
	last := left.Size() - 1
	key := append([]byte(nil), left.keyBytesAt(last)...)
	rid := left.ridAt(last)
	left.removeAt(last)
	n.insertAt(0, key, rid)
	return append([]byte(nil), key...), true
}

// borrowFromRight moves right's first entry onto the end of n, if right
// can spare one. Returns right's new first key (the updated separator
// for the slot between n and right) and true on success.
func (n *leafNode) borrowFromRight(right *leafNode) ([]byte, bool) {
	if right.Size() <= right.MinSize() {
		return nil, false
	}
	key := append([]byte(nil), right.keyBytesAt(0)...)
	rid := right.ridAt(0)
	right.removeAt(0)
	n.insertAt(n.Size(), key, rid)
	return append([]byte(nil), right.keyBytesAt(0)...), true
}

// mergeFrom appends all of right's entries onto n (n absorbs right) and
// adopts right's NextPageID link.
func (n *leafNode) mergeFrom(right *leafNode) {
	base := n.Size()
	for i := 0; i < right.Size(); i++ {
		n.insertAt(base+i, right.keyBytesAt(i), right.ridAt(i))
	}
	n.setNextPageID(right.NextPageID())
}
