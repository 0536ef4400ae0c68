package btree

import (
	"github.com/tuannm99/novadb/internal/bx"
	"github.com/tuannm99/novadb/internal/types"
)

// internalEntryWidth is keySize + a child page id (uint32). Slot 0's key
// bytes are a sentinel and never compared against.
func internalEntryWidth(keySchema *types.Schema) int { return keySize(keySchema) + 4 }

type internalNode struct {
	node
}

func newInternalNode(buf []byte, keySchema *types.Schema, maxSize int) *internalNode {
	n := initNode(buf, pageTypeInternal, maxSize)
	n.keySchema = keySchema
	return &internalNode{node: *n}
}

func asInternal(buf []byte, keySchema *types.Schema) *internalNode {
	return &internalNode{node: node{buf: buf, keySchema: keySchema}}
}

func (n *internalNode) entryOffset(i int) int {
	return nodeHeaderSize + i*internalEntryWidth(n.keySchema)
}

func (n *internalNode) keyBytesAt(i int) []byte {
	o := n.entryOffset(i)
	return n.buf[o : o+keySize(n.keySchema)]
}

func (n *internalNode) childAt(i int) uint32 {
	o := n.entryOffset(i) + keySize(n.keySchema)
	return bx.U32BE(n.buf[o : o+4])
}

func (n *internalNode) setEntry(i int, key []byte, child uint32) {
	o := n.entryOffset(i)
	ks := keySize(n.keySchema)
	copy(n.buf[o:o+ks], key)
	bx.PutU32BE(n.buf[o+ks:o+ks+4], child)
}

func (n *internalNode) setKeyAt(i int, key []byte) {
	n.setEntry(i, key, n.childAt(i))
}

// setRootEntry installs the two entries of a brand-new root: slot 0
// (sentinel key, left child) plus slot 1 (separator key, right child).
func (n *internalNode) setRootEntry(leftChild uint32, sepKey []byte, rightChild uint32) {
	n.setEntry(0, make([]byte, keySize(n.keySchema)), leftChild)
	n.setEntry(1, sepKey, rightChild)
	n.setSize(2)
}

// lookupChild returns the child page id to descend into for key: the
// last entry whose key is <= key (slot 0's sentinel always qualifies).
func (n *internalNode) lookupChild(key []byte) (uint32, error) {
	size := n.Size()
	lo, hi := 1, size
	for lo < hi {
		mid := (lo + hi) / 2
		cmp, err := compareKeyBytes(n.keySchema, n.keyBytesAt(mid), key)
		if err != nil {
			return 0, err
		}
		if cmp <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return n.childAt(lo - 1), nil
}

// indexOfChild returns the slot holding childPageID, or -1.
func (n *internalNode) indexOfChild(childPageID uint32) int {
	for i := 0; i < n.Size(); i++ {
		if n.childAt(i) == childPageID {
			return i
		}
	}
	return -1
}

// insertAt shifts entries right from idx and writes the new entry.
func (n *internalNode) insertAt(idx int, key []byte, child uint32) {
	size := n.Size()
	for i := size; i > idx; i-- {
		n.setEntry(i, n.keyBytesAt(i-1), n.childAt(i-1))
	}
	n.setEntry(idx, key, child)
	n.setSize(size + 1)
}

func (n *internalNode) removeAt(idx int) {
	size := n.Size()
	for i := idx; i < size-1; i++ {
		n.setEntry(i, n.keyBytesAt(i+1), n.childAt(i+1))
	}
	n.setSize(size - 1)
}

func (n *internalNode) isFull() bool { return n.Size() > n.MaxSize() }

// splitInto moves n's entries from the midpoint on (the boundary entry
// included) into right, which must be a freshly initialized empty internal node.
// Returns the separator key promoted to the parent: the key of the first
// moved entry (which becomes right's sentinel, slot 0, and is dropped
// from right's comparable keys).
func (n *internalNode) splitInto(right *internalNode) []byte {
	size := n.Size()
	mid := size / 2
	sep := append([]byte(nil), n.keyBytesAt(mid)...)
	for i := mid; i < size; i++ {
		right.insertAt(i-mid, n.keyBytesAt(i), n.childAt(i))
	}
	// right's slot 0 key is a sentinel; blank it.
	right.setEntry(0, make([]byte, keySize(n.keySchema)), right.childAt(0))
	n.setSize(mid)
	return sep
}

// borrowFromLeft rotates left's last child up through parentSepKey (the
// separator the parent currently holds between left and n): left's last
// entry becomes n's new slot 0 (sentinel) child, and parentSepKey becomes
// n's new slot 1 key. Returns the new separator (left's old last key)
// and true, or false if left cannot spare an entry.
func (n *internalNode) borrowFromLeft(left *internalNode, parentSepKey []byte) ([]byte, bool) {
	if left.Size() <= left.MinSize() {
		return nil, false
	}
	last := left.Size() - 1
	promotedKey := append([]byte(nil), left.keyBytesAt(last)...)
	promotedChild := left.childAt(last)
	left.removeAt(last)

	n.insertAt(0, make([]byte, keySize(n.keySchema)), promotedChild)
	n.setKeyAt(1, append([]byte(nil), parentSepKey...))
	return promotedKey, true
}

// borrowFromRight rotates right's first child (slot 0) down into n as
// its new last entry (keyed by parentSepKey, the separator currently
// between n and right), and right's former slot 1 becomes its new
// sentinel slot 0. Returns the new separator (right's old slot 1 key)
// and true, or false if right cannot spare an entry.
func (n *internalNode) borrowFromRight(right *internalNode, parentSepKey []byte) ([]byte, bool) {
	if right.Size() <= right.MinSize() {
		return nil, false
	}
	firstChild := right.childAt(0)
	n.insertAt(n.Size(), append([]byte(nil), parentSepKey...), firstChild)

	right.removeAt(0)
	newSep := append([]byte(nil), right.keyBytesAt(0)...)
	right.setKeyAt(0, make([]byte, keySize(n.keySchema)))
	return newSep, true
}

// mergeFrom absorbs right's entries into n. parentSepKey is the
// separator the parent held between n and right; it becomes the real key
// for right's former sentinel slot 0 once merged.
func (n *internalNode) mergeFrom(right *internalNode, parentSepKey []byte) {
	base := n.Size()
	for i := 0; i < right.Size(); i++ {
		key := right.keyBytesAt(i)
		if i == 0 {
			key = parentSepKey
		}
		n.insertAt(base+i, key, right.childAt(i))
	}
}
