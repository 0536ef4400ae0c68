// Package btree implements a disk-backed B+-tree index keyed on tuples
// (not scalars), mirroring bustubx's BPlusTreeIndex: internal pages carry
// a sentinel, ignored key in slot 0, pages split on overflow and merge or
// borrow from a sibling on underflow, and every page is a fixed-size
// buffer-pool page so the index shares storage with the rest of the
// database through the same BufferPool/DiskManager.
package btree

import (
	"github.com/tuannm99/novadb/internal/bx"
	"github.com/tuannm99/novadb/internal/storage"
	"github.com/tuannm99/novadb/internal/types"
)

const (
	pageTypeInternal = byte(1)
	pageTypeLeaf     = byte(2)

	// header: pageType(1) + curSize(2) + maxSize(2) + nextPageID(4)
	nodeHeaderSize = 9
)

// keySize is the fixed on-disk width of an encoded key tuple: the key
// schema's null bitmap plus its fixed payload. Varchar key columns are
// fixed-maximum-width (see types.Schema), so every key is the same size.
func keySize(keySchema *types.Schema) int {
	return keySchema.BitmapBytes() + keySchema.PayloadBytes()
}

// node is a thin view over a page buffer shared by leaf and internal
// pages; it owns header access, entry count/bounds are layout-specific.
type node struct {
	buf       []byte
	keySchema *types.Schema
}

func (n *node) PageType() byte           { return n.buf[0] }
func (n *node) setPageType(t byte)       { n.buf[0] = t }
func (n *node) Size() int                { return int(bx.U16BE(n.buf[1:3])) }
func (n *node) setSize(s int)            { bx.PutU16BE(n.buf[1:3], uint16(s)) }
func (n *node) MaxSize() int             { return int(bx.U16BE(n.buf[3:5])) }
func (n *node) setMaxSize(s int)         { bx.PutU16BE(n.buf[3:5], uint16(s)) }
func (n *node) NextPageID() uint32       { return bx.U32BE(n.buf[5:9]) }
func (n *node) setNextPageID(id uint32)  { bx.PutU32BE(n.buf[5:9], id) }

func (n *node) IsLeaf() bool { return n.PageType() == pageTypeLeaf }

// MinSize is the minimum occupancy before a non-root node underflows:
// root nodes are exempt from this check.
func (n *node) MinSize() int { return n.MaxSize() / 2 }

func entrySlice(buf []byte, offset, width, i int) []byte {
	o := offset + i*width
	return buf[o : o+width]
}

func initNode(buf []byte, pageType byte, maxSize int) *node {
	for i := range buf {
		buf[i] = 0
	}
	n := &node{buf: buf}
	n.setPageType(pageType)
	n.setSize(0)
	n.setMaxSize(maxSize)
	n.setNextPageID(storage.InvalidPageID)
	return n
}
