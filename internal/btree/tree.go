package btree

import (
	"sync"

	"github.com/tuannm99/novadb/internal/bufferpool"
	"github.com/tuannm99/novadb/internal/storage"
	"github.com/tuannm99/novadb/internal/types"
)

// Tree is a disk-backed B+-tree index. Keys are tuples over the index's
// key schema (a projection of the indexed table's columns), not bare
// scalars, so composite indexes fall out of the same representation as
// single-column ones.
type Tree struct {
	mu sync.Mutex

	Pool      *bufferpool.Pool
	KeySchema *types.Schema

	leafMaxSize     int
	internalMaxSize int
	rootPageID      uint32
}

func NewTree(pool *bufferpool.Pool, keySchema *types.Schema, leafMaxSize, internalMaxSize int) *Tree {
	return &Tree{
		Pool:            pool,
		KeySchema:       keySchema,
		leafMaxSize:     leafMaxSize,
		internalMaxSize: internalMaxSize,
		rootPageID:      storage.InvalidPageID,
	}
}

// OpenTree reattaches to an existing index whose root page id is already
// known (loaded from the catalog).
func OpenTree(pool *bufferpool.Pool, keySchema *types.Schema, leafMaxSize, internalMaxSize int, rootPageID uint32) *Tree {
	t := NewTree(pool, keySchema, leafMaxSize, internalMaxSize)
	t.rootPageID = rootPageID
	return t
}

func (t *Tree) RootPageID() uint32 { return t.rootPageID }
func (t *Tree) IsEmpty() bool      { return t.rootPageID == storage.InvalidPageID }

func (t *Tree) encode(key types.Tuple) ([]byte, error) { return encodeKey(t.KeySchema, key) }

// descendToLeaf walks from the root to the leaf that would hold kb,
// returning the ancestor internal page ids (root-first) and the leaf's
// page id.
func (t *Tree) descendToLeaf(kb []byte) ([]uint32, uint32, error) {
	var ancestors []uint32
	cur := t.rootPageID
	for {
		g, err := t.Pool.FetchGuarded(cur)
		if err != nil {
			return nil, 0, err
		}
		n := node{buf: g.Page().Bytes(), keySchema: t.KeySchema}
		if n.IsLeaf() {
			g.Drop()
			return ancestors, cur, nil
		}
		child, err := asInternal(g.Page().Bytes(), t.KeySchema).lookupChild(kb)
		g.Drop()
		if err != nil {
			return nil, 0, err
		}
		ancestors = append(ancestors, cur)
		cur = child
	}
}

// Get looks up key, returning its RecordId and true if present.
func (t *Tree) Get(key types.Tuple) (types.RecordId, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.IsEmpty() {
		return types.RecordId{}, false, nil
	}
	kb, err := t.encode(key)
	if err != nil {
		return types.RecordId{}, false, err
	}
	_, leafPID, err := t.descendToLeaf(kb)
	if err != nil {
		return types.RecordId{}, false, err
	}
	g, err := t.Pool.FetchGuarded(leafPID)
	if err != nil {
		return types.RecordId{}, false, err
	}
	defer g.Drop()

	leaf := asLeaf(g.Page().Bytes(), t.KeySchema)
	idx, found, err := leaf.find(t.KeySchema, kb)
	if err != nil || !found {
		return types.RecordId{}, false, err
	}
	return leaf.ridAt(idx), true, nil
}

// Insert adds key -> rid. Returns ErrDuplicateKey if key is already
// present (indexes in this engine enforce uniqueness).
func (t *Tree) Insert(key types.Tuple, rid types.RecordId) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	kb, err := t.encode(key)
	if err != nil {
		return err
	}

	if t.IsEmpty() {
		g, err := t.Pool.NewGuarded()
		if err != nil {
			return err
		}
		leaf := newLeafNode(g.Page().Bytes(), t.KeySchema, t.leafMaxSize)
		leaf.insertAt(0, kb, rid)
		g.MarkDirty()
		t.rootPageID = g.Page().ID()
		g.Drop()
		return nil
	}

	ancestors, leafPID, err := t.descendToLeaf(kb)
	if err != nil {
		return err
	}

	g, err := t.Pool.FetchGuarded(leafPID)
	if err != nil {
		return err
	}
	leaf := asLeaf(g.Page().Bytes(), t.KeySchema)
	idx, found, err := leaf.find(t.KeySchema, kb)
	if err != nil {
		g.Drop()
		return err
	}
	if found {
		g.Drop()
		return ErrDuplicateKey
	}
	leaf.insertAt(idx, kb, rid)
	g.MarkDirty()

	if !leaf.isFull() {
		g.Drop()
		return nil
	}

	rg, err := t.Pool.NewGuarded()
	if err != nil {
		g.Drop()
		return err
	}
	rightLeaf := newLeafNode(rg.Page().Bytes(), t.KeySchema, t.leafMaxSize)
	sepKey := leaf.splitInto(rightLeaf)
	leaf.setNextPageID(rg.Page().ID())
	rg.MarkDirty()

	curPageID := leafPID
	rightPageID := rg.Page().ID()
	g.Drop()
	rg.Drop()

	return t.propagateSplit(ancestors, curPageID, rightPageID, sepKey)
}

// propagateSplit installs (sepKey, rightPageID) into curPageID's parent
// (the last entry of ancestors), splitting the parent in turn if it
// overflows, all the way up to a possibly new root.
func (t *Tree) propagateSplit(ancestors []uint32, curPageID, rightPageID uint32, sepKey []byte) error {
	for {
		if len(ancestors) == 0 {
			ng, err := t.Pool.NewGuarded()
			if err != nil {
				return err
			}
			newRoot := newInternalNode(ng.Page().Bytes(), t.KeySchema, t.internalMaxSize)
			newRoot.setRootEntry(curPageID, sepKey, rightPageID)
			ng.MarkDirty()
			t.rootPageID = ng.Page().ID()
			ng.Drop()
			return nil
		}

		parentPID := ancestors[len(ancestors)-1]
		ancestors = ancestors[:len(ancestors)-1]

		pg, err := t.Pool.FetchGuarded(parentPID)
		if err != nil {
			return err
		}
		parent := asInternal(pg.Page().Bytes(), t.KeySchema)
		idx, err := internalInsertionIndex(parent, sepKey)
		if err != nil {
			pg.Drop()
			return err
		}
		parent.insertAt(idx, sepKey, rightPageID)
		pg.MarkDirty()

		if !parent.isFull() {
			pg.Drop()
			return nil
		}

		rpg, err := t.Pool.NewGuarded()
		if err != nil {
			pg.Drop()
			return err
		}
		rightInternal := newInternalNode(rpg.Page().Bytes(), t.KeySchema, t.internalMaxSize)
		nextSep := parent.splitInto(rightInternal)
		rpg.MarkDirty()

		curPageID = parentPID
		rightPageID = rpg.Page().ID()
		sepKey = nextSep
		pg.Drop()
		rpg.Drop()
	}
}

// internalInsertionIndex finds the slot (in [1, size]) where sepKey
// should be inserted among parent's real (non-sentinel) keys.
func internalInsertionIndex(parent *internalNode, sepKey []byte) (int, error) {
	lo, hi := 1, parent.Size()
	for lo < hi {
		mid := (lo + hi) / 2
		cmp, err := compareKeyBytes(parent.keySchema, parent.keyBytesAt(mid), sepKey)
		if err != nil {
			return 0, err
		}
		if cmp < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// Delete removes key from the tree, rebalancing via borrow-then-merge
// with the left sibling preferred over the right at every level.
func (t *Tree) Delete(key types.Tuple) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.IsEmpty() {
		return ErrKeyNotFound
	}
	kb, err := t.encode(key)
	if err != nil {
		return err
	}

	ancestors, leafPID, err := t.descendToLeaf(kb)
	if err != nil {
		return err
	}

	g, err := t.Pool.FetchGuarded(leafPID)
	if err != nil {
		return err
	}
	leaf := asLeaf(g.Page().Bytes(), t.KeySchema)
	idx, found, err := leaf.find(t.KeySchema, kb)
	if err != nil {
		g.Drop()
		return err
	}
	if !found {
		g.Drop()
		return ErrKeyNotFound
	}
	leaf.removeAt(idx)
	g.MarkDirty()
	g.Drop()

	return t.fixUnderflow(ancestors, leafPID, true)
}

// fixUnderflow repairs curPageID if it has fallen below min_size, working
// up through ancestors (root-first order; the last element is curPageID's
// parent) until no further underflow propagates.
func (t *Tree) fixUnderflow(ancestors []uint32, curPageID uint32, curIsLeaf bool) error {
	for {
		if len(ancestors) == 0 {
			return t.fixRoot(curPageID)
		}

		underflowed, err := t.isUnderflowed(curPageID, curIsLeaf)
		if err != nil {
			return err
		}
		if !underflowed {
			return nil
		}

		parentPID := ancestors[len(ancestors)-1]
		ancestors = ancestors[:len(ancestors)-1]

		pg, err := t.Pool.FetchGuarded(parentPID)
		if err != nil {
			return err
		}
		parent := asInternal(pg.Page().Bytes(), t.KeySchema)
		idx := parent.indexOfChild(curPageID)

		resolved, err := t.resolveSiblingAt(parent, idx, curPageID, curIsLeaf)
		if err != nil {
			pg.Drop()
			return err
		}
		pg.MarkDirty()
		pg.Drop()

		if resolved.merged {
			curPageID = parentPID
			curIsLeaf = false
			continue
		}
		return nil
	}
}

func (t *Tree) isUnderflowed(pageID uint32, isLeaf bool) (bool, error) {
	g, err := t.Pool.FetchGuarded(pageID)
	if err != nil {
		return false, err
	}
	defer g.Drop()
	if isLeaf {
		n := asLeaf(g.Page().Bytes(), t.KeySchema)
		return n.Size() < n.MinSize(), nil
	}
	n := asInternal(g.Page().Bytes(), t.KeySchema)
	return n.Size() < n.MinSize(), nil
}

type siblingResolution struct{ merged bool }

// resolveSiblingAt fixes curPageID (found at parent's slot idx) by first
// trying to borrow from its left sibling, then its right sibling, and
// finally merging with the left sibling if present or else the right.
func (t *Tree) resolveSiblingAt(parent *internalNode, idx int, curPageID uint32, curIsLeaf bool) (siblingResolution, error) {
	if idx > 0 {
		leftPID := parent.childAt(idx - 1)
		ok, err := t.tryBorrow(curPageID, leftPID, curIsLeaf, true, parent, idx)
		if err != nil || ok {
			return siblingResolution{}, err
		}
	}
	if idx+1 < parent.Size() {
		rightPID := parent.childAt(idx + 1)
		ok, err := t.tryBorrow(curPageID, rightPID, curIsLeaf, false, parent, idx)
		if err != nil || ok {
			return siblingResolution{}, err
		}
	}

	if idx > 0 {
		leftPID := parent.childAt(idx - 1)
		if err := t.mergeSiblings(leftPID, curPageID, curIsLeaf, parent, idx); err != nil {
			return siblingResolution{}, err
		}
		return siblingResolution{merged: true}, nil
	}

	rightPID := parent.childAt(idx + 1)
	if err := t.mergeSiblings(curPageID, rightPID, curIsLeaf, parent, idx+1); err != nil {
		return siblingResolution{}, err
	}
	return siblingResolution{merged: true}, nil
}

// tryBorrow attempts to rebalance curPageID from siblingPID (to its left
// if fromLeft, else to its right), updating parent's separator at the
// appropriate slot on success.
func (t *Tree) tryBorrow(curPageID, siblingPID uint32, curIsLeaf, fromLeft bool, parent *internalNode, curIdx int) (bool, error) {
	cg, err := t.Pool.FetchGuarded(curPageID)
	if err != nil {
		return false, err
	}
	sg, err := t.Pool.FetchGuarded(siblingPID)
	if err != nil {
		cg.Drop()
		return false, err
	}
	defer cg.Drop()
	defer sg.Drop()

	if curIsLeaf {
		cur := asLeaf(cg.Page().Bytes(), t.KeySchema)
		sib := asLeaf(sg.Page().Bytes(), t.KeySchema)
		if fromLeft {
			newSep, ok := cur.borrowFromLeft(sib)
			if !ok {
				return false, nil
			}
			parent.setKeyAt(curIdx, newSep)
		} else {
			newSep, ok := cur.borrowFromRight(sib)
			if !ok {
				return false, nil
			}
			parent.setKeyAt(curIdx+1, newSep)
		}
	} else {
		cur := asInternal(cg.Page().Bytes(), t.KeySchema)
		sib := asInternal(sg.Page().Bytes(), t.KeySchema)
		if fromLeft {
			sep := append([]byte(nil), parent.keyBytesAt(curIdx)...)
			newSep, ok := cur.borrowFromLeft(sib, sep)
			if !ok {
				return false, nil
			}
			parent.setKeyAt(curIdx, newSep)
		} else {
			sep := append([]byte(nil), parent.keyBytesAt(curIdx+1)...)
			newSep, ok := cur.borrowFromRight(sib, sep)
			if !ok {
				return false, nil
			}
			parent.setKeyAt(curIdx+1, newSep)
		}
	}
	cg.MarkDirty()
	sg.MarkDirty()
	return true, nil
}

// mergeSiblings merges rightPID's entries into leftPID, removes the
// parent slot at sepIdx (the separator/child entry for rightPID), and
// deallocates rightPID.
func (t *Tree) mergeSiblings(leftPID, rightPID uint32, isLeaf bool, parent *internalNode, sepIdx int) error {
	lg, err := t.Pool.FetchGuarded(leftPID)
	if err != nil {
		return err
	}
	rg, err := t.Pool.FetchGuarded(rightPID)
	if err != nil {
		lg.Drop()
		return err
	}

	if isLeaf {
		left := asLeaf(lg.Page().Bytes(), t.KeySchema)
		right := asLeaf(rg.Page().Bytes(), t.KeySchema)
		left.mergeFrom(right)
	} else {
		left := asInternal(lg.Page().Bytes(), t.KeySchema)
		right := asInternal(rg.Page().Bytes(), t.KeySchema)
		sep := append([]byte(nil), parent.keyBytesAt(sepIdx)...)
		left.mergeFrom(right, sep)
	}
	lg.MarkDirty()
	lg.Drop()
	rg.Drop()

	parent.removeAt(sepIdx)

	if _, err := t.Pool.DeletePage(rightPID); err != nil {
		return err
	}
	return nil
}

// fixRoot collapses a root that has been reduced to a single child
// (internal root) or emptied entirely (leaf root), per the root-exempt
// underflow policy: roots never merge or borrow, they just shrink.
func (t *Tree) fixRoot(rootPageID uint32) error {
	g, err := t.Pool.FetchGuarded(rootPageID)
	if err != nil {
		return err
	}
	n := node{buf: g.Page().Bytes(), keySchema: t.KeySchema}
	if n.IsLeaf() {
		leaf := asLeaf(g.Page().Bytes(), t.KeySchema)
		empty := leaf.Size() == 0
		g.Drop()
		if empty {
			if _, err := t.Pool.DeletePage(rootPageID); err != nil {
				return err
			}
			t.rootPageID = storage.InvalidPageID
		}
		return nil
	}

	internal := asInternal(g.Page().Bytes(), t.KeySchema)
	if internal.Size() > 1 {
		g.Drop()
		return nil
	}
	newRoot := internal.childAt(0)
	g.Drop()
	if _, err := t.Pool.DeletePage(rootPageID); err != nil {
		return err
	}
	t.rootPageID = newRoot
	return nil
}

// Iterator walks matching leaf entries in ascending key order.
type Iterator struct {
	tree   *Tree
	guard  *bufferpool.Guard
	leaf   *leafNode
	pageID uint32
	idx    int
}

// Scan returns an iterator over every entry, starting at the leftmost
// leaf.
func (t *Tree) Scan() (*Iterator, error) {
	if t.IsEmpty() {
		return &Iterator{tree: t, pageID: storage.InvalidPageID}, nil
	}
	cur := t.rootPageID
	for {
		g, err := t.Pool.FetchGuarded(cur)
		if err != nil {
			return nil, err
		}
		n := node{buf: g.Page().Bytes(), keySchema: t.KeySchema}
		if n.IsLeaf() {
			g.Drop()
			return &Iterator{tree: t, pageID: cur, idx: -1}, nil
		}
		next := asInternal(g.Page().Bytes(), t.KeySchema).childAt(0)
		g.Drop()
		cur = next
	}
}

// ScanFrom returns an iterator positioned just before the first entry
// whose key is >= key, for bounded index range scans.
func (t *Tree) ScanFrom(key types.Tuple) (*Iterator, error) {
	if t.IsEmpty() {
		return &Iterator{tree: t, pageID: storage.InvalidPageID}, nil
	}
	kb, err := t.encode(key)
	if err != nil {
		return nil, err
	}
	_, leafPID, err := t.descendToLeaf(kb)
	if err != nil {
		return nil, err
	}
	g, err := t.Pool.FetchGuarded(leafPID)
	if err != nil {
		return nil, err
	}
	idx, _, err := asLeaf(g.Page().Bytes(), t.KeySchema).find(t.KeySchema, kb)
	g.Drop()
	if err != nil {
		return nil, err
	}
	return &Iterator{tree: t, pageID: leafPID, idx: idx - 1}, nil
}

func (it *Iterator) loadPage() error {
	if it.guard != nil || it.pageID == storage.InvalidPageID {
		return nil
	}
	g, err := it.tree.Pool.FetchGuarded(it.pageID)
	if err != nil {
		return err
	}
	it.guard = g
	it.leaf = asLeaf(g.Page().Bytes(), it.tree.KeySchema)
	return nil
}

func (it *Iterator) release() {
	if it.guard != nil {
		it.guard.Drop()
		it.guard = nil
		it.leaf = nil
	}
}

// Next advances the iterator, returning (key, rid, true) or ok=false once
// exhausted.
func (it *Iterator) Next() (types.Tuple, types.RecordId, bool, error) {
	for {
		if it.pageID == storage.InvalidPageID {
			return types.Tuple{}, types.RecordId{}, false, nil
		}
		if err := it.loadPage(); err != nil {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		it.idx++
		if it.idx >= it.leaf.Size() {
			next := it.leaf.NextPageID()
			it.release()
			it.pageID = next
			it.idx = -1
			continue
		}
		key, err := types.Decode(it.tree.KeySchema, it.leaf.keyBytesAt(it.idx))
		if err != nil {
			return types.Tuple{}, types.RecordId{}, false, err
		}
		return key, it.leaf.ridAt(it.idx), true, nil
	}
}

func (it *Iterator) Close() { it.release() }
