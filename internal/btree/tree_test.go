package btree_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novadb/internal/bufferpool"
	"github.com/tuannm99/novadb/internal/btree"
	"github.com/tuannm99/novadb/internal/storage"
	"github.com/tuannm99/novadb/internal/types"
)

func newTestTree(t *testing.T, leafMax, internalMax int) *btree.Tree {
	t.Helper()
	dm, err := storage.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	pool := bufferpool.NewPool(dm, 32, 2)
	keySchema := types.NewSchema([]types.Column{{Name: "k", DataType: types.Int32}})
	return btree.NewTree(pool, keySchema, leafMax, internalMax)
}

func keyTuple(schema *types.Schema, k int32) types.Tuple {
	return types.NewTuple(schema, []types.Value{types.NewInt32(k)})
}

func TestInsertGet(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	keySchema := types.NewSchema([]types.Column{{Name: "k", DataType: types.Int32}})

	rid := types.RecordId{PageID: 1, Slot: 2}
	require.NoError(t, tree.Insert(keyTuple(keySchema, 5), rid))

	got, ok, err := tree.Get(keyTuple(keySchema, 5))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rid, got)

	_, ok, err = tree.Get(keyTuple(keySchema, 6))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSplitOnInsertAndScanOrder(t *testing.T) {
	tree := newTestTree(t, 3, 3) // small max size forces splits quickly

	keySchema := types.NewSchema([]types.Column{{Name: "k", DataType: types.Int32}})
	for _, k := range []int32{5, 1, 9, 3, 7, 2, 8, 4, 6} {
		rid := types.RecordId{PageID: uint32(k), Slot: 0}
		require.NoError(t, tree.Insert(keyTuple(keySchema, k), rid))
	}

	it, err := tree.Scan()
	require.NoError(t, err)
	defer it.Close()

	var seen []int64
	for {
		tuple, _, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		n, _ := tuple.Values[0].AsInt64()
		seen = append(seen, n)
	}
	require.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9}, seen)
}

func TestDeleteWithBorrowMerge(t *testing.T) {
	tree := newTestTree(t, 3, 3)
	keySchema := types.NewSchema([]types.Column{{Name: "k", DataType: types.Int32}})

	for _, k := range []int32{1, 2, 3, 4, 5, 6} {
		rid := types.RecordId{PageID: uint32(k), Slot: 0}
		require.NoError(t, tree.Insert(keyTuple(keySchema, k), rid))
	}

	for _, k := range []int32{2, 4} {
		require.NoError(t, tree.Delete(keyTuple(keySchema, k)))
	}

	for _, k := range []int32{2, 4} {
		_, ok, err := tree.Get(keyTuple(keySchema, k))
		require.NoError(t, err)
		require.False(t, ok)
	}
	for _, k := range []int32{1, 3, 5, 6} {
		_, ok, err := tree.Get(keyTuple(keySchema, k))
		require.NoError(t, err)
		require.True(t, ok)
	}

	// Leaves are [1] [3] [5 6]: deleting 1 empties the first leaf, whose
	// right sibling [3] cannot spare an entry, so the two merge; deleting 3
	// then empties the merged leaf, which borrows 5 from [5 6].
	for _, k := range []int32{1, 3} {
		require.NoError(t, tree.Delete(keyTuple(keySchema, k)))
	}
	for _, k := range []int32{1, 2, 3, 4} {
		_, ok, err := tree.Get(keyTuple(keySchema, k))
		require.NoError(t, err)
		require.False(t, ok)
	}
	for _, k := range []int32{5, 6} {
		_, ok, err := tree.Get(keyTuple(keySchema, k))
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestScanFromPositionsAtOrAfterKey(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	keySchema := types.NewSchema([]types.Column{{Name: "k", DataType: types.Int32}})
	for _, k := range []int32{10, 20, 30, 40, 50} {
		rid := types.RecordId{PageID: uint32(k), Slot: 0}
		require.NoError(t, tree.Insert(keyTuple(keySchema, k), rid))
	}

	it, err := tree.ScanFrom(keyTuple(keySchema, 25))
	require.NoError(t, err)
	defer it.Close()

	var seen []int64
	for {
		tuple, _, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		n, _ := tuple.Values[0].AsInt64()
		seen = append(seen, n)
	}
	require.Equal(t, []int64{30, 40, 50}, seen)
}
