package heap_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novadb/internal/bufferpool"
	"github.com/tuannm99/novadb/internal/heap"
	"github.com/tuannm99/novadb/internal/storage"
	"github.com/tuannm99/novadb/internal/types"
)

func newTestTable(t *testing.T, schema *types.Schema) *heap.Table {
	t.Helper()
	dm, err := storage.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	pool := bufferpool.NewPool(dm, 8, 2)
	tbl, err := heap.NewTable("t", schema, pool)
	require.NoError(t, err)
	return tbl
}

func rowSchema() *types.Schema {
	return types.NewSchema([]types.Column{
		{Name: "id", DataType: types.Int32},
		{Name: "name", DataType: types.Varchar, VarcharLen: 16},
	})
}

func TestInsertGetRoundTrip(t *testing.T) {
	schema := rowSchema()
	tbl := newTestTable(t, schema)

	tuple := types.NewTuple(schema, []types.Value{types.NewInt32(7), types.NewVarchar("gopher")})
	rid, err := tbl.Insert(types.TupleMeta{}, tuple)
	require.NoError(t, err)

	meta, got, err := tbl.Get(rid)
	require.NoError(t, err)
	require.False(t, meta.IsDeleted)
	id, _ := got.Values[0].AsInt64()
	require.Equal(t, int64(7), id)
	require.Equal(t, "gopher", got.Values[1].String())
}

func TestMarkDeletedVisibleInIterator(t *testing.T) {
	schema := rowSchema()
	tbl := newTestTable(t, schema)

	var rid types.RecordId
	for i, name := range []string{"a", "b", "c"} {
		tuple := types.NewTuple(schema, []types.Value{types.NewInt32(int32(i)), types.NewVarchar(name)})
		r, err := tbl.Insert(types.TupleMeta{}, tuple)
		require.NoError(t, err)
		if name == "b" {
			rid = r
		}
	}
	require.NoError(t, tbl.MarkDeleted(rid))

	meta, _, err := tbl.Get(rid)
	require.NoError(t, err)
	require.True(t, meta.IsDeleted)

	it := tbl.Scan()
	defer it.Close()
	count := 0
	for {
		_, _, _, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	require.Equal(t, 3, count) // iterator yields every slot, deleted or not
}

func TestUpdateInPlace(t *testing.T) {
	schema := rowSchema()
	tbl := newTestTable(t, schema)

	tuple := types.NewTuple(schema, []types.Value{types.NewInt32(1), types.NewVarchar("x")})
	rid, err := tbl.Insert(types.TupleMeta{}, tuple)
	require.NoError(t, err)

	updated := types.NewTuple(schema, []types.Value{types.NewInt32(1), types.NewVarchar("y")})
	newRid, err := tbl.Update(rid, types.TupleMeta{}, updated)
	require.NoError(t, err)

	_, got, err := tbl.Get(newRid)
	require.NoError(t, err)
	require.Equal(t, "y", got.Values[1].String())
}
