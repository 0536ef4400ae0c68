package catalog_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novadb/internal/catalog"
	"github.com/tuannm99/novadb/internal/storage"
	"github.com/tuannm99/novadb/internal/types"
)

func openTestCatalog(t *testing.T, dir string) *catalog.Catalog {
	t.Helper()
	dm, err := storage.Open(filepath.Join(dir, "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	cat, err := catalog.Open(dm, filepath.Join(dir, "catalog.json"), 8, 2, nil)
	require.NoError(t, err)
	return cat
}

func TestCreateTableAndLookup(t *testing.T) {
	cat := openTestCatalog(t, t.TempDir())
	schema := types.NewSchema([]types.Column{{Name: "id", DataType: types.Int32}})

	_, err := cat.CreateTable("users", schema)
	require.NoError(t, err)

	_, err = cat.CreateTable("users", schema)
	require.Error(t, err)

	_, info, ok := cat.Table("users")
	require.True(t, ok)
	require.Equal(t, "users", info.Name)
	require.Contains(t, cat.TableNames(), "users")
}

func TestCreateIndexStampsUniqueID(t *testing.T) {
	cat := openTestCatalog(t, t.TempDir())
	schema := types.NewSchema([]types.Column{{Name: "id", DataType: types.Int32}})
	_, err := cat.CreateTable("users", schema)
	require.NoError(t, err)

	_, err = cat.CreateIndex("idx_id", "users", []int{0})
	require.NoError(t, err)

	_, info, ok := cat.Index("idx_id")
	require.True(t, ok)
	require.NotEqual(t, [16]byte{}, [16]byte(info.ID))
	require.Contains(t, cat.IndexesOn("users"), "idx_id")

	_, err = cat.CreateIndex("idx_other", "no_such_table", []int{0})
	require.Error(t, err)
}

func TestCatalogSyncAndReopen(t *testing.T) {
	dir := t.TempDir()
	cat := openTestCatalog(t, dir)
	schema := types.NewSchema([]types.Column{
		{Name: "id", DataType: types.Int32},
		{Name: "name", DataType: types.Varchar, VarcharLen: 16},
	})
	tbl, err := cat.CreateTable("users", schema)
	require.NoError(t, err)

	tuple := types.NewTuple(schema, []types.Value{types.NewInt32(1), types.NewVarchar("a")})
	_, err = tbl.Insert(types.TupleMeta{}, tuple)
	require.NoError(t, err)

	_, err = cat.CreateIndex("idx_id", "users", []int{0})
	require.NoError(t, err)

	require.NoError(t, cat.Sync())
	require.NoError(t, cat.Close())

	dm2, err := storage.Open(filepath.Join(dir, "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm2.Close() })
	reopened, err := catalog.Open(dm2, filepath.Join(dir, "catalog.json"), 8, 2, nil)
	require.NoError(t, err)

	reTbl, info, ok := reopened.Table("users")
	require.True(t, ok)
	require.Len(t, info.Schema.Columns, 2)
	require.Contains(t, info.Indexes, "idx_id")

	it := reTbl.Scan()
	defer it.Close()
	_, _, gotTuple, ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", gotTuple.Values[1].String())
}
