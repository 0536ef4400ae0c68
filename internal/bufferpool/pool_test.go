package bufferpool_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novadb/internal/bufferpool"
	"github.com/tuannm99/novadb/internal/storage"
)

func newTestPool(t *testing.T, capacity, k int) *bufferpool.Pool {
	t.Helper()
	dm, err := storage.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	return bufferpool.NewPool(dm, capacity, k)
}

func TestNewPageRoundTrip(t *testing.T) {
	pool := newTestPool(t, 4, 2)

	page, err := pool.NewPage()
	require.NoError(t, err)
	copy(page.Bytes(), []byte("hello"))
	id := page.ID()

	_, err = pool.UnpinPage(id, true)
	require.NoError(t, err)

	fetched, err := pool.FetchPage(id)
	require.NoError(t, err)
	require.Equal(t, byte('h'), fetched.Bytes()[0])
	_, err = pool.UnpinPage(id, false)
	require.NoError(t, err)
}

func TestFetchGuardedDropUnpins(t *testing.T) {
	pool := newTestPool(t, 4, 2)

	page, err := pool.NewPage()
	require.NoError(t, err)
	id := page.ID()
	_, err = pool.UnpinPage(id, false)
	require.NoError(t, err)

	g, err := pool.FetchGuarded(id)
	require.NoError(t, err)
	g.MarkDirty()
	g.Drop()

	require.NoError(t, pool.FlushAllPages())
}

func TestEvictionUnderCapacityPressure(t *testing.T) {
	pool := newTestPool(t, 2, 2)

	var ids []uint32
	for i := 0; i < 2; i++ {
		p, err := pool.NewPage()
		require.NoError(t, err)
		ids = append(ids, p.ID())
		_, err = pool.UnpinPage(p.ID(), false)
		require.NoError(t, err)
	}
	require.Equal(t, 2, pool.Size())

	// Both existing pages are unpinned and evictable; a third NewPage must
	// evict one rather than erroring out on a full pool.
	p3, err := pool.NewPage()
	require.NoError(t, err)
	_, err = pool.UnpinPage(p3.ID(), false)
	require.NoError(t, err)
	require.LessOrEqual(t, pool.Size(), pool.Capacity())
}
