package optimizer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novadb/internal/optimizer"
	"github.com/tuannm99/novadb/internal/plan"
	"github.com/tuannm99/novadb/internal/types"
)

func int64p(n int64) *int64 { return &n }

func scanSchema() *types.Schema {
	return types.NewSchema([]types.Column{{Name: "a", DataType: types.Int32}})
}

func TestEliminateLimit_Zero(t *testing.T) {
	scan := plan.NewTableScan(scanSchema(), "t1", "")
	lim := plan.NewLimit(int64p(0), 0, scan)

	out, err := optimizer.Optimize(lim)
	require.NoError(t, err)
	_, isEmpty := out.(*plan.EmptyRelation)
	require.True(t, isEmpty)
}

func TestEliminateLimit_NoOp(t *testing.T) {
	scan := plan.NewTableScan(scanSchema(), "t1", "")
	lim := plan.NewLimit(nil, 0, scan)

	out, err := optimizer.Optimize(lim)
	require.NoError(t, err)
	require.Same(t, scan, out)
}

func TestMergeLimit(t *testing.T) {
	scan := plan.NewTableScan(scanSchema(), "t1", "")
	inner := plan.NewLimit(int64p(20), 5, scan)
	outer := plan.NewLimit(int64p(10), 2, inner)

	out, err := optimizer.Optimize(outer)
	require.NoError(t, err)
	merged, ok := out.(*plan.Limit)
	require.True(t, ok)
	require.Equal(t, int64(7), merged.Offset)
	require.NotNil(t, merged.Limit)
	require.Equal(t, int64(10), *merged.Limit)
	require.Same(t, scan, merged.Input)
}

func TestPushDownLimit(t *testing.T) {
	scan := plan.NewTableScan(scanSchema(), "t1", "")
	sort := plan.NewSort([]plan.OrderBy{{Expr: nil, Desc: false}}, scan)
	lim := plan.NewLimit(int64p(10), 5, sort)

	out, err := optimizer.Optimize(lim)
	require.NoError(t, err)
	asLimit, ok := out.(*plan.Limit)
	require.True(t, ok)
	innerSort, ok := asLimit.Input.(*plan.Sort)
	require.True(t, ok)
	require.NotNil(t, innerSort.Limit)
	require.Equal(t, 15, *innerSort.Limit)
}
