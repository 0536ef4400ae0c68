package exec_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novadb/internal/bufferpool"
	"github.com/tuannm99/novadb/internal/exec"
	"github.com/tuannm99/novadb/internal/expr"
	"github.com/tuannm99/novadb/internal/heap"
	"github.com/tuannm99/novadb/internal/plan"
	"github.com/tuannm99/novadb/internal/storage"
	"github.com/tuannm99/novadb/internal/types"
)

func newTestTable(t *testing.T, name string, schema *types.Schema) *heap.Table {
	t.Helper()
	dm, err := storage.Open(filepath.Join(t.TempDir(), name+".db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	pool := bufferpool.NewPool(dm, 16, 2)
	tbl, err := heap.NewTable(name, schema, pool)
	require.NoError(t, err)
	return tbl
}

func usersSchema() *types.Schema {
	return types.NewSchema([]types.Column{
		{Name: "id", DataType: types.Int32},
		{Name: "name", DataType: types.Varchar, VarcharLen: 32},
		{Name: "active", DataType: types.Boolean},
	})
}

func insertRow(t *testing.T, tbl *heap.Table, id int32, name string, active bool) {
	t.Helper()
	tuple := types.NewTuple(tbl.Schema, []types.Value{
		types.NewInt32(id), types.NewVarchar(name), types.NewBoolean(active),
	})
	_, err := tbl.Insert(types.TupleMeta{}, tuple)
	require.NoError(t, err)
}

func drain(t *testing.T, e exec.Executor) []types.Tuple {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.Init(ctx))
	var rows []types.Tuple
	for {
		tuple, _, ok, err := e.Next(ctx)
		require.NoError(t, err)
		if !ok {
			return rows
		}
		rows = append(rows, tuple)
	}
}

func TestSeqScan_SkipsDeleted(t *testing.T) {
	schema := usersSchema()
	tbl := newTestTable(t, "users", schema)
	insertRow(t, tbl, 1, "alice", true)
	rid2 := func() types.RecordId {
		tuple := types.NewTuple(schema, []types.Value{types.NewInt32(2), types.NewVarchar("bob"), types.NewBoolean(false)})
		rid, err := tbl.Insert(types.TupleMeta{}, tuple)
		require.NoError(t, err)
		return rid
	}()
	insertRow(t, tbl, 3, "carol", true)
	require.NoError(t, tbl.MarkDeleted(rid2))

	rows := drain(t, exec.NewSeqScan(tbl, schema))
	require.Len(t, rows, 2)
	id0, _ := rows[0].Values[0].AsInt64()
	id1, _ := rows[1].Values[0].AsInt64()
	require.Equal(t, int64(1), id0)
	require.Equal(t, int64(3), id1)
}

func TestFilter(t *testing.T) {
	schema := usersSchema()
	tbl := newTestTable(t, "users", schema)
	insertRow(t, tbl, 1, "alice", true)
	insertRow(t, tbl, 2, "bob", false)
	insertRow(t, tbl, 3, "carol", true)

	scan := exec.NewSeqScan(tbl, schema)
	pred := &expr.Column{Name: "active"}
	rows := drain(t, exec.NewFilter(pred, scan))
	require.Len(t, rows, 2)
}

func TestProject(t *testing.T) {
	schema := usersSchema()
	tbl := newTestTable(t, "users", schema)
	insertRow(t, tbl, 1, "alice", true)

	scan := exec.NewSeqScan(tbl, schema)
	outSchema := types.NewSchema([]types.Column{{Name: "name", DataType: types.Varchar, VarcharLen: 32}})
	proj := exec.NewProject([]expr.Expr{&expr.Column{Name: "name"}}, outSchema, scan)
	rows := drain(t, proj)
	require.Len(t, rows, 1)
	require.Equal(t, "alice", rows[0].Values[0].String())
}

func TestLimitOffset(t *testing.T) {
	schema := usersSchema()
	tbl := newTestTable(t, "users", schema)
	for i := int32(1); i <= 5; i++ {
		insertRow(t, tbl, i, "u", true)
	}
	scan := exec.NewSeqScan(tbl, schema)
	limit := int64(2)
	rows := drain(t, exec.NewLimit(&limit, 1, scan))
	require.Len(t, rows, 2)
	id0, _ := rows[0].Values[0].AsInt64()
	require.Equal(t, int64(2), id0)
}

func TestInsertThenSeqScan(t *testing.T) {
	schema := usersSchema()
	tbl := newTestTable(t, "users", schema)

	rows := [][]expr.Expr{
		{&expr.Literal{Value: types.NewInt32(10)}, &expr.Literal{Value: types.NewVarchar("dave")}, &expr.Literal{Value: types.NewBoolean(true)}},
	}
	values := exec.NewValues(schema, rows)
	outSchema := types.NewSchema([]types.Column{{Name: "insert_rows", DataType: types.Int32}})
	insert := exec.NewInsert(tbl, schema, values, outSchema)

	result := drain(t, insert)
	require.Len(t, result, 1)
	n, _ := result[0].Values[0].AsInt64()
	require.Equal(t, int64(1), n)

	scanned := drain(t, exec.NewSeqScan(tbl, schema))
	require.Len(t, scanned, 1)
	require.Equal(t, "dave", scanned[0].Values[1].String())
}

func TestUpdate(t *testing.T) {
	schema := usersSchema()
	tbl := newTestTable(t, "users", schema)
	insertRow(t, tbl, 1, "alice", true)
	insertRow(t, tbl, 2, "bob", true)

	scan := exec.NewSeqScan(tbl, schema)
	assignments := map[string]expr.Expr{"active": &expr.Literal{Value: types.NewBoolean(false)}}
	outSchema := types.NewSchema([]types.Column{{Name: "update_rows", DataType: types.Int32}})
	upd := exec.NewUpdate(tbl, assignments, scan, outSchema)

	result := drain(t, upd)
	n, _ := result[0].Values[0].AsInt64()
	require.Equal(t, int64(2), n)

	scanned := drain(t, exec.NewSeqScan(tbl, schema))
	for _, row := range scanned {
		b, _ := row.Values[2].Bool()
		require.False(t, b)
	}
}

func TestDelete(t *testing.T) {
	schema := usersSchema()
	tbl := newTestTable(t, "users", schema)
	insertRow(t, tbl, 1, "alice", true)
	insertRow(t, tbl, 2, "bob", false)

	scan := exec.NewSeqScan(tbl, schema)
	pred := &expr.Column{Name: "active"}
	filter := exec.NewFilter(pred, scan)
	outSchema := types.NewSchema([]types.Column{{Name: "delete_rows", DataType: types.Int32}})
	del := exec.NewDelete(tbl, filter, outSchema)

	result := drain(t, del)
	n, _ := result[0].Values[0].AsInt64()
	require.Equal(t, int64(1), n)

	remaining := drain(t, exec.NewSeqScan(tbl, schema))
	require.Len(t, remaining, 1)
	id0, _ := remaining[0].Values[0].AsInt64()
	require.Equal(t, int64(2), id0)
}

func TestSort(t *testing.T) {
	schema := usersSchema()
	tbl := newTestTable(t, "users", schema)
	insertRow(t, tbl, 3, "carol", true)
	insertRow(t, tbl, 1, "alice", true)
	insertRow(t, tbl, 2, "bob", true)

	scan := exec.NewSeqScan(tbl, schema)
	orderBys := []plan.OrderBy{{Expr: &expr.Column{Name: "id"}, Desc: true}}
	rows := drain(t, exec.NewSort(orderBys, scan, nil))
	require.Len(t, rows, 3)
	id0, _ := rows[0].Values[0].AsInt64()
	id1, _ := rows[1].Values[0].AsInt64()
	id2, _ := rows[2].Values[0].AsInt64()
	require.Equal(t, []int64{3, 2, 1}, []int64{id0, id1, id2})
}

func TestSortWithLimitBoundsToTopK(t *testing.T) {
	schema := usersSchema()
	tbl := newTestTable(t, "users", schema)
	insertRow(t, tbl, 3, "carol", true)
	insertRow(t, tbl, 1, "alice", true)
	insertRow(t, tbl, 4, "dave", true)
	insertRow(t, tbl, 2, "bob", true)

	scan := exec.NewSeqScan(tbl, schema)
	orderBys := []plan.OrderBy{{Expr: &expr.Column{Name: "id"}, Desc: false}}
	limit := 2
	rows := drain(t, exec.NewSort(orderBys, scan, &limit))
	require.Len(t, rows, 2)
	id0, _ := rows[0].Values[0].AsInt64()
	id1, _ := rows[1].Values[0].AsInt64()
	require.Equal(t, []int64{1, 2}, []int64{id0, id1})
}

func TestNestedLoopJoin_Inner(t *testing.T) {
	usersSchema := usersSchema()
	users := newTestTable(t, "users", usersSchema)
	insertRow(t, users, 1, "alice", true)
	insertRow(t, users, 2, "bob", true)

	ordersSchema := types.NewSchema([]types.Column{
		{Name: "order_id", DataType: types.Int32},
		{Name: "user_id", DataType: types.Int32},
	})
	orders := newTestTable(t, "orders", ordersSchema)
	for _, row := range [][2]int32{{100, 1}, {101, 2}, {102, 1}} {
		tuple := types.NewTuple(ordersSchema, []types.Value{types.NewInt32(row[0]), types.NewInt32(row[1])})
		_, err := orders.Insert(types.TupleMeta{}, tuple)
		require.NoError(t, err)
	}

	outSchema := types.Concat(ordersSchema, usersSchema, false, false)
	on := &expr.BinaryExpr{
		Left:  &expr.Column{Relation: "orders", Name: "user_id"},
		Op:    expr.Eq,
		Right: &expr.Column{Relation: "users", Name: "id"},
	}
	left := exec.NewSeqScan(orders, ordersSchema)
	right := exec.NewSeqScan(users, usersSchema)
	join := exec.NewNestedLoopJoin(plan.InnerJoin, on, left, right, outSchema)

	rows := drain(t, join)
	require.Len(t, rows, 3)
}
