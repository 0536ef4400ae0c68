package planner_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novadb/internal/catalog"
	"github.com/tuannm99/novadb/internal/plan"
	"github.com/tuannm99/novadb/internal/sql/parser"
	"github.com/tuannm99/novadb/internal/sql/planner"
	"github.com/tuannm99/novadb/internal/storage"
	"github.com/tuannm99/novadb/internal/types"
)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	dm, err := storage.Open(filepath.Join(dir, "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	cat, err := catalog.Open(dm, filepath.Join(dir, "catalog.json"), 16, 2, nil)
	require.NoError(t, err)
	return cat
}

func plan1(t *testing.T, p *planner.Planner, sql string) plan.Node {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	node, err := p.Plan(stmt)
	require.NoError(t, err)
	return node
}

func TestPlanCreateTable(t *testing.T) {
	cat := newTestCatalog(t)
	p := planner.New(cat)

	node := plan1(t, p, "CREATE TABLE users (id INT, name VARCHAR(32));")
	ct, ok := node.(*plan.CreateTable)
	require.True(t, ok)
	require.Equal(t, "users", ct.TableName)
}

func TestPlanInsertRejectsWrongArity(t *testing.T) {
	cat := newTestCatalog(t)
	p := planner.New(cat)
	_, err := cat.CreateTable("users", types.NewSchema([]types.Column{
		{Name: "id", DataType: types.Int32},
		{Name: "name", DataType: types.Varchar, VarcharLen: 32},
	}))
	require.NoError(t, err)

	stmt, err := parser.Parse("INSERT INTO users VALUES (1);")
	require.NoError(t, err)
	_, err = p.Plan(stmt)
	require.Error(t, err)
}

func TestPlanInsert(t *testing.T) {
	cat := newTestCatalog(t)
	p := planner.New(cat)
	_, err := cat.CreateTable("users", types.NewSchema([]types.Column{
		{Name: "id", DataType: types.Int32},
		{Name: "name", DataType: types.Varchar, VarcharLen: 32},
	}))
	require.NoError(t, err)

	node := plan1(t, p, "INSERT INTO users VALUES (1, 'alice');")
	ins, ok := node.(*plan.Insert)
	require.True(t, ok)
	require.Equal(t, "users", ins.TableName)
}

func TestPlanSelectShape(t *testing.T) {
	cat := newTestCatalog(t)
	p := planner.New(cat)
	_, err := cat.CreateTable("users", types.NewSchema([]types.Column{
		{Name: "id", DataType: types.Int32},
		{Name: "name", DataType: types.Varchar, VarcharLen: 32},
		{Name: "active", DataType: types.Boolean},
	}))
	require.NoError(t, err)

	node := plan1(t, p, "SELECT name FROM users WHERE active = true ORDER BY name LIMIT 10 OFFSET 1;")

	lim, ok := node.(*plan.Limit)
	require.True(t, ok)
	require.Equal(t, int64(1), lim.Offset)
	require.NotNil(t, lim.Limit)
	require.Equal(t, int64(10), *lim.Limit)

	sort, ok := lim.Input.(*plan.Sort)
	require.True(t, ok)

	proj, ok := sort.Input.(*plan.Project)
	require.True(t, ok)

	_, ok = proj.Input.(*plan.Filter)
	require.True(t, ok)
}

func TestPlanSelectStar(t *testing.T) {
	cat := newTestCatalog(t)
	p := planner.New(cat)
	_, err := cat.CreateTable("users", types.NewSchema([]types.Column{
		{Name: "id", DataType: types.Int32},
	}))
	require.NoError(t, err)

	node := plan1(t, p, "SELECT * FROM users;")
	proj, ok := node.(*plan.Project)
	require.True(t, ok)
	require.Len(t, proj.Schema().Columns, 1)
}

func TestPlanJoinQualifiesColumns(t *testing.T) {
	cat := newTestCatalog(t)
	p := planner.New(cat)
	_, err := cat.CreateTable("users", types.NewSchema([]types.Column{
		{Name: "id", DataType: types.Int32},
	}))
	require.NoError(t, err)
	_, err = cat.CreateTable("orders", types.NewSchema([]types.Column{
		{Name: "user_id", DataType: types.Int32},
	}))
	require.NoError(t, err)

	node := plan1(t, p, "SELECT * FROM orders JOIN users ON orders.user_id = users.id;")
	proj, ok := node.(*plan.Project)
	require.True(t, ok)
	_, ok = proj.Input.(*plan.Join)
	require.True(t, ok)
	require.Len(t, proj.Schema().Columns, 2)
}

func TestPlanCreateIndex(t *testing.T) {
	cat := newTestCatalog(t)
	p := planner.New(cat)
	_, err := cat.CreateTable("users", types.NewSchema([]types.Column{
		{Name: "id", DataType: types.Int32},
	}))
	require.NoError(t, err)

	node := plan1(t, p, "CREATE INDEX idx_users_id ON users (id);")
	ci, ok := node.(*plan.CreateIndex)
	require.True(t, ok)
	require.Equal(t, "idx_users_id", ci.IndexName)
}

func TestPlanSelectUsesIndexOnEqualityPredicate(t *testing.T) {
	cat := newTestCatalog(t)
	p := planner.New(cat)
	_, err := cat.CreateTable("users", types.NewSchema([]types.Column{
		{Name: "id", DataType: types.Int32},
		{Name: "name", DataType: types.Varchar, VarcharLen: 32},
	}))
	require.NoError(t, err)
	_, err = cat.CreateIndex("idx_users_id", "users", []int{0})
	require.NoError(t, err)

	node := plan1(t, p, "SELECT name FROM users WHERE id = 1;")
	proj, ok := node.(*plan.Project)
	require.True(t, ok)
	filter, ok := proj.Input.(*plan.Filter)
	require.True(t, ok)
	scan, ok := filter.Input.(*plan.TableScan)
	require.True(t, ok)
	require.Equal(t, "idx_users_id", scan.IndexName)
}

func TestPlanSelectFallsBackToSeqScanWithoutMatchingIndex(t *testing.T) {
	cat := newTestCatalog(t)
	p := planner.New(cat)
	_, err := cat.CreateTable("users", types.NewSchema([]types.Column{
		{Name: "id", DataType: types.Int32},
		{Name: "name", DataType: types.Varchar, VarcharLen: 32},
	}))
	require.NoError(t, err)
	_, err = cat.CreateIndex("idx_users_id", "users", []int{0})
	require.NoError(t, err)

	node := plan1(t, p, "SELECT name FROM users WHERE name = 'alice';")
	proj, ok := node.(*plan.Project)
	require.True(t, ok)
	filter, ok := proj.Input.(*plan.Filter)
	require.True(t, ok)
	scan, ok := filter.Input.(*plan.TableScan)
	require.True(t, ok)
	require.Equal(t, "", scan.IndexName)
}

func TestPlanUpdateDelete(t *testing.T) {
	cat := newTestCatalog(t)
	p := planner.New(cat)
	_, err := cat.CreateTable("users", types.NewSchema([]types.Column{
		{Name: "id", DataType: types.Int32},
		{Name: "active", DataType: types.Boolean},
	}))
	require.NoError(t, err)

	upd := plan1(t, p, "UPDATE users SET active = false WHERE id = 1;")
	u, ok := upd.(*plan.Update)
	require.True(t, ok)
	require.Contains(t, u.Assignments, "active")

	del := plan1(t, p, "DELETE FROM users WHERE id = 1;")
	_, ok = del.(*plan.Delete)
	require.True(t, ok)
}
