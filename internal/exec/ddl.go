package exec

import (
	"context"
	"fmt"

	"github.com/tuannm99/novadb/internal/catalog"
	"github.com/tuannm99/novadb/internal/types"
)

// CreateTable registers a new, empty table in the catalog and yields
// nothing (a single Init-then-EOF side effect).
type CreateTable struct {
	Catalog   *catalog.Catalog
	TableName string
	Schema    *types.Schema
	outSchema *types.Schema

	done bool
	err  error
}

func NewCreateTable(cat *catalog.Catalog, tableName string, schema, outSchema *types.Schema) *CreateTable {
	return &CreateTable{Catalog: cat, TableName: tableName, Schema: schema, outSchema: outSchema}
}

func (e *CreateTable) Schema() *types.Schema { return e.outSchema }

func (e *CreateTable) Init(context.Context) error {
	e.done = false
	_, e.err = e.Catalog.CreateTable(e.TableName, e.Schema)
	return nil
}

func (e *CreateTable) Next(context.Context) (types.Tuple, types.RecordId, bool, error) {
	if e.done {
		return types.Tuple{}, types.RecordId{}, false, nil
	}
	e.done = true
	if e.err != nil {
		return types.Tuple{}, types.RecordId{}, false, e.err
	}
	return types.Tuple{}, types.RecordId{}, false, nil
}

// CreateIndex builds a new B+-tree index over OrderByColumns, every one of
// which must name a bare column of the target table (enforced by the
// planner before this executor is built).
type CreateIndex struct {
	Catalog        *catalog.Catalog
	IndexName      string
	TableName      string
	OrderByColumns []string
	outSchema      *types.Schema

	done bool
	err  error
}

func NewCreateIndex(cat *catalog.Catalog, indexName, tableName string, orderByColumns []string, outSchema *types.Schema) *CreateIndex {
	return &CreateIndex{Catalog: cat, IndexName: indexName, TableName: tableName, OrderByColumns: orderByColumns, outSchema: outSchema}
}

func (e *CreateIndex) Schema() *types.Schema { return e.outSchema }

func (e *CreateIndex) Init(context.Context) error {
	e.done = false
	_, info, ok := e.Catalog.Table(e.TableName)
	if !ok {
		e.err = fmt.Errorf("exec: table %q does not exist", e.TableName)
		return nil
	}
	keyCols := make([]int, len(e.OrderByColumns))
	for i, name := range e.OrderByColumns {
		idx := info.Schema.IndexOf("", name)
		if idx < 0 {
			e.err = fmt.Errorf("exec: unknown column %q in CREATE INDEX", name)
			return nil
		}
		keyCols[i] = idx
	}
	_, e.err = e.Catalog.CreateIndex(e.IndexName, e.TableName, keyCols)
	return nil
}

func (e *CreateIndex) Next(context.Context) (types.Tuple, types.RecordId, bool, error) {
	if e.done {
		return types.Tuple{}, types.RecordId{}, false, nil
	}
	e.done = true
	if e.err != nil {
		return types.Tuple{}, types.RecordId{}, false, e.err
	}
	return types.Tuple{}, types.RecordId{}, false, nil
}
