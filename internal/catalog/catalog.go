// Package catalog tracks the tables and indexes in a database: their
// schemas, and where their heap/B+-tree chains begin on disk. Each table
// and each index owns its own dedicated BufferPool, but every pool in a
// Catalog shares one underlying DiskManager and page-id space.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tuannm99/novadb/internal/btree"
	"github.com/tuannm99/novadb/internal/bufferpool"
	"github.com/tuannm99/novadb/internal/heap"
	"github.com/tuannm99/novadb/internal/storage"
	"github.com/tuannm99/novadb/internal/types"
)

// TableInfo is the persisted description of one table.
type TableInfo struct {
	Name        string        `json:"name"`
	Schema      *types.Schema `json:"schema"`
	FirstPageID uint32        `json:"first_page_id"`
	LastPageID  uint32        `json:"last_page_id"`
	Indexes     []string      `json:"indexes"`
}

// IndexInfo is the persisted description of one B+-tree index. ID is a
// stable identity stamped at creation, independent of Name, so external
// tooling can track an index across a future rename without relying on
// name equality.
type IndexInfo struct {
	ID              uuid.UUID     `json:"id"`
	Name            string        `json:"name"`
	Table           string        `json:"table"`
	KeyColumns      []int         `json:"key_columns"`
	KeySchema       *types.Schema `json:"key_schema"`
	RootPageID      uint32        `json:"root_page_id"`
	LeafMaxSize     int           `json:"leaf_max_size"`
	InternalMaxSize int           `json:"internal_max_size"`
}

type snapshot struct {
	Tables  []TableInfo `json:"tables"`
	Indexes []IndexInfo `json:"indexes"`
}

type tableEntry struct {
	info  TableInfo
	table *heap.Table
	pool  *bufferpool.Pool
}

type indexEntry struct {
	info IndexInfo
	tree *btree.Tree
	pool *bufferpool.Pool
}

// Catalog is the name -> object registry for one open database.
type Catalog struct {
	mu sync.Mutex

	dm       *storage.DiskManager
	metaPath string
	poolSize int
	replK    int
	log      *zap.SugaredLogger

	tables  map[string]*tableEntry
	indexes map[string]*indexEntry
}

// Open attaches a Catalog to dm, reloading table/index metadata from
// metaPath if it exists (and reattaching every table/index to its
// existing page chain), or starting empty otherwise.
func Open(dm *storage.DiskManager, metaPath string, poolSize, replacerK int, log *zap.SugaredLogger) (*Catalog, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	c := &Catalog{
		dm:       dm,
		metaPath: metaPath,
		poolSize: poolSize,
		replK:    replacerK,
		log:      log,
		tables:   make(map[string]*tableEntry),
		indexes:  make(map[string]*indexEntry),
	}

	raw, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("catalog: read %s: %w", metaPath, err)
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", metaPath, err)
	}
	for _, ti := range snap.Tables {
		pool := bufferpool.NewPool(dm, poolSize, replacerK)
		t := heap.OpenTable(ti.Name, ti.Schema, pool, ti.FirstPageID, ti.LastPageID)
		c.tables[ti.Name] = &tableEntry{info: ti, table: t, pool: pool}
	}
	for _, ii := range snap.Indexes {
		pool := bufferpool.NewPool(dm, poolSize, replacerK)
		tree := btree.OpenTree(pool, ii.KeySchema, ii.LeafMaxSize, ii.InternalMaxSize, ii.RootPageID)
		c.indexes[ii.Name] = &indexEntry{info: ii, tree: tree, pool: pool}
	}
	return c, nil
}

// CreateTable creates a new, empty table and persists the catalog.
func (c *Catalog) CreateTable(name string, schema *types.Schema) (*heap.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tables[name]; ok {
		return nil, fmt.Errorf("catalog: table %q already exists", name)
	}

	pool := bufferpool.NewPool(c.dm, c.poolSize, c.replK)
	table, err := heap.NewTable(name, schema, pool)
	if err != nil {
		return nil, err
	}

	entry := &tableEntry{
		info: TableInfo{
			Name:        name,
			Schema:      schema,
			FirstPageID: table.FirstPageID(),
			LastPageID:  table.LastPageID(),
		},
		table: table,
		pool:  pool,
	}
	c.tables[name] = entry

	if err := c.persistLocked(); err != nil {
		c.log.Warnw("catalog: persist after create table failed", "table", name, "err", err)
	}
	return table, nil
}

// Table looks up an open table by name.
func (c *Catalog) Table(name string) (*heap.Table, *TableInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.tables[name]
	if !ok {
		return nil, nil, false
	}
	info := e.info
	return e.table, &info, true
}

// TableNames lists every table in the catalog.
func (c *Catalog) TableNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.tables))
	for n := range c.tables {
		names = append(names, n)
	}
	return names
}

// CreateIndex builds a new B+-tree index over table's columns at
// keyColumns (0-based indexes into the table's schema) and backfills it
// with one entry per visible row already in the table.
func (c *Catalog) CreateIndex(name, tableName string, keyColumns []int) (*btree.Tree, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.indexes[name]; ok {
		return nil, fmt.Errorf("catalog: index %q already exists", name)
	}
	tbl, ok := c.tables[tableName]
	if !ok {
		return nil, fmt.Errorf("catalog: table %q does not exist", tableName)
	}

	keySchema := tbl.info.Schema.Project(keyColumns)
	leafMax, internalMax := btree.DefaultCapacities(keySchema)

	pool := bufferpool.NewPool(c.dm, c.poolSize, c.replK)
	tree := btree.NewTree(pool, keySchema, leafMax, internalMax)

	if err := backfillIndex(tbl.table, tree, keyColumns, keySchema); err != nil {
		return nil, fmt.Errorf("catalog: backfill index %q: %w", name, err)
	}

	entry := &indexEntry{
		info: IndexInfo{
			ID:              uuid.New(),
			Name:            name,
			Table:           tableName,
			KeyColumns:      keyColumns,
			KeySchema:       keySchema,
			LeafMaxSize:     leafMax,
			InternalMaxSize: internalMax,
		},
		tree: tree,
		pool: pool,
	}
	c.indexes[name] = entry
	tbl.info.Indexes = append(tbl.info.Indexes, name)

	if err := c.persistLocked(); err != nil {
		c.log.Warnw("catalog: persist after create index failed", "index", name, "err", err)
	}
	return tree, nil
}

// backfillIndex populates tree with one entry per visible (non-deleted)
// row already in tbl, projecting each row onto keyColumns to build the
// index key. Run once, at CREATE INDEX time; nothing keeps the index in
// sync with DML after that (see DESIGN.md).
func backfillIndex(tbl *heap.Table, tree *btree.Tree, keyColumns []int, keySchema *types.Schema) error {
	it := tbl.Scan()
	defer it.Close()

	for {
		rid, meta, tuple, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if meta.IsDeleted {
			continue
		}
		keyValues := make([]types.Value, len(keyColumns))
		for i, col := range keyColumns {
			keyValues[i] = tuple.Values[col]
		}
		key := types.NewTuple(keySchema, keyValues)
		if err := tree.Insert(key, rid); err != nil {
			return err
		}
	}
}

// Index looks up an open index by name.
func (c *Catalog) Index(name string) (*btree.Tree, *IndexInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.indexes[name]
	if !ok {
		return nil, nil, false
	}
	info := e.info
	return e.tree, &info, true
}

// IndexesOn returns the names of every index defined on tableName.
func (c *Catalog) IndexesOn(tableName string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.tables[tableName]
	if !ok {
		return nil
	}
	return append([]string(nil), e.info.Indexes...)
}

// Sync flushes every table/index's buffer pool and persists the catalog
// with up-to-date page-chain bookkeeping.
func (c *Catalog) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persistLocked()
}

func (c *Catalog) persistLocked() error {
	snap := snapshot{}
	for _, e := range c.tables {
		e.info.FirstPageID = e.table.FirstPageID()
		e.info.LastPageID = e.table.LastPageID()
		if err := e.pool.FlushAllPages(); err != nil {
			return err
		}
		snap.Tables = append(snap.Tables, e.info)
	}
	for _, e := range c.indexes {
		e.info.RootPageID = e.tree.RootPageID()
		if err := e.pool.FlushAllPages(); err != nil {
			return err
		}
		snap.Indexes = append(snap.Indexes, e.info)
	}

	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: marshal snapshot: %w", err)
	}
	tmp := c.metaPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("catalog: write %s: %w", tmp, err)
	}
	return os.Rename(tmp, c.metaPath)
}

// Close syncs the catalog (flushing every table and index pool) and closes
// every table.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.persistLocked()
	for _, e := range c.tables {
		if ferr := e.table.Close(); ferr != nil && err == nil {
			err = ferr
		}
	}
	return err
}
