// Package internal wires together a complete database instance: the
// shared disk manager, the catalog, and the statement-activity tracker
// used when closing the database.
package internal

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tuannm99/novadb/internal/bufferpool"
	"github.com/tuannm99/novadb/internal/catalog"
	"github.com/tuannm99/novadb/internal/storage"
)

// Database is the top-level façade: one DiskManager (and therefore one
// file and one page-id space) shared by every table and index's own
// BufferPool, fronted by a Catalog.
type Database struct {
	Disk    *storage.DiskManager
	Catalog *catalog.Catalog
	Log     *zap.SugaredLogger

	// activity tracks in-flight statements so Close can warn about a
	// shutdown that raced a running query instead of corrupting state
	// silently.
	activity atomic.Int64
}

// Open opens (or creates) the database file at cfg.Storage.File and its
// catalog sidecar (the file's name with its extension replaced by
// .catalog.json), wiring a zap logger for non-fatal diagnostics in the
// buffer-pool and catalog layers.
func Open(cfg *Config) (*Database, error) {
	log, err := newLogger(cfg.Server.Debug)
	if err != nil {
		return nil, fmt.Errorf("internal: build logger: %w", err)
	}
	sugar := log.Sugar()
	bufferpool.SetLogger(sugar)

	dm, err := storage.Open(cfg.Storage.File)
	if err != nil {
		return nil, err
	}

	poolSize := cfg.Storage.BufferPoolFrames
	if poolSize <= 0 {
		poolSize = 64
	}
	replK := cfg.Storage.ReplacerK
	if replK <= 0 {
		replK = 2
	}

	metaPath := catalogPath(cfg.Storage.File)
	cat, err := catalog.Open(dm, metaPath, poolSize, replK, sugar)
	if err != nil {
		_ = dm.Close()
		return nil, err
	}

	return &Database{
		Disk:    dm,
		Catalog: cat,
		Log:     sugar,
	}, nil
}

func catalogPath(dbFile string) string {
	dir, base := filepath.Split(dbFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, name+".catalog.json")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// BeginStatement marks one statement as in flight. Call EndStatement
// when it completes (typically via defer).
func (db *Database) BeginStatement() { db.activity.Add(1) }

// EndStatement marks a statement as complete.
func (db *Database) EndStatement() { db.activity.Add(-1) }

// Close flushes and persists the catalog and closes the underlying file.
// It logs (rather than blocks on) statements still in flight, since this
// engine has no transaction manager to coordinate a clean drain.
func (db *Database) Close() error {
	if n := db.activity.Load(); n > 0 {
		db.Log.Warnw("closing database with statements still in flight", "count", n)
	}
	if err := db.Catalog.Close(); err != nil {
		return err
	}
	return db.Disk.Close()
}
