package sheetsql

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/nao1215/sheetsql/store"
)

// DB couples a relational store with the spreadsheet load pipeline and
// the cache index rebuilt from the store's catalog. One DB serializes
// its writers; reads through Tables, Schema, and DB are safe at any
// time.
type DB struct {
	st    store.Store
	index *cacheIndex
	cfg   config
	mu    sync.Mutex
}

// Open wires a connected store into a DB. The cache index is rebuilt
// from the store's catalog, so tables loaded by earlier processes are
// known immediately; catalog rows whose tables have vanished are
// pruned. The DB takes ownership of the store and Close closes it.
func Open(ctx context.Context, st store.Store, opts ...Option) (*DB, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	db := &DB{st: st, index: newCacheIndex(), cfg: cfg}

	entries, err := st.CatalogEntries(ctx)
	if err != nil {
		return nil, err
	}
	names, err := st.TableNames(ctx)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(names))
	for _, name := range names {
		existing[name] = true
	}
	stale := db.index.rebuild(entries, existing)
	if len(stale) > 0 {
		if err := db.pruneCatalog(ctx, stale); err != nil {
			return nil, err
		}
		cfg.logger.Debug("pruned stale catalog entries", "tables", stale)
	}
	cfg.logger.Debug("cache index ready", "tables", len(entries)-len(stale), "driver", st.Dialect())
	return db, nil
}

// Load ingests the spreadsheet file or directory at path. Files whose
// tables are already cached are reported without re-extraction; the
// rest are extracted in parallel and loaded one transaction per table.
// The returned error is non-nil only for path-scoped failures and
// context cancellation; per-file and per-table failures are collected
// in the summary.
func (db *DB) Load(ctx context.Context, path string) (*LoadSummary, error) {
	return db.run(ctx, path, true)
}

// Refresh drops every table previously loaded from path and ingests it
// again from scratch, bypassing the cache. Tables from other sources
// are untouched. Refreshing a path that was never loaded behaves like
// Load.
func (db *DB) Refresh(ctx context.Context, path string) (*LoadSummary, error) {
	return db.run(ctx, path, false)
}

func (db *DB) run(ctx context.Context, path string, useCache bool) (*LoadSummary, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	files, err := discoverSources(abs)
	if err != nil {
		return nil, err
	}
	if !useCache {
		if err := db.dropAttributed(ctx, abs); err != nil {
			return nil, err
		}
	}
	summary, err := loadBatch(ctx, db.st, db.index, files, db.cfg, useCache)
	if err != nil {
		return nil, err
	}
	db.cfg.logger.Info("load complete", "path", path,
		"tables", len(summary.Tables), "rows", summary.TotalRows(), "errors", len(summary.Errors))
	return summary, nil
}

// dropAttributed removes, in one transaction, every table the catalog
// attributes to path, together with the catalog rows.
func (db *DB) dropAttributed(ctx context.Context, abs string) error {
	entries := db.index.entriesUnder(abs)
	if len(entries) == 0 {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.TableName)
	}
	tx, err := db.st.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	for _, name := range names {
		if err := db.st.DropTable(ctx, tx, name); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreWrite, err)
		}
	}
	if err := db.st.DeleteCatalogEntries(ctx, tx, names); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	db.index.remove(names)
	db.cfg.logger.Debug("dropped tables for refresh", "path", abs, "tables", len(names))
	return nil
}

// pruneCatalog deletes catalog rows for tables that no longer exist.
func (db *DB) pruneCatalog(ctx context.Context, stale []string) error {
	tx, err := db.st.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := db.st.DeleteCatalogEntries(ctx, tx, stale); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	return nil
}

// Tables returns the loaded table names, sorted. The listing comes from
// the cache index; the store is not consulted.
func (db *DB) Tables() []string {
	return db.index.tables()
}

// Schema returns the recorded columns and row count of one loaded
// table, or ErrNotFound.
func (db *DB) Schema(name string) (*TableInfo, error) {
	entry, ok := db.index.entry(name)
	if !ok {
		return nil, fmt.Errorf("%w: table %s", ErrNotFound, name)
	}
	info := tableInfoFromEntry(entry)
	return &info, nil
}

// DB exposes the store's raw database handle so callers can run SQL
// against the loaded tables with database/sql.
func (db *DB) DB() *sql.DB {
	return db.st.DB()
}

// Close closes the underlying store.
func (db *DB) Close() error {
	return db.st.Close()
}
