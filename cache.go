package sheetsql

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/nao1215/sheetsql/store"
)

// cacheIndex is the in-memory view of the catalog: which tables exist
// and which source file each came from. It is rebuilt from the store's
// catalog at Open, consulted for cache hits, and updated as tables
// load. All methods are safe for concurrent use.
type cacheIndex struct {
	mu      sync.RWMutex
	byTable map[string]store.CatalogEntry
}

func newCacheIndex() *cacheIndex {
	return &cacheIndex{byTable: make(map[string]store.CatalogEntry)}
}

// rebuild replaces the index with the catalog entries whose tables
// still exist in the store and returns the names of stale entries,
// which the caller removes from the catalog.
func (x *cacheIndex) rebuild(entries []store.CatalogEntry, existing map[string]bool) []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.byTable = make(map[string]store.CatalogEntry, len(entries))
	var stale []string
	for _, entry := range entries {
		if !existing[entry.TableName] {
			stale = append(stale, entry.TableName)
			continue
		}
		x.byTable[entry.TableName] = entry
	}
	return stale
}

// put records a freshly loaded table.
func (x *cacheIndex) put(entry store.CatalogEntry) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.byTable[entry.TableName] = entry
}

// remove forgets the given tables.
func (x *cacheIndex) remove(tables []string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, name := range tables {
		delete(x.byTable, name)
	}
}

// tables returns all known table names, sorted.
func (x *cacheIndex) tables() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	names := make([]string, 0, len(x.byTable))
	for name := range x.byTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// entry looks up one table.
func (x *cacheIndex) entry(name string) (store.CatalogEntry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	entry, ok := x.byTable[name]
	return entry, ok
}

// entriesForFile returns the tables attributed to one source file, in
// sheet order. An empty result means the file is not cached.
func (x *cacheIndex) entriesForFile(path string) []store.CatalogEntry {
	x.mu.RLock()
	defer x.mu.RUnlock()
	var entries []store.CatalogEntry
	for _, entry := range x.byTable {
		if entry.SourceFile == path {
			entries = append(entries, entry)
		}
	}
	sortEntries(entries)
	return entries
}

// entriesUnder returns the tables attributed to a path: those from the
// exact file, plus those from files directly inside it when the path is
// a directory. Refresh drops exactly this set.
func (x *cacheIndex) entriesUnder(path string) []store.CatalogEntry {
	x.mu.RLock()
	defer x.mu.RUnlock()
	var entries []store.CatalogEntry
	for _, entry := range x.byTable {
		if entry.SourceFile == path || filepath.Dir(entry.SourceFile) == path {
			entries = append(entries, entry)
		}
	}
	sortEntries(entries)
	return entries
}

func sortEntries(entries []store.CatalogEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SourceFile != entries[j].SourceFile {
			return entries[i].SourceFile < entries[j].SourceFile
		}
		if entries[i].SheetIndex != entries[j].SheetIndex {
			return entries[i].SheetIndex < entries[j].SheetIndex
		}
		return entries[i].TableName < entries[j].TableName
	})
}
