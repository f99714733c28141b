package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ColumnType represents the logical type inferred for a loaded column.
// Backends map logical types to their own SQL type names.
type ColumnType int

const (
	// ColumnTypeText is the fallback type; any cell can be stored as text.
	ColumnTypeText ColumnType = iota
	// ColumnTypeInteger holds whole numbers.
	ColumnTypeInteger
	// ColumnTypeReal holds floating point numbers.
	ColumnTypeReal
	// ColumnTypeDate holds calendar dates or timestamps, stored as ISO-8601 text.
	ColumnTypeDate
	// ColumnTypeBoolean holds true/false values.
	ColumnTypeBoolean
)

// String returns the logical type name.
func (t ColumnType) String() string {
	switch t {
	case ColumnTypeInteger:
		return "INTEGER"
	case ColumnTypeReal:
		return "REAL"
	case ColumnTypeDate:
		return "DATE"
	case ColumnTypeBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// ParseColumnType converts a logical type name back to a ColumnType.
// Unknown names fall back to ColumnTypeText.
func ParseColumnType(s string) ColumnType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INTEGER":
		return ColumnTypeInteger
	case "REAL":
		return ColumnTypeReal
	case "DATE":
		return ColumnTypeDate
	case "BOOLEAN":
		return ColumnTypeBoolean
	default:
		return ColumnTypeText
	}
}

// MarshalJSON encodes the type as its logical name.
func (t ColumnType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a logical type name.
func (t *ColumnType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseColumnType(s)
	return nil
}

// ColumnSpec describes one column of a loaded table.
type ColumnSpec struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// CatalogEntry records which source file and sheet a loaded table came
// from. Entries live in the catalog table and survive process restarts.
type CatalogEntry struct {
	TableName  string
	SourceFile string
	SheetName  string
	SheetIndex int
	RowCount   int64
	Columns    []ColumnSpec
	LoadedAt   time.Time
}

// Config selects and locates a backend.
type Config struct {
	// Driver is the registered backend name. Empty selects DriverSQLite.
	Driver string `koanf:"driver"`
	// Path is the database file. Empty or ":memory:" opens an in-memory
	// database where the backend supports one.
	Path string `koanf:"path"`
}

// Registered driver names for the bundled backends.
const (
	DriverSQLite = "sqlite"
	DriverDuckDB = "duckdb"
)

// Store is a relational backend that sheetsql loads tables into.
// Implementations are safe for use by one writer goroutine plus any
// number of readers going through DB().
type Store interface {
	// Connect opens the backend described by cfg and prepares the
	// catalog table. It must be called once before any other method.
	Connect(ctx context.Context, cfg Config) error
	// Close releases the underlying database handle.
	Close() error
	// DB exposes the raw database handle for callers to run SQL against.
	DB() *sql.DB
	// Dialect returns the registered driver name.
	Dialect() string
	// MaxBindParams reports the backend's bind parameter limit per
	// statement, which caps multi-row insert batch sizes.
	MaxBindParams() int

	// CreateTable creates name with dialect-mapped column types inside tx.
	CreateTable(ctx context.Context, tx *sql.Tx, name string, specs []ColumnSpec) error
	// DropTable drops name inside tx if it exists.
	DropTable(ctx context.Context, tx *sql.Tx, name string) error
	// InsertChunk appends rows to name with a single multi-row statement.
	InsertChunk(ctx context.Context, tx *sql.Tx, name string, columns int, rows [][]any) error
	// TableNames lists user tables, excluding the catalog and any
	// backend-internal tables, sorted by name.
	TableNames(ctx context.Context) ([]string, error)

	// UpsertCatalogEntry inserts or replaces the attribution row for a table.
	UpsertCatalogEntry(ctx context.Context, tx *sql.Tx, entry CatalogEntry) error
	// DeleteCatalogEntries removes attribution rows for the given tables.
	DeleteCatalogEntries(ctx context.Context, tx *sql.Tx, tables []string) error
	// CatalogEntries returns all attribution rows ordered by source file
	// and sheet index.
	CatalogEntries(ctx context.Context) ([]CatalogEntry, error)
}

// Factory creates an unconnected Store.
type Factory func() Store

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a backend available under the given driver name.
// Backends call it from init; registering a duplicate name panics.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("sheetsql store: driver %q registered twice", name))
	}
	registry[name] = factory
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates and connects the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}
	registryMu.RLock()
	factory, ok := registry[cfg.Driver]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownDriverError{Driver: cfg.Driver, Available: Drivers()}
	}
	st := factory()
	if err := st.Connect(ctx, cfg); err != nil {
		return nil, err
	}
	return st, nil
}

// UnknownDriverError is returned by Open when cfg.Driver names no
// registered backend.
type UnknownDriverError struct {
	Driver    string
	Available []string
}

// Error implements the error interface.
func (e *UnknownDriverError) Error() string {
	return fmt.Sprintf("sheetsql store: unknown driver %q (available: %s)",
		e.Driver, strings.Join(e.Available, ", "))
}
