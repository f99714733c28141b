package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"

	_ "modernc.org/sqlite" // registers the pure-Go sqlite driver
)

func init() {
	Register(DriverSQLite, func() Store { return NewSQLite() })
}

// SQLite is the default backend, built on the CGO-free modernc driver.
type SQLite struct {
	base
}

// NewSQLite returns an unconnected SQLite backend.
func NewSQLite() *SQLite {
	return &SQLite{}
}

// sqlitePragmas are applied to every pooled connection through the DSN.
// WAL journaling, relaxed synchronous mode, and the enlarged page cache
// favor bulk load throughput.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"cache_size(-64000)",
	"temp_store(MEMORY)",
	"busy_timeout(5000)",
}

// memorySeq distinguishes in-memory databases from one another. A plain
// ":memory:" DSN would give every pooled connection its own empty copy.
var memorySeq atomic.Int64

// Connect opens or creates the database file and prepares the catalog.
func (s *SQLite) Connect(ctx context.Context, cfg Config) error {
	params := make([]string, 0, len(sqlitePragmas))
	for _, pragma := range sqlitePragmas {
		params = append(params, "_pragma="+pragma)
	}
	var dsn string
	if cfg.Path == "" || cfg.Path == ":memory:" {
		dsn = fmt.Sprintf("file:sheetsqlmem%d?mode=memory&cache=shared&%s",
			memorySeq.Add(1), strings.Join(params, "&"))
	} else {
		dsn = "file:" + cfg.Path + "?" + strings.Join(params, "&")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect to sqlite database: %w", err)
	}
	s.db = db
	return s.ensureCatalog(ctx)
}

// Dialect returns the registered driver name.
func (s *SQLite) Dialect() string {
	return DriverSQLite
}

// MaxBindParams reports the conservative SQLite bind parameter limit.
func (s *SQLite) MaxBindParams() int {
	return 999
}

// CreateTable creates name with SQLite type affinities inside tx.
func (s *SQLite) CreateTable(ctx context.Context, tx *sql.Tx, name string, specs []ColumnSpec) error {
	return s.createTable(ctx, tx, name, specs, s.typeName)
}

// typeName maps logical column types to SQLite storage classes. Dates are
// kept as ISO-8601 text and booleans as 0/1 integers.
func (s *SQLite) typeName(t ColumnType) string {
	switch t {
	case ColumnTypeInteger, ColumnTypeBoolean:
		return "INTEGER"
	case ColumnTypeReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// TableNames lists user tables from sqlite_master, excluding SQLite
// internals and the catalog.
func (s *SQLite) TableNames(ctx context.Context) ([]string, error) {
	query := `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name <> ?
		ORDER BY name`
	rows, err := s.db.QueryContext(ctx, query, CatalogTableName)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return names, nil
}

var _ Store = (*SQLite)(nil)
