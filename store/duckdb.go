package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb" // registers the duckdb driver
)

func init() {
	Register(DriverDuckDB, func() Store { return NewDuckDB() })
}

// DuckDB is the columnar backend. An empty path opens an in-memory
// database.
type DuckDB struct {
	base
}

// NewDuckDB returns an unconnected DuckDB backend.
func NewDuckDB() *DuckDB {
	return &DuckDB{}
}

// Connect opens or creates the database file and prepares the catalog.
func (d *DuckDB) Connect(ctx context.Context, cfg Config) error {
	path := cfg.Path
	if path == ":memory:" {
		path = ""
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect to duckdb database: %w", err)
	}
	d.db = db
	return d.ensureCatalog(ctx)
}

// Dialect returns the registered driver name.
func (d *DuckDB) Dialect() string {
	return DriverDuckDB
}

// MaxBindParams reports the batch cap for multi-row inserts. DuckDB has
// no documented hard limit; this keeps statements a sane size.
func (d *DuckDB) MaxBindParams() int {
	return 131072
}

// CreateTable creates name with DuckDB column types inside tx.
func (d *DuckDB) CreateTable(ctx context.Context, tx *sql.Tx, name string, specs []ColumnSpec) error {
	return d.createTable(ctx, tx, name, specs, d.typeName)
}

// typeName maps logical column types to DuckDB types. Dates stay
// ISO-8601 text so both backends store identical values.
func (d *DuckDB) typeName(t ColumnType) string {
	switch t {
	case ColumnTypeInteger:
		return "BIGINT"
	case ColumnTypeReal:
		return "DOUBLE"
	case ColumnTypeBoolean:
		return "BOOLEAN"
	default:
		return "VARCHAR"
	}
}

// TableNames lists user tables from information_schema, excluding the
// catalog.
func (d *DuckDB) TableNames(ctx context.Context) ([]string, error) {
	query := `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'main' AND table_name <> ?
		ORDER BY table_name`
	rows, err := d.db.QueryContext(ctx, query, CatalogTableName)
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

var _ Store = (*DuckDB)(nil)
