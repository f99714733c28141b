package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CatalogTableName is the table both backends use to record which source
// file and sheet every loaded table came from. It is excluded from
// TableNames listings.
const CatalogTableName = "_sheetsql_catalog"

const createCatalogSQL = `CREATE TABLE IF NOT EXISTS "` + CatalogTableName + `" (
	table_name TEXT PRIMARY KEY,
	source_file TEXT NOT NULL,
	sheet_name TEXT NOT NULL,
	sheet_index BIGINT NOT NULL,
	row_count BIGINT NOT NULL,
	columns TEXT NOT NULL,
	loaded_at TEXT NOT NULL
)`

const upsertCatalogSQL = `INSERT INTO "` + CatalogTableName + `"
	(table_name, source_file, sheet_name, sheet_index, row_count, columns, loaded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (table_name) DO UPDATE SET
	source_file = excluded.source_file,
	sheet_name = excluded.sheet_name,
	sheet_index = excluded.sheet_index,
	row_count = excluded.row_count,
	columns = excluded.columns,
	loaded_at = excluded.loaded_at`

const selectCatalogSQL = `SELECT table_name, source_file, sheet_name, sheet_index, row_count, columns, loaded_at
	FROM "` + CatalogTableName + `"
	ORDER BY source_file, sheet_index, table_name`

// base carries the database handle and the SQL shared by both dialects.
// Backend structs embed it and supply the dialect-specific pieces.
type base struct {
	db *sql.DB
}

// DB exposes the raw database handle.
func (b *base) DB() *sql.DB {
	return b.db
}

// Close releases the underlying database handle.
func (b *base) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func (b *base) ensureCatalog(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, createCatalogSQL); err != nil {
		return fmt.Errorf("failed to create catalog table: %w", err)
	}
	return nil
}

// createTable builds and runs CREATE TABLE with the given dialect type
// mapper. Callers drop any previous table first, so a plain CREATE is used.
func (b *base) createTable(ctx context.Context, tx *sql.Tx, name string, specs []ColumnSpec, typeName func(ColumnType) string) error {
	if len(specs) == 0 {
		return fmt.Errorf("failed to create table %s: no columns", name)
	}
	cols := make([]string, 0, len(specs))
	for _, spec := range specs {
		cols = append(cols, fmt.Sprintf("%s %s", QuoteIdent(spec.Name), typeName(spec.Type)))
	}
	query := fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(name), strings.Join(cols, ", "))
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	return nil
}

// DropTable drops name inside tx if it exists.
func (b *base) DropTable(ctx context.Context, tx *sql.Tx, name string) error {
	query := fmt.Sprintf("DROP TABLE IF EXISTS %s", QuoteIdent(name))
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	return nil
}

// InsertChunk appends rows with one multi-row INSERT statement. Every row
// must have exactly columns values; the caller keeps len(rows)*columns
// under MaxBindParams.
func (b *base) InsertChunk(ctx context.Context, tx *sql.Tx, name string, columns int, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", columns), ", ") + ")"
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(QuoteIdent(name))
	sb.WriteString(" VALUES ")
	args := make([]any, 0, len(rows)*columns)
	for i, row := range rows {
		if len(row) != columns {
			return fmt.Errorf("failed to insert into %s: row %d has %d values, want %d", name, i, len(row), columns)
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(placeholder)
		args = append(args, row...)
	}
	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", name, err)
	}
	return nil
}

// UpsertCatalogEntry inserts or replaces the attribution row for a table.
func (b *base) UpsertCatalogEntry(ctx context.Context, tx *sql.Tx, entry CatalogEntry) error {
	cols, err := json.Marshal(entry.Columns)
	if err != nil {
		return fmt.Errorf("failed to encode catalog columns: %w", err)
	}
	loadedAt := entry.LoadedAt
	if loadedAt.IsZero() {
		loadedAt = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx, upsertCatalogSQL,
		entry.TableName, entry.SourceFile, entry.SheetName, entry.SheetIndex,
		entry.RowCount, string(cols), loadedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record catalog entry for %s: %w", entry.TableName, err)
	}
	return nil
}

// DeleteCatalogEntries removes attribution rows for the given tables.
func (b *base) DeleteCatalogEntries(ctx context.Context, tx *sql.Tx, tables []string) error {
	if len(tables) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(tables)), ", ")
	query := fmt.Sprintf(`DELETE FROM "%s" WHERE table_name IN (%s)`, CatalogTableName, placeholders)
	args := make([]any, 0, len(tables))
	for _, t := range tables {
		args = append(args, t)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete catalog entries: %w", err)
	}
	return nil
}

// CatalogEntries returns all attribution rows ordered by source file and
// sheet index.
func (b *base) CatalogEntries(ctx context.Context) ([]CatalogEntry, error) {
	rows, err := b.db.QueryContext(ctx, selectCatalogSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	defer rows.Close()

	var entries []CatalogEntry
	for rows.Next() {
		var entry CatalogEntry
		var cols, loadedAt string
		if err := rows.Scan(&entry.TableName, &entry.SourceFile, &entry.SheetName,
			&entry.SheetIndex, &entry.RowCount, &cols, &loadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		if err := json.Unmarshal([]byte(cols), &entry.Columns); err != nil {
			return nil, fmt.Errorf("failed to decode catalog columns for %s: %w", entry.TableName, err)
		}
		if ts, err := time.Parse(time.RFC3339, loadedAt); err == nil {
			entry.LoadedAt = ts
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return entries, nil
}

// QuoteIdent double-quotes an identifier for safe use in SQL text.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
