package sheetsql

import (
	"context"
	"fmt"

	"github.com/nao1215/sheetsql/store"
)

// loadBatch runs one Load or Refresh over already discovered files.
// Extraction fans out over the worker pool while this single goroutine
// consumes results in discovery order, assigns final table names, and
// writes tables one transaction at a time. With useCache set, files the
// index already attributes tables to are reported without re-extraction;
// their names are reserved in the same ordered pass, so suffix
// assignment matches a cold load of the same directory.
func loadBatch(ctx context.Context, st store.Store, index *cacheIndex, files []sourceFile, cfg config, useCache bool) (*LoadSummary, error) {
	summary := &LoadSummary{}
	hits := make(map[int][]store.CatalogEntry)
	var misses []sourceFile
	for _, src := range files {
		if useCache {
			if entries := index.entriesForFile(src.path); len(entries) > 0 {
				hits[src.index] = entries
				continue
			}
		}
		misses = append(misses, src)
	}
	cfg.logger.Debug("load batch planned", "files", len(files), "cached", len(hits))

	reseq := newResequencer(extractFiles(ctx, misses, cfg))
	alloc := newNameAllocator()
	// Tables loaded from sources outside this batch keep their names;
	// claiming must route around them. Refresh has already dropped this
	// batch's own entries, so its names resolve as on a cold load.
	for _, name := range index.tables() {
		alloc.reserve(name)
	}
	for _, src := range files {
		if entries, ok := hits[src.index]; ok {
			cfg.logger.Debug("cache hit", "file", src.path, "tables", len(entries))
			for _, entry := range entries {
				alloc.reserve(entry.TableName)
				summary.Tables = append(summary.Tables, tableInfoFromEntry(entry))
			}
			continue
		}
		res, ok := reseq.next(src.index)
		if !ok {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			break
		}
		if res.err != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			cfg.logger.Warn("file failed", "file", src.path, "error", res.err)
			summary.Errors = append(summary.Errors, &FileError{File: src.path, Err: res.err})
			continue
		}
		for _, buf := range res.buffers {
			name := alloc.claim(buf.baseName)
			entry, err := loadTable(ctx, st, name, buf, cfg)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				cfg.logger.Warn("table failed", "file", src.path, "table", name, "error", err)
				summary.Errors = append(summary.Errors, &FileError{File: src.path, Err: err})
				continue
			}
			index.put(entry)
			summary.Tables = append(summary.Tables, tableInfoFromEntry(entry))
			cfg.logger.Debug("table loaded", "table", name, "rows", entry.RowCount)
		}
	}
	return summary, nil
}

// loadTable writes one buffer as one transaction: drop any previous
// table of that name, create, append in chunks, record the catalog row,
// commit. The batch size respects both the configured chunk size and
// the backend's bind parameter limit.
func loadTable(ctx context.Context, st store.Store, name string, buf tableBuffer, cfg config) (store.CatalogEntry, error) {
	tx, err := st.DB().BeginTx(ctx, nil)
	if err != nil {
		return store.CatalogEntry{}, fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := st.DropTable(ctx, tx, name); err != nil {
		return store.CatalogEntry{}, fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	if err := st.CreateTable(ctx, tx, name, buf.columns); err != nil {
		return store.CatalogEntry{}, fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}

	chunkRows := cfg.chunkSize
	if limit := st.MaxBindParams() / len(buf.columns); limit < chunkRows {
		chunkRows = limit
	}
	if chunkRows < 1 {
		chunkRows = 1
	}
	chunk := make([][]any, 0, chunkRows)
	for _, row := range buf.rows {
		vals, err := coerceRow(row, buf.columns)
		if err != nil {
			return store.CatalogEntry{}, fmt.Errorf("table %s: %w", name, err)
		}
		chunk = append(chunk, vals)
		if len(chunk) == chunkRows {
			if err := st.InsertChunk(ctx, tx, name, len(buf.columns), chunk); err != nil {
				return store.CatalogEntry{}, fmt.Errorf("%w: %v", ErrStoreWrite, err)
			}
			chunk = chunk[:0]
		}
	}
	if len(chunk) > 0 {
		if err := st.InsertChunk(ctx, tx, name, len(buf.columns), chunk); err != nil {
			return store.CatalogEntry{}, fmt.Errorf("%w: %v", ErrStoreWrite, err)
		}
	}

	entry := store.CatalogEntry{
		TableName:  name,
		SourceFile: buf.src.path,
		SheetName:  buf.sheetName,
		SheetIndex: buf.sheetIndex,
		RowCount:   int64(len(buf.rows)),
		Columns:    buf.columns,
	}
	if err := st.UpsertCatalogEntry(ctx, tx, entry); err != nil {
		return store.CatalogEntry{}, fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	if err := tx.Commit(); err != nil {
		return store.CatalogEntry{}, fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	return entry, nil
}

// coerceRow converts one row of cells into bind values for the declared
// column types.
func coerceRow(row []cell, specs []store.ColumnSpec) ([]any, error) {
	vals := make([]any, len(specs))
	for j, spec := range specs {
		v, err := coerceCell(row[j], spec.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", spec.Name, err)
		}
		vals[j] = v
	}
	return vals, nil
}

// coerceCell converts a tagged cell into the bind value for a declared
// column type. The conversion is explicit and fallible; a cell produced
// by this pipeline's own inference always fits, so a conflict means the
// buffer and its declared schema disagree.
func coerceCell(c cell, t store.ColumnType) (any, error) {
	if c.kind == cellNull {
		return nil, nil
	}
	switch t {
	case store.ColumnTypeText:
		return c.raw, nil
	case store.ColumnTypeInteger:
		if c.kind == cellInteger {
			return c.integer, nil
		}
	case store.ColumnTypeReal:
		switch c.kind {
		case cellInteger:
			return float64(c.integer), nil
		case cellReal:
			return c.real, nil
		}
	case store.ColumnTypeDate:
		if c.kind == cellDate {
			return canonicalDate(c.date), nil
		}
	case store.ColumnTypeBoolean:
		switch {
		case c.kind == cellBool:
			return c.boolean, nil
		case c.kind == cellInteger && (c.integer == 0 || c.integer == 1):
			return c.integer == 1, nil
		}
	}
	return nil, fmt.Errorf("%w: %q into %s", ErrSchemaConflict, c.raw, t)
}

func tableInfoFromEntry(entry store.CatalogEntry) TableInfo {
	return TableInfo{
		Name:       entry.TableName,
		SourceFile: entry.SourceFile,
		SheetName:  entry.SheetName,
		RowCount:   entry.RowCount,
		Columns:    entry.Columns,
	}
}
