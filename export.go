package sheetsql

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/xuri/excelize/v2"

	"github.com/nao1215/sheetsql/store"
)

// Export writes every loaded table to dir in the selected format. CSV,
// TSV, and Parquet produce one file per table named after it; XLSX
// produces a single workbook with one sheet per table. The directory is
// created if missing and existing files are overwritten.
func (db *DB) Export(ctx context.Context, dir string, opts ...ExportOptions) error {
	options := NewExportOptions()
	if len(opts) > 0 {
		options = opts[0]
	}
	if options.Compression == CompressionBZ2 {
		return errors.New("bzip2 compression is not supported for writing")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tables := db.index.tables()
	db.cfg.logger.Debug("export start", "dir", dir,
		"format", options.Format.String(), "compression", options.Compression.String(), "tables", len(tables))

	if options.Format == ExportFormatXLSX {
		return db.exportXLSX(ctx, dir, tables, options.Compression)
	}
	for _, table := range tables {
		if err := db.exportTable(ctx, dir, table, options); err != nil {
			return fmt.Errorf("failed to export table %s: %w", table, err)
		}
	}
	return nil
}

func (db *DB) exportTable(ctx context.Context, dir, table string, options ExportOptions) error {
	header, rows, err := db.readTableRows(ctx, table)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, table+options.Format.Extension()+options.Compression.Extension())
	switch options.Format {
	case ExportFormatParquet:
		return db.writeParquet(path, table, header, rows, options.Compression)
	case ExportFormatTSV:
		return writeDelimited(path, '\t', header, rows, options.Compression)
	default:
		return writeDelimited(path, ',', header, rows, options.Compression)
	}
}

// readTableRows reads a table back in insertion order. Boolean columns
// are scanned back to Go bools, since backends that store them as 0/1
// integers would otherwise leak that representation into exports.
func (db *DB) readTableRows(ctx context.Context, table string) ([]string, [][]any, error) {
	rows, err := db.st.DB().QueryContext(ctx, "SELECT * FROM "+store.QuoteIdent(table))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var boolCols []int
	if entry, ok := db.index.entry(table); ok {
		for i, spec := range entry.Columns {
			if i < len(header) && spec.Type == store.ColumnTypeBoolean {
				boolCols = append(boolCols, i)
			}
		}
	}
	var out [][]any
	for rows.Next() {
		vals := make([]any, len(header))
		ptrs := make([]any, len(header))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		for _, i := range boolCols {
			if n, ok := vals[i].(int64); ok {
				vals[i] = n != 0
			}
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return header, out, nil
}

// writeDelimited writes one table as CSV or TSV, optionally compressed.
func writeDelimited(path string, comma rune, header []string, rows [][]any, compression CompressionType) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	wc, err := compression.newWriter(f)
	if err != nil {
		_ = f.Close()
		return err
	}

	w := csv.NewWriter(wc)
	w.Comma = comma
	writeErr := w.Write(header)
	for _, row := range rows {
		if writeErr != nil {
			break
		}
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = formatExportValue(v)
		}
		writeErr = w.Write(record)
	}
	if writeErr == nil {
		w.Flush()
		writeErr = w.Error()
	}
	if err := wc.Close(); writeErr == nil {
		writeErr = err
	}
	if err := f.Close(); writeErr == nil {
		writeErr = err
	}
	return writeErr
}

// writeParquet writes one table as a parquet file. Integer and Real
// columns keep their native arrow types; everything else is exported as
// strings, matching how dates and booleans round-trip through the
// delimited formats.
func (db *DB) writeParquet(path, table string, header []string, rows [][]any, compression CompressionType) error {
	fields := make([]arrow.Field, len(header))
	entry, _ := db.index.entry(table)
	for i, name := range header {
		fields[i] = arrow.Field{Name: name, Type: arrowTypeFor(entry.Columns, name), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()
	for _, row := range rows {
		for j, v := range row {
			appendArrowValue(builder.Field(j), v)
		}
	}
	rec := builder.NewRecord()
	defer rec.Release()
	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	wc, err := compression.newWriter(f)
	if err != nil {
		_ = f.Close()
		return err
	}
	chunk := int64(len(rows))
	if chunk == 0 {
		chunk = 1
	}
	writeErr := pqarrow.WriteTable(tbl, wc, chunk, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	if err := wc.Close(); writeErr == nil {
		writeErr = err
	}
	if err := f.Close(); writeErr == nil {
		writeErr = err
	}
	return writeErr
}

// arrowTypeFor picks the arrow type for a column from its recorded spec.
func arrowTypeFor(specs []store.ColumnSpec, name string) arrow.DataType {
	for _, spec := range specs {
		if spec.Name != name {
			continue
		}
		switch spec.Type {
		case store.ColumnTypeInteger:
			return arrow.PrimitiveTypes.Int64
		case store.ColumnTypeReal:
			return arrow.PrimitiveTypes.Float64
		}
		break
	}
	return arrow.BinaryTypes.String
}

// appendArrowValue appends one scanned database value to its column
// builder. Backends differ in what they hand back for booleans and
// numbers, so conversions stay permissive.
func appendArrowValue(b array.Builder, v any) {
	if v == nil {
		b.AppendNull()
		return
	}
	switch fb := b.(type) {
	case *array.Int64Builder:
		switch n := v.(type) {
		case int64:
			fb.Append(n)
		case int:
			fb.Append(int64(n))
		case float64:
			fb.Append(int64(n))
		default:
			fb.AppendNull()
		}
	case *array.Float64Builder:
		switch n := v.(type) {
		case float64:
			fb.Append(n)
		case int64:
			fb.Append(float64(n))
		default:
			fb.AppendNull()
		}
	case *array.StringBuilder:
		fb.Append(formatExportValue(v))
	default:
		b.AppendNull()
	}
}

// exportXLSX writes all tables as sheets of one workbook named
// tables.xlsx. Sheet names are capped to the workbook limit, with
// collision suffixes when truncation makes two tables coincide.
func (db *DB) exportXLSX(ctx context.Context, dir string, tables []string, compression CompressionType) error {
	wb := excelize.NewFile()
	defer wb.Close()

	alloc := newNameAllocator()
	for i, table := range tables {
		sheet := alloc.claim(truncateSheetName(table))
		if i == 0 {
			if err := wb.SetSheetName(wb.GetSheetName(0), sheet); err != nil {
				return fmt.Errorf("failed to export table %s: %w", table, err)
			}
		} else {
			if _, err := wb.NewSheet(sheet); err != nil {
				return fmt.Errorf("failed to export table %s: %w", table, err)
			}
		}
		header, rows, err := db.readTableRows(ctx, table)
		if err != nil {
			return fmt.Errorf("failed to export table %s: %w", table, err)
		}
		headerRow := make([]any, len(header))
		for j, name := range header {
			headerRow[j] = name
		}
		if err := wb.SetSheetRow(sheet, "A1", &headerRow); err != nil {
			return fmt.Errorf("failed to export table %s: %w", table, err)
		}
		for r, row := range rows {
			ref, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return fmt.Errorf("failed to export table %s: %w", table, err)
			}
			if err := wb.SetSheetRow(sheet, ref, &row); err != nil {
				return fmt.Errorf("failed to export table %s: %w", table, err)
			}
		}
	}

	path := filepath.Join(dir, "tables"+ExportFormatXLSX.Extension()+compression.Extension())
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	wc, err := compression.newWriter(f)
	if err != nil {
		_ = f.Close()
		return err
	}
	writeErr := wb.Write(wc)
	if err := wc.Close(); writeErr == nil {
		writeErr = err
	}
	if err := f.Close(); writeErr == nil {
		writeErr = err
	}
	return writeErr
}

// truncateSheetName keeps sheet names inside the 31-character workbook
// limit, leaving room for collision suffixes.
func truncateSheetName(name string) string {
	const maxLen = 28
	if len(name) <= maxLen {
		return name
	}
	return name[:maxLen]
}

// formatExportValue renders one scanned database value for delimited
// and string-typed output.
func formatExportValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
