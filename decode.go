package sheetsql

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	pqfile "github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/xuri/excelize/v2"
)

// rawSheet is one decoded sheet: the raw header row plus data rows with
// cells already tagged, padded to the header width.
type rawSheet struct {
	name   string
	index  int
	header []string
	rows   [][]cell
}

// decodeSource reads one source file into its sheets. Formats that are
// recognized but not decodable, such as legacy xls workbooks, return an
// error wrapping ErrDecode.
func decodeSource(ctx context.Context, src sourceFile, cls *classifier) ([]rawSheet, error) {
	switch src.kind {
	case kindXLSX:
		data, err := readSourceData(src)
		if err != nil {
			return nil, err
		}
		return decodeWorkbook(data, cls)
	case kindParquet:
		data, err := readSourceData(src)
		if err != nil {
			return nil, err
		}
		return decodeParquet(ctx, data, cls)
	case kindXLS:
		return nil, fmt.Errorf("%w: legacy xls workbook %s", ErrDecode, filepath.Base(src.path))
	default:
		return nil, fmt.Errorf("%w: unsupported file type %s", ErrDecode, filepath.Base(src.path))
	}
}

// readSourceData reads the whole file through its compression wrapper.
// Workbook and parquet decoding both need random access, so sources are
// buffered in memory.
func readSourceData(src sourceFile) ([]byte, error) {
	f, err := os.Open(src.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(src.path), err)
	}
	defer f.Close()

	rc, err := src.compression.newReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, filepath.Base(src.path), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, filepath.Base(src.path), err)
	}
	return data, nil
}

// decodeWorkbook extracts every sheet of an XLSX or XLSM workbook.
// The first row of a sheet is its header; short data rows are padded
// with nulls to the header width and extra cells beyond it are dropped.
// Sheets without any rows are skipped.
func decodeWorkbook(data []byte, cls *classifier) ([]rawSheet, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer wb.Close()

	var sheets []rawSheet
	for i, sheetName := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %s: %v", ErrDecode, sheetName, err)
		}
		if len(rows) == 0 || len(rows[0]) == 0 {
			continue
		}
		header := rows[0]
		width := len(header)
		data := make([][]cell, 0, len(rows)-1)
		for _, raw := range rows[1:] {
			row := make([]cell, width)
			for j := 0; j < width; j++ {
				if j < len(raw) {
					row[j] = cls.classify(raw[j])
				} else {
					row[j] = nullCell()
				}
			}
			data = append(data, row)
		}
		sheets = append(sheets, rawSheet{name: sheetName, index: i, header: header, rows: data})
	}
	return sheets, nil
}

// decodeParquet extracts a parquet file as a single sheet with an empty
// sheet name. Arrow values arrive natively typed; string columns are
// re-classified the same way workbook cells are.
func decodeParquet(ctx context.Context, data []byte, cls *classifier) ([]rawSheet, error) {
	pqReader, err := pqfile.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	tbl, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer tbl.Release()

	fields := tbl.Schema().Fields()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}

	var rows [][]cell
	tr := array.NewTableReader(tbl, 4096)
	defer tr.Release()
	for tr.Next() {
		rec := tr.Record()
		for i := 0; i < int(rec.NumRows()); i++ {
			row := make([]cell, len(header))
			for j, col := range rec.Columns() {
				row[j] = cellFromArrow(col, i, cls)
			}
			rows = append(rows, row)
		}
	}

	return []rawSheet{{name: "", index: 0, header: header, rows: rows}}, nil
}

// cellFromArrow converts one arrow value into a tagged cell.
func cellFromArrow(col arrow.Array, i int, cls *classifier) cell {
	if col.IsNull(i) {
		return nullCell()
	}
	switch arr := col.(type) {
	case *array.Int8:
		return integerCell(int64(arr.Value(i)))
	case *array.Int16:
		return integerCell(int64(arr.Value(i)))
	case *array.Int32:
		return integerCell(int64(arr.Value(i)))
	case *array.Int64:
		return integerCell(arr.Value(i))
	case *array.Uint8:
		return integerCell(int64(arr.Value(i)))
	case *array.Uint16:
		return integerCell(int64(arr.Value(i)))
	case *array.Uint32:
		return integerCell(int64(arr.Value(i)))
	case *array.Uint64:
		return integerCell(int64(arr.Value(i)))
	case *array.Float32:
		return realCell(float64(arr.Value(i)))
	case *array.Float64:
		return realCell(arr.Value(i))
	case *array.Boolean:
		return boolCell(arr.Value(i))
	case *array.String:
		return cls.classify(arr.Value(i))
	case *array.LargeString:
		return cls.classify(arr.Value(i))
	case *array.Timestamp:
		typ, ok := arr.DataType().(*arrow.TimestampType)
		if !ok {
			return cls.classify(col.ValueStr(i))
		}
		return dateCell(arr.Value(i).ToTime(typ.Unit).UTC())
	case *array.Date32:
		return dateCell(arr.Value(i).ToTime().UTC())
	case *array.Date64:
		return dateCell(arr.Value(i).ToTime().UTC())
	default:
		return cls.classify(col.ValueStr(i))
	}
}
