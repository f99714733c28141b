package sheetsql

import (
	"github.com/nao1215/sheetsql/store"
)

// Type aliases re-exported from the store package so that library users
// only need to import sheetsql.
type (
	// ColumnType represents the logical type inferred for a column.
	ColumnType = store.ColumnType
	// ColumnSpec describes one column of a loaded table.
	ColumnSpec = store.ColumnSpec
)

// Re-exported column type constants.
const (
	// ColumnTypeText is the fallback type; any value can be stored as text.
	ColumnTypeText = store.ColumnTypeText
	// ColumnTypeInteger holds whole numbers.
	ColumnTypeInteger = store.ColumnTypeInteger
	// ColumnTypeReal holds floating point numbers.
	ColumnTypeReal = store.ColumnTypeReal
	// ColumnTypeDate holds dates or timestamps, stored as ISO-8601 text.
	ColumnTypeDate = store.ColumnTypeDate
	// ColumnTypeBoolean holds true/false values.
	ColumnTypeBoolean = store.ColumnTypeBoolean
)

// TableInfo describes one table produced by a load.
type TableInfo struct {
	// Name is the final table name in the store, unique within the batch.
	Name string
	// SourceFile is the absolute path of the spreadsheet the table came from.
	SourceFile string
	// SheetName is the workbook sheet the table came from. Empty for
	// formats without sheets, such as Parquet.
	SheetName string
	// RowCount is the number of data rows, excluding the header row.
	RowCount int64
	// Columns holds the sanitized column names and inferred types.
	Columns []ColumnSpec
}

// LoadSummary reports the outcome of one Load or Refresh call. Tables
// appear in discovery order (file order, then sheet order within each
// file); Errors collects per-file and per-table failures that did not
// abort the batch.
type LoadSummary struct {
	Tables []TableInfo
	Errors []*FileError
}

// TotalRows sums the data rows of all loaded tables.
func (s *LoadSummary) TotalRows() int64 {
	var total int64
	for _, t := range s.Tables {
		total += t.RowCount
	}
	return total
}
