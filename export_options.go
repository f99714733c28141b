package sheetsql

import (
	"fmt"
	"strings"
)

// ExportFormat represents the output file format for Export.
type ExportFormat int

const (
	// ExportFormatCSV represents CSV output format
	ExportFormatCSV ExportFormat = iota
	// ExportFormatTSV represents TSV output format
	ExportFormatTSV
	// ExportFormatXLSX represents a single XLSX workbook with one sheet
	// per table
	ExportFormatXLSX
	// ExportFormatParquet represents Parquet output format
	ExportFormatParquet
)

// String returns the string representation of ExportFormat.
func (f ExportFormat) String() string {
	switch f {
	case ExportFormatTSV:
		return "tsv"
	case ExportFormatXLSX:
		return "xlsx"
	case ExportFormatParquet:
		return "parquet"
	default:
		return "csv"
	}
}

// Extension returns the file extension including the leading dot.
func (f ExportFormat) Extension() string {
	switch f {
	case ExportFormatTSV:
		return ".tsv"
	case ExportFormatXLSX:
		return ".xlsx"
	case ExportFormatParquet:
		return ".parquet"
	default:
		return ".csv"
	}
}

// ParseExportFormat converts a user-facing name such as "csv" or
// "parquet" to an ExportFormat.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return ExportFormatCSV, nil
	case "tsv":
		return ExportFormatTSV, nil
	case "xlsx":
		return ExportFormatXLSX, nil
	case "parquet":
		return ExportFormatParquet, nil
	default:
		return ExportFormatCSV, fmt.Errorf("unknown export format: %s", s)
	}
}

// ExportOptions configures how loaded tables are exported to files.
//
// Example:
//
//	options := sheetsql.NewExportOptions().
//		WithFormat(sheetsql.ExportFormatTSV).
//		WithCompression(sheetsql.CompressionGZ)
//
//	err := db.Export(ctx, "./output", options)
type ExportOptions struct {
	// Format specifies the output file format
	Format ExportFormat
	// Compression specifies the compression type
	Compression CompressionType
}

// NewExportOptions creates default export options (CSV, no compression).
func NewExportOptions() ExportOptions {
	return ExportOptions{
		Format:      ExportFormatCSV,
		Compression: CompressionNone,
	}
}

// WithFormat sets the output file format.
func (o ExportOptions) WithFormat(format ExportFormat) ExportOptions {
	o.Format = format
	return o
}

// WithCompression adds compression to output files. CompressionBZ2 is
// not supported for writing and fails at export time.
func (o ExportOptions) WithCompression(compression CompressionType) ExportOptions {
	o.Compression = compression
	return o
}
