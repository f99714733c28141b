// Package sheetsql loads spreadsheet and Parquet files into SQL tables
// so their contents can be queried with plain database/sql.
//
// sheetsql walks a file or directory, extracts every sheet, infers a
// column type for each header, and writes one table per sheet into a
// pluggable store (SQLite by default, DuckDB optionally). A catalog
// table records where each table came from, which lets repeated loads
// skip files that are already present.
//
// # Features
//
//   - Load Excel (XLSX, XLSM) and Parquet files, one table per sheet
//   - Automatic handling of compressed files (gzip, bzip2, xz, zstandard)
//   - Column type inference: Integer, Real, Date, Boolean, Text
//   - Concurrent extraction with deterministic table naming and order
//   - Cache-aware loading: unchanged files are reported, not re-read
//   - Export loaded tables to CSV, TSV, XLSX, or Parquet
//
// # Basic Usage
//
// Open a store, hand it to Open, and load a directory:
//
//	st, err := store.Open(ctx, store.Config{Driver: store.DriverSQLite, Path: "sheets.db"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	db, err := sheetsql.Open(ctx, st)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	summary, err := db.Load(ctx, "./reports")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, table := range summary.Tables {
//	    fmt.Println(table.Name, table.RowCount)
//	}
//
//	rows, err := db.DB().Query("SELECT * FROM budget_Sheet1")
//
// # Table Naming
//
// Table names are derived from the file name and sheet name:
//   - "budget.xlsx" sheet "Q1" becomes table "budget_Q1"
//   - "sales.parquet" becomes table "sales"
//   - "data.xlsx.gz" sheet "Sheet1" becomes table "data_Sheet1"
//
// Characters outside [A-Za-z0-9_] are replaced with underscores, names
// starting with a digit gain a leading underscore, and names that
// collide case-insensitively within one load gain numeric suffixes
// ("report_2", "report_3"). The same rules apply to column names.
//
// # Type Inference
//
// Every value of a column is inspected and the narrowest type that fits
// all non-empty cells wins, in the order Integer, Real, Date, Boolean,
// Text. A column of 0 and 1 stays Integer; mixing "true" with 1 makes
// it Boolean; any value that fits nothing else makes the column Text.
// Empty cells are NULL in any type, and an entirely empty column is
// Text. Dates are stored as ISO-8601 text.
//
// # Cache
//
// The catalog table (_sheetsql_catalog) maps each loaded table to its
// source file. Load skips files that already have tables in the
// catalog and reports them from the recorded metadata; Refresh drops a
// path's tables first and always re-reads. Reopening a store prunes
// catalog rows whose tables no longer exist.
package sheetsql
