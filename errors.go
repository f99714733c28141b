package sheetsql

import (
	"errors"
	"fmt"
)

// Sentinel errors for the load pipeline. Path-scoped errors abort Load
// and Refresh; file- and table-scoped errors are wrapped in FileError
// values and collected in LoadSummary.Errors while the batch continues.
// Callers match them with errors.Is.
var (
	// ErrNotFound is returned when a load path does not exist or a table
	// name is unknown to the cache index.
	ErrNotFound = errors.New("sheetsql: not found")

	// ErrEmptySource is returned when a directory contains no loadable files.
	ErrEmptySource = errors.New("sheetsql: no loadable files")

	// ErrDecode marks a file that could not be read as a spreadsheet.
	ErrDecode = errors.New("sheetsql: cannot decode spreadsheet")

	// ErrTimeout marks a file whose extraction exceeded the per-file timeout.
	ErrTimeout = errors.New("sheetsql: extraction timed out")

	// ErrSchemaConflict marks a cell value that does not fit the declared
	// type of its column.
	ErrSchemaConflict = errors.New("sheetsql: value does not fit column type")

	// ErrStoreWrite marks a table that could not be written to the store.
	ErrStoreWrite = errors.New("sheetsql: store write failed")
)

// FileError attributes a failure to the source file it occurred in.
type FileError struct {
	// File is the absolute path of the file that failed.
	File string
	// Err is the underlying failure, wrapping one of the sentinel errors.
	Err error
}

// Error implements the error interface.
func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

// Unwrap exposes the underlying failure to errors.Is and errors.As.
func (e *FileError) Unwrap() error {
	return e.Err
}
