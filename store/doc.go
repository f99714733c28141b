// Package store provides the relational backends that sheetsql loads
// spreadsheet tables into. Backends register themselves under a driver
// name via Register; pure-Go SQLite and DuckDB implementations are
// included. The catalog table each backend maintains records which
// source file and sheet every loaded table came from.
package store
