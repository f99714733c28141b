package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuckDBTypeNames(t *testing.T) {
	t.Parallel()

	d := NewDuckDB()
	assert.Equal(t, "BIGINT", d.typeName(ColumnTypeInteger))
	assert.Equal(t, "DOUBLE", d.typeName(ColumnTypeReal))
	assert.Equal(t, "VARCHAR", d.typeName(ColumnTypeDate), "dates are stored as ISO-8601 text")
	assert.Equal(t, "BOOLEAN", d.typeName(ColumnTypeBoolean))
	assert.Equal(t, "VARCHAR", d.typeName(ColumnTypeText))
}

func TestDuckDBRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := NewDuckDB()
	require.NoError(t, st.Connect(ctx, Config{Driver: DriverDuckDB}))
	defer func() {
		assert.NoError(t, st.Close())
	}()
	assert.Equal(t, DriverDuckDB, st.Dialect())

	specs := []ColumnSpec{
		{Name: "id", Type: ColumnTypeInteger},
		{Name: "active", Type: ColumnTypeBoolean},
	}
	tx, err := st.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, st.CreateTable(ctx, tx, "flags", specs))
	require.NoError(t, st.InsertChunk(ctx, tx, "flags", 2, [][]any{
		{int64(1), true},
		{int64(2), false},
	}))
	require.NoError(t, st.UpsertCatalogEntry(ctx, tx, CatalogEntry{
		TableName:  "flags",
		SourceFile: "/data/flags.xlsx",
		SheetName:  "Sheet1",
		RowCount:   2,
		Columns:    specs,
	}))
	require.NoError(t, tx.Commit())

	names, err := st.TableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"flags"}, names, "catalog table must not be listed")

	var active bool
	require.NoError(t, st.DB().QueryRowContext(ctx, `SELECT "active" FROM "flags" WHERE "id" = 1`).Scan(&active))
	assert.True(t, active, "booleans are native on duckdb")

	entries, err := st.CatalogEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "flags", entries[0].TableName)
}
