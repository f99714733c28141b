package sheetsql

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nao1215/sheetsql/store"
)

// sheetFixture describes one sheet of a generated test workbook. The
// first row is the header.
type sheetFixture struct {
	name string
	rows [][]any
}

// writeWorkbook generates an XLSX file with the given sheets.
func writeWorkbook(t *testing.T, path string, sheets ...sheetFixture) {
	t.Helper()

	wb := excelize.NewFile()
	defer wb.Close()
	for i, sh := range sheets {
		if i == 0 {
			require.NoError(t, wb.SetSheetName(wb.GetSheetName(0), sh.name))
		} else {
			_, err := wb.NewSheet(sh.name)
			require.NoError(t, err)
		}
		for r, row := range sh.rows {
			ref, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, wb.SetSheetRow(sh.name, ref, &row))
		}
	}
	require.NoError(t, wb.SaveAs(path))
}

// openTestDB opens a DB over a fresh in-memory SQLite store.
func openTestDB(t *testing.T, opts ...Option) *DB {
	t.Helper()

	ctx := context.Background()
	st, err := store.Open(ctx, store.Config{Driver: store.DriverSQLite})
	require.NoError(t, err)
	db, err := Open(ctx, st, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func summaryNames(s *LoadSummary) []string {
	names := make([]string, 0, len(s.Tables))
	for _, table := range s.Tables {
		names = append(names, table.Name)
	}
	return names
}

func countRows(t *testing.T, db *DB, table string) int64 {
	t.Helper()

	var n int64
	err := db.DB().QueryRow("SELECT COUNT(*) FROM " + store.QuoteIdent(table)).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestOpenEmptyStore(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	assert.Empty(t, db.Tables())

	_, err := db.Schema("anything")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "alpha.xlsx"),
		sheetFixture{
			name: "People",
			rows: [][]any{
				{"ID", "Full Name", "Salary ($)", "Hired", "Active"},
				{1, "Alice", 95000.5, "2023-01-15", true},
				{2, "Bob", 78000, "2023-02-20", false},
				{3, "Charlie", 102000.25, "2023-03-10", true},
			},
		},
		sheetFixture{
			name: "Empty",
			rows: [][]any{
				{"a", "b"},
			},
		},
	)
	writeWorkbook(t, filepath.Join(dir, "beta.xlsx"),
		sheetFixture{
			name: "Totals",
			rows: [][]any{
				{"Region", "Total"},
				{"West", 100},
				{"East", 250},
			},
		},
	)

	db := openTestDB(t)
	summary, err := db.Load(context.Background(), dir)
	require.NoError(t, err)
	require.Empty(t, summary.Errors)

	// Tables follow discovery order: file order, then sheet order.
	assert.Equal(t, []string{"alpha_People", "alpha_Empty", "beta_Totals"}, summaryNames(summary))
	assert.Equal(t, int64(5), summary.TotalRows())

	people := summary.Tables[0]
	assert.Equal(t, filepath.Join(dir, "alpha.xlsx"), people.SourceFile)
	assert.Equal(t, "People", people.SheetName)
	assert.Equal(t, int64(3), people.RowCount)
	assert.Equal(t, []ColumnSpec{
		{Name: "ID", Type: ColumnTypeInteger},
		{Name: "Full_Name", Type: ColumnTypeText},
		{Name: "Salary____", Type: ColumnTypeReal},
		{Name: "Hired", Type: ColumnTypeDate},
		{Name: "Active", Type: ColumnTypeBoolean},
	}, people.Columns)

	// A header-only sheet still becomes a table, just an empty one.
	assert.Equal(t, int64(0), summary.Tables[1].RowCount)
	assert.Equal(t, int64(0), countRows(t, db, "alpha_Empty"))

	assert.Equal(t, []string{"alpha_Empty", "alpha_People", "beta_Totals"}, db.Tables())

	var name, hired string
	var salary float64
	var active bool
	err = db.DB().QueryRow(
		`SELECT Full_Name, Salary____, Hired, Active FROM alpha_People WHERE ID = 2`,
	).Scan(&name, &salary, &hired, &active)
	require.NoError(t, err)
	assert.Equal(t, "Bob", name)
	assert.Equal(t, float64(78000), salary)
	assert.Equal(t, "2023-02-20", hired)
	assert.False(t, active)

	info, err := db.Schema("beta_Totals")
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.RowCount)
	assert.Equal(t, []ColumnSpec{
		{Name: "Region", Type: ColumnTypeText},
		{Name: "Total", Type: ColumnTypeInteger},
	}, info.Columns)
}

func TestLoadSingleFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "report.xlsx")
	writeWorkbook(t, path, sheetFixture{
		name: "Q1",
		rows: [][]any{
			{"item", "count"},
			{"widgets", 12},
		},
	})

	db := openTestDB(t)
	summary, err := db.Load(context.Background(), path)
	require.NoError(t, err)
	require.Empty(t, summary.Errors)
	assert.Equal(t, []string{"report_Q1"}, summaryNames(summary))
	assert.Equal(t, int64(1), countRows(t, db, "report_Q1"))
}

func TestLoadDuplicateHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "dup.xlsx"), sheetFixture{
		name: "S",
		rows: [][]any{
			{"x", "x", "X"},
			{1, 2, 3},
		},
	})

	db := openTestDB(t)
	summary, err := db.Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, summary.Tables, 1)
	assert.Equal(t, []ColumnSpec{
		{Name: "x", Type: ColumnTypeInteger},
		{Name: "x_2", Type: ColumnTypeInteger},
		{Name: "X_3", Type: ColumnTypeInteger},
	}, summary.Tables[0].Columns)
}

func TestLoadCompressedWorkbook(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	plain := filepath.Join(dir, "data.xlsx")
	writeWorkbook(t, plain, sheetFixture{
		name: "Rates",
		rows: [][]any{
			{"currency", "rate"},
			{"EUR", 1.1},
			{"JPY", 0.0068},
		},
	})
	raw, err := os.ReadFile(plain)
	require.NoError(t, err)
	require.NoError(t, os.Remove(plain))

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err = gz.Write(raw)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	gzPath := filepath.Join(dir, "data.xlsx.gz")
	require.NoError(t, os.WriteFile(gzPath, buf.Bytes(), 0o600))

	db := openTestDB(t)
	summary, err := db.Load(context.Background(), gzPath)
	require.NoError(t, err)
	require.Empty(t, summary.Errors)
	assert.Equal(t, []string{"data_Rates"}, summaryNames(summary))
	assert.Equal(t, int64(2), countRows(t, db, "data_Rates"))
}

func TestLoadTableNameCollisions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// Both names sanitize to a_b, so both sheets want the table a_b_S.
	writeWorkbook(t, filepath.Join(dir, "a b.xlsx"), sheetFixture{
		name: "S",
		rows: [][]any{{"v"}, {"space"}},
	})
	writeWorkbook(t, filepath.Join(dir, "a_b.xlsx"), sheetFixture{
		name: "S",
		rows: [][]any{{"v"}, {"underscore"}},
	})

	db := openTestDB(t)
	summary, err := db.Load(context.Background(), dir)
	require.NoError(t, err)
	require.Empty(t, summary.Errors)
	assert.Equal(t, []string{"a_b_S", "a_b_S_2"}, summaryNames(summary))

	var v string
	require.NoError(t, db.DB().QueryRow("SELECT v FROM a_b_S").Scan(&v))
	assert.Equal(t, "space", v)
	require.NoError(t, db.DB().QueryRow("SELECT v FROM a_b_S_2").Scan(&v))
	assert.Equal(t, "underscore", v)
}

func TestLoadCacheHit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "stable.xlsx")
	writeWorkbook(t, path, sheetFixture{
		name: "S",
		rows: [][]any{{"n"}, {1}, {2}},
	})

	db := openTestDB(t)
	first, err := db.Load(context.Background(), dir)
	require.NoError(t, err)
	require.Empty(t, first.Errors)

	// Corrupt the file on disk. A cached load must not read it again.
	require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0o600))

	second, err := db.Load(context.Background(), dir)
	require.NoError(t, err)
	require.Empty(t, second.Errors)
	assert.Equal(t, summaryNames(first), summaryNames(second))
	assert.Equal(t, first.TotalRows(), second.TotalRows())
	assert.Equal(t, int64(2), countRows(t, db, "stable_S"))

	// Refresh bypasses the cache, so now the corruption surfaces and
	// the stale table is gone.
	third, err := db.Refresh(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, third.Tables)
	require.Len(t, third.Errors, 1)
	assert.ErrorIs(t, third.Errors[0], ErrDecode)
	assert.NotContains(t, db.Tables(), "stable_S")
}

func TestRefreshRereadsChangedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.xlsx")
	writeWorkbook(t, path, sheetFixture{
		name: "S",
		rows: [][]any{
			{"id", "name"},
			{1, "one"},
			{2, "two"},
		},
	})

	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.Load(ctx, dir)
	require.NoError(t, err)

	writeWorkbook(t, path, sheetFixture{
		name: "S",
		rows: [][]any{
			{"id", "name", "score"},
			{1, "one", 1.5},
			{2, "two", 2.5},
			{3, "three", 3.5},
		},
	})

	// A plain load still reports the cached shape.
	cached, err := db.Load(ctx, dir)
	require.NoError(t, err)
	require.Len(t, cached.Tables, 1)
	assert.Equal(t, int64(2), cached.Tables[0].RowCount)
	assert.Len(t, cached.Tables[0].Columns, 2)

	refreshed, err := db.Refresh(ctx, dir)
	require.NoError(t, err)
	require.Empty(t, refreshed.Errors)
	require.Len(t, refreshed.Tables, 1)
	assert.Equal(t, int64(3), refreshed.Tables[0].RowCount)
	assert.Len(t, refreshed.Tables[0].Columns, 3)
	assert.Equal(t, int64(3), countRows(t, db, "metrics_S"))
}

func TestRefreshSingleFileKeepsSiblingTables(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "a b.xlsx"), sheetFixture{
		name: "S",
		rows: [][]any{{"v"}, {"space"}},
	})
	suffixed := filepath.Join(dir, "a_b.xlsx")
	writeWorkbook(t, suffixed, sheetFixture{
		name: "S",
		rows: [][]any{{"v"}, {"underscore"}},
	})

	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.Load(ctx, dir)
	require.NoError(t, err)

	// Refreshing only the suffixed file must not steal its sibling's
	// table name.
	summary, err := db.Refresh(ctx, suffixed)
	require.NoError(t, err)
	require.Empty(t, summary.Errors)
	assert.Equal(t, []string{"a_b_S_2"}, summaryNames(summary))
	assert.Equal(t, []string{"a_b_S", "a_b_S_2"}, db.Tables())

	var v string
	require.NoError(t, db.DB().QueryRow("SELECT v FROM a_b_S").Scan(&v))
	assert.Equal(t, "space", v)
	require.NoError(t, db.DB().QueryRow("SELECT v FROM a_b_S_2").Scan(&v))
	assert.Equal(t, "underscore", v)
}

func TestLoadPartialFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "good.xlsx"), sheetFixture{
		name: "S",
		rows: [][]any{{"n"}, {1}},
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.xlsx"), []byte("garbage"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "legacy.xls"), []byte("old"), 0o600))

	db := openTestDB(t)
	summary, err := db.Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"good_S"}, summaryNames(summary))
	require.Len(t, summary.Errors, 2)
	for _, fe := range summary.Errors {
		assert.ErrorIs(t, fe, ErrDecode)
	}
	files := []string{summary.Errors[0].File, summary.Errors[1].File}
	assert.Contains(t, files, filepath.Join(dir, "broken.xlsx"))
	assert.Contains(t, files, filepath.Join(dir, "legacy.xls"))
}

func TestLoadFileTimeout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "slow.xlsx"), sheetFixture{
		name: "S",
		rows: [][]any{{"n"}, {1}},
	})

	db := openTestDB(t, WithFileTimeout(time.Nanosecond))
	summary, err := db.Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, summary.Tables)
	require.Len(t, summary.Errors, 1)
	assert.ErrorIs(t, summary.Errors[0], ErrTimeout)
}

func TestLoadContextCanceled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "data.xlsx"), sheetFixture{
		name: "S",
		rows: [][]any{{"n"}, {1}},
	})

	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := db.Load(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadPathErrors(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.Load(ctx, filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.Load(ctx, t.TempDir())
	assert.ErrorIs(t, err, ErrEmptySource)
}

func TestLoadDeterministicAcrossWorkers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "a b.xlsx"), sheetFixture{
		name: "S", rows: [][]any{{"v"}, {"one"}},
	})
	writeWorkbook(t, filepath.Join(dir, "a_b.xlsx"), sheetFixture{
		name: "S", rows: [][]any{{"v"}, {"two"}},
	})
	writeWorkbook(t, filepath.Join(dir, "m1.xlsx"), sheetFixture{
		name: "S", rows: [][]any{{"v"}, {"three"}, {"four"}},
	})
	writeWorkbook(t, filepath.Join(dir, "m2.xlsx"), sheetFixture{
		name: "S", rows: [][]any{{"v"}, {"five"}},
	})

	serial := openTestDB(t, WithWorkers(1))
	parallel := openTestDB(t, WithWorkers(8), WithChunkSize(1))

	ctx := context.Background()
	first, err := serial.Load(ctx, dir)
	require.NoError(t, err)
	second, err := parallel.Load(ctx, dir)
	require.NoError(t, err)

	assert.Equal(t, summaryNames(first), summaryNames(second))
	assert.Equal(t, first.TotalRows(), second.TotalRows())
	assert.Equal(t, serial.Tables(), parallel.Tables())
	assert.Equal(t, []string{"a_b_S", "a_b_S_2", "m1_S", "m2_S"}, summaryNames(first))
}

func TestReopenRestoresCatalog(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "one.xlsx"), sheetFixture{
		name: "S", rows: [][]any{{"n"}, {1}},
	})
	writeWorkbook(t, filepath.Join(dir, "two.xlsx"), sheetFixture{
		name: "S", rows: [][]any{{"n"}, {2}, {3}},
	})
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	st, err := store.Open(ctx, store.Config{Driver: store.DriverSQLite, Path: dbPath})
	require.NoError(t, err)
	db, err := Open(ctx, st)
	require.NoError(t, err)
	_, err = db.Load(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	st, err = store.Open(ctx, store.Config{Driver: store.DriverSQLite, Path: dbPath})
	require.NoError(t, err)
	reopened, err := Open(ctx, st)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, []string{"one_S", "two_S"}, reopened.Tables())
	info, err := reopened.Schema("two_S")
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.RowCount)

	// Every file is already cached, so a load reports without reading.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.xlsx"), []byte("junk"), 0o600))
	summary, err := reopened.Load(ctx, dir)
	require.NoError(t, err)
	require.Empty(t, summary.Errors)
	assert.Equal(t, []string{"one_S", "two_S"}, summaryNames(summary))
}

func TestReopenPrunesDroppedTables(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "one.xlsx"), sheetFixture{
		name: "S", rows: [][]any{{"n"}, {1}},
	})
	writeWorkbook(t, filepath.Join(dir, "two.xlsx"), sheetFixture{
		name: "S", rows: [][]any{{"n"}, {2}},
	})
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	st, err := store.Open(ctx, store.Config{Driver: store.DriverSQLite, Path: dbPath})
	require.NoError(t, err)
	db, err := Open(ctx, st)
	require.NoError(t, err)
	_, err = db.Load(ctx, dir)
	require.NoError(t, err)

	// Someone drops a table behind our back.
	_, err = db.DB().Exec("DROP TABLE one_S")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	st, err = store.Open(ctx, store.Config{Driver: store.DriverSQLite, Path: dbPath})
	require.NoError(t, err)
	reopened, err := Open(ctx, st)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, []string{"two_S"}, reopened.Tables())

	// The pruned file is a cache miss again and reloads cleanly.
	summary, err := reopened.Load(ctx, dir)
	require.NoError(t, err)
	require.Empty(t, summary.Errors)
	assert.Equal(t, []string{"one_S", "two_S"}, summaryNames(summary))
	assert.Equal(t, int64(1), countRows(t, reopened, "one_S"))
}
