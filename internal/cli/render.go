package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nao1215/sheetsql"
)

// tableReport is the JSON shape of one loaded table.
type tableReport struct {
	Name       string                `json:"name"`
	SourceFile string                `json:"source_file"`
	SheetName  string                `json:"sheet_name,omitempty"`
	RowCount   int64                 `json:"row_count"`
	Columns    []sheetsql.ColumnSpec `json:"columns,omitempty"`
}

// loadReport is the JSON shape of a load or refresh result.
type loadReport struct {
	Tables    []tableReport `json:"tables"`
	TotalRows int64         `json:"total_rows"`
	Errors    []string      `json:"errors,omitempty"`
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderSummary writes the outcome of a load or refresh.
func renderSummary(w io.Writer, mode string, summary *sheetsql.LoadSummary) error {
	if mode == outputJSON {
		report := loadReport{
			Tables:    make([]tableReport, 0, len(summary.Tables)),
			TotalRows: summary.TotalRows(),
		}
		for _, ti := range summary.Tables {
			report.Tables = append(report.Tables, tableReport{
				Name:       ti.Name,
				SourceFile: ti.SourceFile,
				SheetName:  ti.SheetName,
				RowCount:   ti.RowCount,
				Columns:    ti.Columns,
			})
		}
		for _, fe := range summary.Errors {
			report.Errors = append(report.Errors, fe.Error())
		}
		return encodeJSON(w, report)
	}

	if len(summary.Tables) == 0 {
		_, _ = fmt.Fprintln(w, "(0 tables)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Table", "Source", "Sheet", "Rows"})
	for _, ti := range summary.Tables {
		t.AppendRow(table.Row{ti.Name, filepath.Base(ti.SourceFile), ti.SheetName, ti.RowCount})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d tables, %d rows)\n", len(summary.Tables), summary.TotalRows())
	return nil
}

// renderTables writes the table listing.
func renderTables(w io.Writer, mode string, infos []*sheetsql.TableInfo) error {
	if mode == outputJSON {
		reports := make([]tableReport, 0, len(infos))
		for _, info := range infos {
			reports = append(reports, tableReport{
				Name:       info.Name,
				SourceFile: info.SourceFile,
				SheetName:  info.SheetName,
				RowCount:   info.RowCount,
			})
		}
		return encodeJSON(w, reports)
	}

	if len(infos) == 0 {
		_, _ = fmt.Fprintln(w, "(0 tables)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Table", "Rows", "Columns", "Source"})
	for _, info := range infos {
		t.AppendRow(table.Row{info.Name, info.RowCount, len(info.Columns), filepath.Base(info.SourceFile)})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d tables)\n", len(infos))
	return nil
}

// renderSchema writes the column layout of one table.
func renderSchema(w io.Writer, mode string, info *sheetsql.TableInfo) error {
	if mode == outputJSON {
		return encodeJSON(w, tableReport{
			Name:       info.Name,
			SourceFile: info.SourceFile,
			SheetName:  info.SheetName,
			RowCount:   info.RowCount,
			Columns:    info.Columns,
		})
	}

	_, _ = fmt.Fprintf(w, "Table: %s\n", info.Name)
	source := info.SourceFile
	if info.SheetName != "" {
		source = fmt.Sprintf("%s (sheet %s)", source, info.SheetName)
	}
	_, _ = fmt.Fprintf(w, "Source: %s\n", source)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Type"})
	for _, col := range info.Columns {
		t.AppendRow(table.Row{col.Name, col.Type.String()})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", info.RowCount)
	return nil
}
