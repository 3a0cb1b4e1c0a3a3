package view

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/harvest/internal/tabular"
)

// RenderResult writes a decoded artifact in the requested format. Formats
// mirror the CLI --format flag: table (default), csv, json, md.
func RenderResult(w io.Writer, tbl tabular.Table, format string) error {
	switch format {
	case "json":
		return renderJSON(w, tbl)
	case "csv":
		_, err := io.WriteString(w, tabular.Encode(tbl.Header, tbl.Rows))
		return err
	case "md", "markdown":
		return renderMarkdown(w, tbl)
	case "", "table":
		return renderTable(w, tbl)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderTable(w io.Writer, tbl tabular.Table) error {
	if len(tbl.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(tbl.Header))
	for i, col := range tbl.Header {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, row := range tbl.Rows {
		out := make(table.Row, len(tbl.Header))
		for i, col := range tbl.Header {
			out[i] = row[col]
		}
		t.AppendRow(out)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(tbl.Rows))
	return nil
}

func renderJSON(w io.Writer, tbl tabular.Table) error {
	rows := make([]map[string]string, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		out := make(map[string]string, len(tbl.Header))
		for _, col := range tbl.Header {
			out[col] = row[col]
		}
		rows = append(rows, out)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func renderMarkdown(w io.Writer, tbl tabular.Table) error {
	if len(tbl.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(tbl.Header, " | "))
	seps := make([]string, len(tbl.Header))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, row := range tbl.Rows {
		values := make([]string, len(tbl.Header))
		for i, col := range tbl.Header {
			values[i] = row[col]
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	return nil
}
