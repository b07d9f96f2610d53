// Package export writes frames out as CSV, Excel workbooks or a console
// table.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/xuri/excelize/v2"

	"herbot/internal/frame"
)

// DefaultSheet names the worksheet WriteXLSX creates when none is given.
const DefaultSheet = "Sheet1"

// FormatValue renders one cell as text. Missing values become "", whole
// dates drop their time part and floats use the shortest exact form.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.DateTime)
	}
	return fmt.Sprint(v)
}

// WriteCSV writes f with a header row.
func WriteCSV(w io.Writer, f *frame.Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns()); err != nil {
		return err
	}
	rec := make([]string, f.Width())
	for r := 0; r < f.Len(); r++ {
		for c, v := range f.Row(r) {
			rec[c] = FormatValue(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes f to path, creating parent directories.
func WriteCSVFile(path string, f *frame.Frame) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteCSV(out, f)
}

// WriteXLSX writes f to a new workbook at path with a single sheet.
// Numbers, booleans and dates keep their cell types.
func WriteXLSX(path, sheet string, f *frame.Frame) error {
	if sheet == "" {
		sheet = DefaultSheet
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	wb := excelize.NewFile()
	defer wb.Close()
	if sheet != DefaultSheet {
		if err := wb.SetSheetName(DefaultSheet, sheet); err != nil {
			return fmt.Errorf("name sheet %q: %w", sheet, err)
		}
	}

	sw, err := wb.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open sheet %q: %w", sheet, err)
	}

	header := make([]any, f.Width())
	for i, name := range f.Columns() {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for r := 0; r < f.Len(); r++ {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, xlsxRow(f.Row(r))); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return wb.SaveAs(path)
}

func xlsxRow(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		switch v.(type) {
		case nil, string, bool, int, int64, float64, time.Time:
			out[i] = v
		default:
			out[i] = FormatValue(v)
		}
	}
	return out
}

// RenderTable prints up to limit rows of f as a box-drawn table followed
// by a row count. A non-positive limit prints every row.
func RenderTable(w io.Writer, f *frame.Frame, limit int) {
	if f.Len() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, f.Width())
	for i, name := range f.Columns() {
		header[i] = name
	}
	t.AppendHeader(header)

	n := f.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	for r := 0; r < n; r++ {
		vals := f.Row(r)
		row := make(table.Row, len(vals))
		for i, v := range vals {
			if v == nil {
				row[i] = "NULL"
			} else {
				row[i] = FormatValue(v)
			}
		}
		t.AppendRow(row)
	}
	t.Render()

	if n < f.Len() {
		_, _ = fmt.Fprintf(w, "(showing %d of %d rows)\n", n, f.Len())
		return
	}
	_, _ = fmt.Fprintf(w, "(%d rows)\n", f.Len())
}
