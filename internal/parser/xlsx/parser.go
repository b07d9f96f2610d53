// Package xlsx reads Excel workbooks into frames. The first row of the sheet
// is the header; cells go through the same NA and number handling as CSV.
package xlsx

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"herbot/internal/frame"
	"herbot/internal/logging"
	pcsv "herbot/internal/parser/csv"
)

// Options configures the workbook reader.
type Options struct {
	// Sheet to read. Empty means the first sheet.
	Sheet        string
	TrimSpace    bool
	HeaderMap    map[string]string
	NAValues     []string
	InferNumbers bool
}

// Parser reads one sheet of a workbook.
type Parser struct {
	opt   Options
	cells *pcsv.Parser
	log   logging.Logger
}

// NewParser constructs a Parser.
func NewParser(opt Options, log logging.Logger) *Parser {
	return &Parser{
		opt: opt,
		cells: pcsv.NewParser(pcsv.Options{
			HasHeader:    true,
			TrimSpace:    opt.TrimSpace,
			HeaderMap:    opt.HeaderMap,
			NAValues:     opt.NAValues,
			InferNumbers: opt.InferNumbers,
		}, log),
		log: logging.OrDiscard(log),
	}
}

// Parse reads the configured sheet from r.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*frame.Frame, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheet := p.opt.Sheet
	if sheet == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return frame.New(), nil
		}
		sheet = sheets[0]
	}

	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return frame.New(), nil
	}

	headers := p.cells.Headers(rows[0])
	out := frame.New(headers...)
	// GetRows trims trailing empty cells, so short rows are padded with nil.
	for i, raw := range rows[1:] {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := make([]any, len(headers))
		for c := range headers {
			if c < len(raw) {
				row[c] = p.cells.Cell(raw[c])
			}
		}
		if len(raw) > len(headers) {
			p.log.Debug("xlsx row wider than header; extra cells dropped", "sheet", sheet, "row", i+2)
		}
		if err := out.AppendRow(row...); err != nil {
			return nil, err
		}
	}
	p.log.Debug("xlsx sheet read", "sheet", sheet, "rows", out.Len(), "columns", out.Width())
	return out, nil
}

// Sheets lists the sheet names of a workbook.
func Sheets(r io.Reader) ([]string, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()
	return wb.GetSheetList(), nil
}
