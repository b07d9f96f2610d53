// Package csv parses delimited text into frames.
//
// Rows whose width does not match the header are skipped and counted rather
// than failing the whole load, since real-world exports regularly contain a
// handful of broken lines. Cells matching one of the NA markers become nil.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"herbot/internal/frame"
	"herbot/internal/logging"
)

// DefaultNAValues are the cell values read as missing.
var DefaultNAValues = []string{
	"", "NA", "N/A", "n/a", "NULL", "null", "NaN", "nan", "-NaN", "#N/A", "None",
}

// skipLogLimit caps how many skipped rows are logged individually.
const skipLogLimit = 400

// Options configures the parser. Use DefaultOptions as the starting point;
// the zero value treats the first row as data.
type Options struct {
	// HasHeader indicates whether the first row holds column names.
	HasHeader bool
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// TrimSpace trims surrounding whitespace from every value.
	TrimSpace bool
	// LazyQuotes relaxes quote handling in the underlying reader.
	LazyQuotes bool
	// ExpectedFields fixes the row width when there is no header. Rows of
	// another width are skipped.
	ExpectedFields int
	// HeaderMap renames source headers.
	HeaderMap map[string]string
	// NAValues overrides DefaultNAValues. An empty non-nil slice disables
	// NA detection entirely.
	NAValues []string
	// InferNumbers converts integer and decimal cells to int64 and float64.
	InferNumbers bool
	// Replace rewrites byte sequences before parsing.
	Replace []Replacement
}

// DefaultOptions returns the options used for ordinary CSV loads.
func DefaultOptions() Options {
	return Options{HasHeader: true, InferNumbers: true}
}

// Stats summarises a parse.
type Stats struct {
	Rows     int
	Skipped  int
	BadWidth int
}

// Parser parses CSV input according to Options. It may be reused across
// inputs but is not safe for concurrent use.
type Parser struct {
	opt Options
	log logging.Logger
	na  map[string]struct{}
}

// NewParser constructs a Parser.
func NewParser(opt Options, log logging.Logger) *Parser {
	values := opt.NAValues
	if values == nil {
		values = DefaultNAValues
	}
	na := make(map[string]struct{}, len(values))
	for _, v := range values {
		na[v] = struct{}{}
	}
	return &Parser{opt: opt, log: logging.OrDiscard(log), na: na}
}

// Parse reads all records from r into a frame.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*frame.Frame, Stats, error) {
	var st Stats

	cr := csv.NewReader(withReplacements(r, p.opt.Replace))
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.LazyQuotes = p.opt.LazyQuotes
	// Width is enforced below so a bad row is skipped rather than fatal.
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var headers []string
	if p.opt.HasHeader {
		h, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return frame.New(), st, nil
		}
		if err != nil {
			return nil, st, fmt.Errorf("read csv header: %w", err)
		}
		headers = p.Headers(h)
	} else if p.opt.ExpectedFields > 0 {
		headers = positionalHeaders(p.opt.ExpectedFields)
	}

	var out *frame.Frame
	if headers != nil {
		out = frame.New(headers...)
	}

	for line := 1; ; line++ {
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, st, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.skip(&st, line, err.Error())
			continue
		}
		if out == nil {
			headers = positionalHeaders(len(rec))
			out = frame.New(headers...)
		}
		if len(rec) != len(headers) {
			st.BadWidth++
			p.skip(&st, line, fmt.Sprintf("incorrect number of fields (expected %d, got %d)", len(headers), len(rec)))
			continue
		}

		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = p.Cell(v)
		}
		if err := out.AppendRow(row...); err != nil {
			return nil, st, err
		}
		st.Rows++
	}

	if out == nil {
		out = frame.New()
	}
	if st.Skipped > 0 {
		p.log.Warn("csv rows skipped", "skipped", st.Skipped, "bad_width", st.BadWidth, "rows", st.Rows)
	}
	return out, st, nil
}

func (p *Parser) skip(st *Stats, line int, reason string) {
	if st.Skipped < skipLogLimit {
		p.log.Debug(fmt.Sprintf("Skipping row %d: %s", line, reason))
	}
	st.Skipped++
}

// Cell converts one raw cell: trimmed if configured, nil for NA markers,
// numeric when InferNumbers is set.
func (p *Parser) Cell(s string) any {
	if p.opt.TrimSpace {
		s = strings.TrimSpace(s)
	}
	if _, ok := p.na[s]; ok {
		return nil
	}
	if p.opt.InferNumbers {
		if n, ok := parseNumber(s); ok {
			return n
		}
	}
	return s
}

// parseNumber accepts plain integers and decimals. Values with leading
// zeros such as "007" stay strings because they are usually codes.
func parseNumber(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	digits := strings.TrimLeft(s, "+-")
	if len(digits) > 1 && digits[0] == '0' && digits[1] != '.' {
		return nil, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if strings.ContainsAny(s, "xXpP_") || strings.EqualFold(digits, "inf") || strings.EqualFold(digits, "infinity") {
		return nil, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	return nil, false
}

// Headers strips a BOM, applies HeaderMap, names blank headers
// "Unnamed: N" and suffixes repeated names with .1, .2 and so on.
func (p *Parser) Headers(h []string) []string {
	h = StripHeaderBOM(append([]string(nil), h...))
	for i, name := range h {
		if m, ok := p.opt.HeaderMap[name]; ok {
			name = m
		}
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		h[i] = name
	}
	return frame.UniqueNames(h)
}

func positionalHeaders(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("col_%d", i)
	}
	return out
}
