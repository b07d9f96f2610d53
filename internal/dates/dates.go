// Package dates converts NHS financial periods and loosely formatted date
// strings into time values, and handles frames whose headers are dates.
package dates

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"herbot/internal/dataerr"
	"herbot/internal/frame"
)

// DefaultHeaderLayout renders 2021-01-01 as "Jan 2021".
const DefaultHeaderLayout = "Jan 2006"

const invalidMonthMsg = "Invalid month. Month should be between 1 and 12."

// excelEpoch is day zero of the Excel 1900 date system, adjusted for the
// 1900 leap-year bug.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ConvertFinDates returns the first day of a financial month. The financial
// year starts in April, so month 1 is April and month 12 is March. finYear
// spells both calendar years as CCYY1YY2, e.g. 202425 for 2024-25.
func ConvertFinDates(finMonth, finYear int) (time.Time, error) {
	if finMonth < 1 || finMonth > 12 {
		return time.Time{}, dataerr.New(dataerr.KindInvalidMonth, invalidMonthMsg)
	}
	if finYear < 100000 || finYear > 999999 {
		return time.Time{}, dataerr.Newf(dataerr.KindInvalidParameters,
			"Invalid financial year %d. Expected the form CCYY1YY2, e.g. 202425.", finYear)
	}
	start := finYear / 100
	if finMonth <= 9 {
		return time.Date(start, time.Month(finMonth+3), 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Date(start+1, time.Month(finMonth-9), 1, 0, 0, 0, 0, time.UTC), nil
}

// ConvertFinDatesColumn converts every row of the two columns. All months
// are checked before any conversion, so a bad row fails the whole column.
// Cells may be numbers or numeric strings.
func ConvertFinDatesColumn(f *frame.Frame, monthCol, yearCol string) ([]time.Time, error) {
	months, ok := f.Column(monthCol)
	if !ok {
		return nil, dataerr.Newf(dataerr.KindInvalidParameters, "Column '%s' not found", monthCol)
	}
	years, ok := f.Column(yearCol)
	if !ok {
		return nil, dataerr.Newf(dataerr.KindInvalidParameters, "Column '%s' not found", yearCol)
	}

	m := make([]int, len(months))
	y := make([]int, len(years))
	for i := range months {
		mv, ok := asInt(months[i])
		if !ok || mv < 1 || mv > 12 {
			return nil, dataerr.New(dataerr.KindInvalidMonth, invalidMonthMsg)
		}
		yv, ok := asInt(years[i])
		if !ok {
			return nil, dataerr.Newf(dataerr.KindInvalidParameters,
				"Invalid financial year %v in row %d", years[i], i)
		}
		m[i], y[i] = mv, yv
	}

	out := make([]time.Time, len(m))
	for i := range m {
		t, err := ConvertFinDates(m[i], y[i])
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// AddFinDateColumn stores the result of ConvertFinDatesColumn in column out.
func AddFinDateColumn(f *frame.Frame, monthCol, yearCol, out string) error {
	ts, err := ConvertFinDatesColumn(f, monthCol, yearCol)
	if err != nil {
		return err
	}
	vals := make([]any, len(ts))
	for i, t := range ts {
		vals[i] = t
	}
	return f.SetColumn(out, vals)
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case int32:
		return int(t), true
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int(t), true
	case string:
		s := strings.TrimSpace(t)
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
		if fl, err := strconv.ParseFloat(s, 64); err == nil && fl == math.Trunc(fl) {
			return int(fl), true
		}
	}
	return 0, false
}

// ParseDate parses "02/01/2006 15:04", then "02/01/2006", then an Excel
// serial day number with an optional fractional time. It reports false when
// none match.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"02/01/2006 15:04", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	days, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(days) || math.IsInf(days, 0) || math.Abs(days) > 3e6 {
		return time.Time{}, false
	}
	whole := math.Floor(days)
	// Round to the microsecond so fractions like 0.520833333336 land on 12:30.
	micros := math.Round((days - whole) * 86400e6)
	return excelEpoch.AddDate(0, 0, int(whole)).Add(time.Duration(micros) * time.Microsecond), true
}

// SortWithDates sorts strings so that those not parsing with layout come
// first in lexical order, followed by the dates in chronological order. An
// empty layout means DefaultHeaderLayout.
func SortWithDates(list []string, layout string) []string {
	if layout == "" {
		layout = DefaultHeaderLayout
	}
	type item struct {
		s      string
		t      time.Time
		isDate bool
	}
	items := make([]item, len(list))
	for i, s := range list {
		t, err := time.Parse(layout, s)
		items[i] = item{s: s, t: t, isDate: err == nil}
	}
	sort.SliceStable(items, func(a, b int) bool {
		x, y := items[a], items[b]
		if x.isDate != y.isDate {
			return !x.isDate
		}
		if x.isDate {
			return x.t.Before(y.t)
		}
		return x.s < y.s
	})
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.s
	}
	return out
}

// headerLayouts are tried when FormatDateHeaders is given no input layout.
var headerLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

func parseHeader(name, layout string) (time.Time, bool) {
	layouts := headerLayouts
	if layout != "" {
		layouts = []string{layout}
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, name); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateColumns lists the columns whose names parse as dates with layout. An
// empty layout tries ISO date and date-time forms.
func DateColumns(f *frame.Frame, layout string) []string {
	var out []string
	for _, name := range f.Columns() {
		if _, ok := parseHeader(name, layout); ok {
			out = append(out, name)
		}
	}
	return out
}

// FormatDateHeaders returns a copy of f in which every date header is
// re-rendered with outLayout (default DefaultHeaderLayout). With no date
// headers a DataTypeNotFoundWarning goes to sink and the copy is unchanged.
func FormatDateHeaders(f *frame.Frame, inLayout, outLayout string, sink dataerr.WarningSink) (*frame.Frame, error) {
	if outLayout == "" {
		outLayout = DefaultHeaderLayout
	}
	out := f.Clone()
	mapping := map[string]string{}
	for _, name := range out.Columns() {
		if t, ok := parseHeader(name, inLayout); ok {
			mapping[name] = t.Format(outLayout)
		}
	}
	if len(mapping) == 0 {
		if sink != nil {
			sink.Warn(dataerr.Warning{
				Kind:    dataerr.DataTypeNotFoundWarning,
				Message: "No datetime columns found in the DataFrame.",
			})
		}
		return out, nil
	}
	if err := out.Rename(mapping); err != nil {
		return nil, fmt.Errorf("format date headers: %w", err)
	}
	return out, nil
}
