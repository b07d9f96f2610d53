package transform

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"herbot/internal/dataerr"
	"herbot/internal/frame"
)

// sameValue compares scalars by their key encoding, so 1 and 1.0 match, and
// falls back to deep equality for slices and other composites.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch reflect.TypeOf(a).Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.Struct:
		return reflect.DeepEqual(a, b)
	}
	ka, _ := frame.KeyOf(a)
	kb, _ := frame.KeyOf(b)
	return ka == kb
}

// ConvertValuesTo returns to when value is one of match, and value
// otherwise. With invert the test is reversed: everything outside match is
// converted.
func ConvertValuesTo(value any, match []any, to any, invert bool) any {
	found := false
	for _, m := range match {
		if sameValue(value, m) {
			found = true
			break
		}
	}
	if found != invert {
		return to
	}
	return value
}

// ConvertColumnValuesTo applies ConvertValuesTo to every value of column in
// place.
func ConvertColumnValuesTo(f *frame.Frame, column string, match []any, to any, invert bool) error {
	return mapColumn(f, column, func(v any) any { return ConvertValuesTo(v, match, to, invert) })
}

// ConvertToNumeric parses every value as a float64 after removing thousands
// commas. Anything that does not parse becomes nil.
func ConvertToNumeric(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = toNumber(v)
	}
	return out
}

func toNumber(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(t) {
			return nil
		}
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case int32:
		return float64(t)
	}
	s := strings.TrimSpace(strings.ReplaceAll(fmt.Sprint(v), ",", ""))
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) {
		return nil
	}
	return n
}

// ConvertColumnToNumeric replaces column with its numeric conversion.
func ConvertColumnToNumeric(f *frame.Frame, column string) error {
	return mapColumn(f, column, toNumber)
}

// NumberFormat describes how FormatNumeric renders a number. The zero value
// gives whole numbers without a thousands separator; see
// DefaultNumberFormat.
type NumberFormat struct {
	Decimals  int    `koanf:"decimals"`
	Thousands string `koanf:"thousands"`
	Prefix    string `koanf:"prefix"`
	Suffix    string `koanf:"suffix"`
}

// DefaultNumberFormat renders 1234.5 as "1,234.50".
func DefaultNumberFormat() NumberFormat {
	return NumberFormat{Decimals: 2, Thousands: ","}
}

// FormatNumeric renders numeric values as strings. nil and NaN become nil;
// any other non-numeric value is returned unchanged.
func FormatNumeric(value any, nf NumberFormat) any {
	var n float64
	switch t := value.(type) {
	case nil:
		return nil
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case int32:
		n = float64(t)
	default:
		return value
	}
	if math.IsNaN(n) {
		return nil
	}
	if math.IsInf(n, 0) {
		return nf.Prefix + strconv.FormatFloat(n, 'f', -1, 64) + nf.Suffix
	}

	decimals := nf.Decimals
	if decimals < 0 {
		decimals = 0
	}
	s := strconv.FormatFloat(math.Abs(n), 'f', decimals, 64)
	intPart, frac, _ := strings.Cut(s, ".")

	var grouped string
	if nf.Thousands == "" {
		grouped = intPart
	} else {
		bi, ok := new(big.Int).SetString(intPart, 10)
		if !ok {
			grouped = intPart
		} else {
			grouped = strings.ReplaceAll(humanize.BigComma(bi), ",", nf.Thousands)
		}
	}

	var b strings.Builder
	b.WriteString(nf.Prefix)
	if n < 0 && strings.Trim(s, "0.") != "" {
		b.WriteByte('-')
	}
	b.WriteString(grouped)
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	b.WriteString(nf.Suffix)
	return b.String()
}

// FormatNumericColumn formats every value of column in place.
func FormatNumericColumn(f *frame.Frame, column string, nf NumberFormat) error {
	return mapColumn(f, column, func(v any) any { return FormatNumeric(v, nf) })
}

// ReplaceWithSlice returns a new slice in which the first occurrence of
// match in main is replaced by the elements of insert.
func ReplaceWithSlice[T comparable](main, insert []T, match T) ([]T, error) {
	for i, v := range main {
		if v != match {
			continue
		}
		out := make([]T, 0, len(main)-1+len(insert))
		out = append(out, main[:i]...)
		out = append(out, insert...)
		return append(out, main[i+1:]...), nil
	}
	return nil, dataerr.Newf(dataerr.KindInvalidParameters, "%v is not in list", match)
}

func mapColumn(f *frame.Frame, column string, fn func(any) any) error {
	vals, ok := f.Column(column)
	if !ok {
		return dataerr.Newf(dataerr.KindInvalidParameters, "Column '%s' not found", column)
	}
	for i, v := range vals {
		vals[i] = fn(v)
	}
	return f.SetColumn(column, vals)
}
