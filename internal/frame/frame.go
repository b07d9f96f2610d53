// Package frame implements the small in-memory table used throughout herbot.
//
// A Frame is an ordered set of uniquely named columns. Every column holds one
// value per row; values are dynamically typed and nil is the missing-value
// marker. Methods that reshape a frame return a new Frame and leave the
// receiver untouched; AppendRow, AddColumn, SetColumn and Rename mutate in
// place.
//
// Frames are not safe for concurrent mutation.
package frame

import (
	"fmt"
	"reflect"
	"sort"
)

// Frame is an ordered collection of named columns.
type Frame struct {
	names []string
	index map[string]int
	cols  [][]any
	rows  int
}

// New returns an empty frame with the given columns. It panics on duplicate
// column names; use FromRows when the names come from untrusted input.
func New(columns ...string) *Frame {
	f, err := FromRows(columns, nil)
	if err != nil {
		panic(err)
	}
	return f
}

// FromRows builds a frame from row-major data. Every row must have exactly
// len(columns) values.
func FromRows(columns []string, rows [][]any) (*Frame, error) {
	f := &Frame{
		names: make([]string, 0, len(columns)),
		index: make(map[string]int, len(columns)),
		cols:  make([][]any, 0, len(columns)),
	}
	for _, name := range columns {
		if _, dup := f.index[name]; dup {
			return nil, fmt.Errorf("frame: duplicate column %q", name)
		}
		f.index[name] = len(f.names)
		f.names = append(f.names, name)
		f.cols = append(f.cols, make([]any, 0, len(rows)))
	}
	for i, row := range rows {
		if err := f.AppendRow(row...); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return f, nil
}

// MustFromRows is FromRows that panics on error. Intended for literals.
func MustFromRows(columns []string, rows [][]any) *Frame {
	f, err := FromRows(columns, rows)
	if err != nil {
		panic(err)
	}
	return f
}

// FromRecords builds a frame from map-shaped rows. Keys absent from a record
// become nil; keys not listed in columns are ignored.
func FromRecords(columns []string, recs []map[string]any) (*Frame, error) {
	f, err := FromRows(columns, nil)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		row := make([]any, len(columns))
		for i, c := range columns {
			row[i] = rec[c]
		}
		if err := f.AppendRow(row...); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Columns returns a copy of the column names in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.rows }

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.names) }

// Has reports whether the frame has a column with the given name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Index returns the position of a column, or -1.
func (f *Frame) Index(name string) int {
	if i, ok := f.index[name]; ok {
		return i
	}
	return -1
}

// Column returns a copy of the named column's values.
func (f *Frame) Column(name string) ([]any, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	out := make([]any, len(f.cols[i]))
	copy(out, f.cols[i])
	return out, true
}

// Value returns the value at row i of the named column, or nil if the column
// does not exist.
func (f *Frame) Value(row int, name string) any {
	i, ok := f.index[name]
	if !ok {
		return nil
	}
	return f.cols[i][row]
}

// Row returns a copy of row i in column order.
func (f *Frame) Row(i int) []any {
	out := make([]any, len(f.cols))
	for c := range f.cols {
		out[c] = f.cols[c][i]
	}
	return out
}

// Records returns the rows as maps keyed by column name.
func (f *Frame) Records() []map[string]any {
	out := make([]map[string]any, f.rows)
	for r := 0; r < f.rows; r++ {
		rec := make(map[string]any, len(f.names))
		for c, name := range f.names {
			rec[name] = f.cols[c][r]
		}
		out[r] = rec
	}
	return out
}

// AppendRow appends one row. The number of values must equal Width.
func (f *Frame) AppendRow(values ...any) error {
	if len(values) != len(f.names) {
		return fmt.Errorf("frame: row has %d values, want %d", len(values), len(f.names))
	}
	for c, v := range values {
		f.cols[c] = append(f.cols[c], v)
	}
	f.rows++
	return nil
}

// AddColumn appends a new column. A frame without columns adopts the length
// of the first column added; otherwise len(values) must equal Len.
func (f *Frame) AddColumn(name string, values []any) error {
	if f.Has(name) {
		return fmt.Errorf("frame: duplicate column %q", name)
	}
	if len(f.names) > 0 && len(values) != f.rows {
		return fmt.Errorf("frame: column %q has %d values, want %d", name, len(values), f.rows)
	}
	col := make([]any, len(values))
	copy(col, values)
	f.index[name] = len(f.names)
	f.names = append(f.names, name)
	f.cols = append(f.cols, col)
	f.rows = len(values)
	return nil
}

// SetColumn replaces the values of an existing column or adds a new one.
func (f *Frame) SetColumn(name string, values []any) error {
	i, ok := f.index[name]
	if !ok {
		return f.AddColumn(name, values)
	}
	if len(values) != f.rows {
		return fmt.Errorf("frame: column %q has %d values, want %d", name, len(values), f.rows)
	}
	col := make([]any, len(values))
	copy(col, values)
	f.cols[i] = col
	return nil
}

// Rename renames columns in place. Names not present are ignored. The
// resulting column set must still be unique.
func (f *Frame) Rename(mapping map[string]string) error {
	next := make([]string, len(f.names))
	seen := make(map[string]int, len(f.names))
	for i, name := range f.names {
		if to, ok := mapping[name]; ok {
			name = to
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("frame: rename produces duplicate column %q", name)
		}
		seen[name] = i
		next[i] = name
	}
	f.names = next
	f.index = seen
	return nil
}

// Drop returns a new frame without the given columns. Unknown names are
// ignored.
func (f *Frame) Drop(columns ...string) *Frame {
	skip := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		skip[c] = struct{}{}
	}
	keep := make([]string, 0, len(f.names))
	for _, name := range f.names {
		if _, ok := skip[name]; !ok {
			keep = append(keep, name)
		}
	}
	out, _ := f.Select(keep...)
	return out
}

// Select returns a new frame with only the given columns, in the given order.
func (f *Frame) Select(columns ...string) (*Frame, error) {
	out := &Frame{
		names: make([]string, 0, len(columns)),
		index: make(map[string]int, len(columns)),
		cols:  make([][]any, 0, len(columns)),
		rows:  f.rows,
	}
	for _, name := range columns {
		i, ok := f.index[name]
		if !ok {
			return nil, fmt.Errorf("frame: unknown column %q", name)
		}
		if _, dup := out.index[name]; dup {
			return nil, fmt.Errorf("frame: duplicate column %q", name)
		}
		col := make([]any, len(f.cols[i]))
		copy(col, f.cols[i])
		out.index[name] = len(out.names)
		out.names = append(out.names, name)
		out.cols = append(out.cols, col)
	}
	return out, nil
}

// Clone returns a copy of the frame. Values are copied shallowly.
func (f *Frame) Clone() *Frame {
	out, _ := f.Select(f.names...)
	return out
}

// Take returns a new frame made of the given rows, in order.
func (f *Frame) Take(rows []int) *Frame {
	out := &Frame{
		names: f.Columns(),
		index: make(map[string]int, len(f.names)),
		cols:  make([][]any, len(f.names)),
		rows:  len(rows),
	}
	for c, name := range f.names {
		out.index[name] = c
		col := make([]any, len(rows))
		for i, r := range rows {
			col[i] = f.cols[c][r]
		}
		out.cols[c] = col
	}
	return out
}

// Filter returns the rows for which keep returns true.
func (f *Frame) Filter(keep func(row int) bool) *Frame {
	idx := make([]int, 0, f.rows)
	for r := 0; r < f.rows; r++ {
		if keep(r) {
			idx = append(idx, r)
		}
	}
	return f.Take(idx)
}

// Head returns the first n rows.
func (f *Frame) Head(n int) *Frame {
	if n > f.rows {
		n = f.rows
	}
	if n < 0 {
		n = 0
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return f.Take(idx)
}

// DropEmptyRows removes rows in which every value is nil.
func (f *Frame) DropEmptyRows() *Frame {
	return f.Filter(func(r int) bool {
		for c := range f.cols {
			if f.cols[c][r] != nil {
				return true
			}
		}
		return false
	})
}

// CountWhere counts rows of a column whose value satisfies match. An unknown
// column counts zero.
func (f *Frame) CountWhere(name string, match func(v any) bool) int {
	i, ok := f.index[name]
	if !ok {
		return 0
	}
	n := 0
	for _, v := range f.cols[i] {
		if match(v) {
			n++
		}
	}
	return n
}

// ValueCount is one distinct value of a column and its frequency.
type ValueCount struct {
	Value any
	Count int
}

// ValueCounts returns the distinct values of a column in order of first
// appearance, with their counts.
func (f *Frame) ValueCounts(name string) ([]ValueCount, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("frame: unknown column %q", name)
	}
	pos := map[string]int{}
	var out []ValueCount
	for _, v := range f.cols[i] {
		k := encodeValue(v)
		if p, seen := pos[k]; seen {
			out[p].Count++
			continue
		}
		pos[k] = len(out)
		out = append(out, ValueCount{Value: v, Count: 1})
	}
	return out, nil
}

// SortByPriority returns a copy of the frame stably sorted so that rows whose
// value in column appears earlier in priorities come first. Values not listed
// sort after all listed ones, keeping their relative order.
func (f *Frame) SortByPriority(column string, priorities []string) (*Frame, error) {
	i, ok := f.index[column]
	if !ok {
		return nil, fmt.Errorf("frame: unknown column %q", column)
	}
	rank := make(map[string]int, len(priorities))
	for p, v := range priorities {
		if _, seen := rank[v]; !seen {
			rank[v] = p
		}
	}
	rankOf := func(v any) int {
		if s, ok := v.(string); ok {
			if p, ok := rank[s]; ok {
				return p
			}
		}
		return len(priorities)
	}
	idx := make([]int, f.rows)
	for r := range idx {
		idx[r] = r
	}
	col := f.cols[i]
	sort.SliceStable(idx, func(a, b int) bool {
		return rankOf(col[idx[a]]) < rankOf(col[idx[b]])
	})
	return f.Take(idx), nil
}

// Equal reports whether two frames have the same columns, in the same order,
// with deeply equal values.
func (f *Frame) Equal(o *Frame) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.rows != o.rows || !reflect.DeepEqual(f.names, o.names) {
		return false
	}
	for c := range f.cols {
		if !reflect.DeepEqual(f.cols[c], o.cols[c]) {
			return false
		}
	}
	return true
}
