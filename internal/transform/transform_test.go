package transform

import (
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herbot/internal/dataerr"
	"herbot/internal/frame"
	"herbot/internal/logging/logtest"
)

func messyFrame() *frame.Frame {
	return frame.MustFromRows(
		[]string{" Column A ", "Column-B", "Column(C)", "Column/D", "Column.E", "Column F"},
		[][]any{{1, 3, 5, 7, 9, 11}, {2, 4, 6, 8, 10, 12}},
	)
}

func TestNormaliseColumnNames(t *testing.T) {
	tests := []struct {
		name string
		opt  NormaliseOptions
		want []string
	}{
		{"defaults", NormaliseOptions{}, []string{"column_a", "columnb", "columnc", "column_d", "column_e", "column_f"}},
		{"keep case", NormaliseOptions{KeepCase: true}, []string{"Column_A", "ColumnB", "ColumnC", "Column_D", "Column_E", "Column_F"}},
		{"no strip", NormaliseOptions{NoStrip: true}, []string{"_column_a_", "columnb", "columnc", "column_d", "column_e", "column_f"}},
		{
			"custom replacements",
			NormaliseOptions{Replace: []Replacement{{From: " ", To: " "}}},
			[]string{"column a", "column-b", "column(c)", "column/d", "column.e", "column f"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := messyFrame()
			got, err := NormaliseColumnNames(in, tt.opt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Columns())
			assert.Equal(t, " Column A ", in.Columns()[0], "input is not modified")
		})
	}
}

func TestNormaliseAccentsAndCollisions(t *testing.T) {
	assert.Equal(t, "cafe_creme", NormaliseName("Café Crème", NormaliseOptions{StripAccents: true}))
	assert.Equal(t, "café_crème", NormaliseName("Café Crème", NormaliseOptions{}))

	f := frame.New("a b", "a_b")
	_, err := NormaliseColumnNames(f, NormaliseOptions{})
	assert.Error(t, err)
}

func TestBatchNormalise(t *testing.T) {
	_, err := BatchNormalise(nil, NormaliseOptions{})
	assert.ErrorIs(t, err, dataerr.ErrNoDataProvided)

	out, err := BatchNormalise(map[string]*frame.Frame{
		"one": frame.New("Col A"),
		"two": frame.New("Col-B"),
	}, NormaliseOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"col_a"}, out["one"].Columns())
	assert.Equal(t, []string{"colb"}, out["two"].Columns())
}

func TestUnNormaliseColumnNames(t *testing.T) {
	tests := []struct {
		in, want []string
	}{
		{[]string{"column_a"}, []string{"Column A"}},
		{[]string{"Column B"}, []string{"Column B"}},
		{[]string{""}, []string{""}},
		{[]string{"column_c", "column_d"}, []string{"Column C", "Column D"}},
		{[]string{"column__e"}, []string{"Column  E"}},
	}
	for _, tt := range tests {
		got, err := UnNormaliseColumnNames(frame.New(tt.in...))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.Columns())
	}
}

func TestConvertValuesTo(t *testing.T) {
	match := []any{"DEV34", "DEV35"}
	tests := []struct {
		value  any
		match  []any
		to     any
		invert bool
		want   any
	}{
		{"DEV36", match, "DEV02", false, "DEV36"},
		{"DEV34", match, "DEV02", false, "DEV02"},
		{"DEV36", match, "DEV02", true, "DEV02"},
		{"DEV34", match, "DEV02", true, "DEV34"},
		{123, nil, 456, false, 123},
		{789, []any{123, 456}, 101, false, 789},
		{123, []any{123, 456}, 101, false, 101},
		{int64(123), []any{123.0}, 101, false, 101},
		{[]int{1, 2, 3}, []any{[]int{1, 2, 3}, []int{4, 5, 6}}, []int{7, 8, 9}, false, []int{7, 8, 9}},
		{nil, []any{nil}, "x", false, "x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ConvertValuesTo(tt.value, tt.match, tt.to, tt.invert), "%v", tt.value)
	}
}

func TestConvertColumnValuesTo(t *testing.T) {
	f := frame.MustFromRows([]string{"code"}, [][]any{{"DEV34"}, {"DEV36"}})
	require.NoError(t, ConvertColumnValuesTo(f, "code", []any{"DEV34"}, "DEV02", false))
	col, _ := f.Column("code")
	assert.Equal(t, []any{"DEV02", "DEV36"}, col)

	assert.ErrorIs(t, ConvertColumnValuesTo(f, "nope", nil, nil, false), dataerr.ErrInvalidParameters)
}

func TestConvertToNumeric(t *testing.T) {
	got := ConvertToNumeric([]any{"1,234", "12.5", "abc", nil, int64(7), math.NaN(), " 3 "})
	assert.Equal(t, []any{1234.0, 12.5, nil, nil, 7.0, nil, 3.0}, got)
}

func TestFormatNumeric(t *testing.T) {
	def := DefaultNumberFormat()
	tests := []struct {
		value any
		nf    NumberFormat
		want  any
	}{
		{1234.5, def, "1,234.50"},
		{1234567, def, "1,234,567.00"},
		{-1234.567, def, "-1,234.57"},
		{0.5, NumberFormat{Decimals: 0}, "0"},
		{1234.5, NumberFormat{Decimals: 1, Thousands: " ", Prefix: "£", Suffix: "k"}, "£1 234.5k"},
		{12, NumberFormat{Decimals: 0, Thousands: ","}, "12"},
		{nil, def, nil},
		{math.NaN(), def, nil},
		{"text", def, "text"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNumeric(tt.value, tt.nf), "%v", tt.value)
	}
}

func TestFormatNumericColumn(t *testing.T) {
	f := frame.MustFromRows([]string{"cost"}, [][]any{{1000.0}, {nil}})
	require.NoError(t, FormatNumericColumn(f, "cost", DefaultNumberFormat()))
	col, _ := f.Column("cost")
	assert.Equal(t, []any{"1,000.00", nil}, col)
}

func TestReplaceWithSlice(t *testing.T) {
	got, err := ReplaceWithSlice([]string{"a", "b", "c", "b"}, []string{"x", "y"}, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "x", "y", "c", "b"}, got)

	ints, err := ReplaceWithSlice([]int{1, 2}, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ints)

	_, err = ReplaceWithSlice([]string{"a"}, []string{"x"}, "z")
	assert.ErrorIs(t, err, dataerr.ErrInvalidParameters)
}

func TestCheckDuplicates(t *testing.T) {
	f := frame.MustFromRows([]string{"id", "v"}, [][]any{{1, "a"}, {1, "b"}, {2, "c"}, {1.0, "d"}})

	rec := &dataerr.Recorder{}
	n, err := CheckDuplicates(f, []string{"id"}, false, rec)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, rec.Warnings(), 1)
	assert.Equal(t, dataerr.DuplicateDataWarning, rec.Warnings()[0].Kind)
	assert.Equal(t, "There are 2 duplicate rows on ['id']", rec.Warnings()[0].Message)

	_, err = CheckDuplicates(f, []string{"id"}, true, nil)
	assert.ErrorIs(t, err, dataerr.ErrDuplicateData)

	n, err = CheckDuplicates(f, []string{"id", "v"}, true, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = CheckDuplicates(f, []string{"missing"}, false, nil)
	var cnf *dataerr.ColumnsNotFoundError
	assert.ErrorAs(t, err, &cnf)
}

func TestTimed(t *testing.T) {
	rec := &logtest.Recorder{}
	func() {
		defer Timed(rec, "load")()
	}()
	msgs := rec.Messages(slog.LevelDebug)
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasPrefix(msgs[0], "Function 'load' executed in "), msgs[0])
}

type upper struct{ col string }

func (u upper) Name() string { return "upper" }

func (u upper) Apply(f *frame.Frame) (*frame.Frame, error) {
	out := f.Clone()
	return out, mapColumn(out, u.col, func(v any) any { return strings.ToUpper(v.(string)) })
}

func TestChain(t *testing.T) {
	f := frame.MustFromRows([]string{"a"}, [][]any{{"x"}})
	out, err := Chain{upper{"a"}}.Apply(f)
	require.NoError(t, err)
	assert.Equal(t, "X", out.Value(0, "a"))
	assert.Equal(t, "x", f.Value(0, "a"))

	_, err = Chain{upper{"b"}}.Apply(f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transform upper")
}
