package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Frame {
	return MustFromRows(
		[]string{"col1", "col2"},
		[][]any{{"foo", "bar"}, {"baz", nil}, {nil, nil}},
	)
}

func TestFromRows(t *testing.T) {
	t.Run("duplicate column", func(t *testing.T) {
		_, err := FromRows([]string{"a", "a"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `duplicate column "a"`)
	})

	t.Run("ragged row", func(t *testing.T) {
		_, err := FromRows([]string{"a", "b"}, [][]any{{1}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "row 0")
	})

	t.Run("shape", func(t *testing.T) {
		f := sample()
		assert.Equal(t, 3, f.Len())
		assert.Equal(t, 2, f.Width())
		assert.Equal(t, []string{"col1", "col2"}, f.Columns())
		assert.Equal(t, "baz", f.Value(1, "col1"))
		assert.Nil(t, f.Value(1, "missing"))
	})
}

func TestFromRecords(t *testing.T) {
	f, err := FromRecords([]string{"a", "b"}, []map[string]any{
		{"a": 1, "b": 2, "c": 3},
		{"a": 4},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, f.Row(0))
	assert.Equal(t, []any{4, nil}, f.Row(1))
	assert.Equal(t, map[string]any{"a": 4, "b": nil}, f.Records()[1])
}

func TestColumnsAreCopies(t *testing.T) {
	f := sample()
	cols := f.Columns()
	cols[0] = "changed"
	vals, ok := f.Column("col1")
	require.True(t, ok)
	vals[0] = "changed"

	assert.Equal(t, "col1", f.Columns()[0])
	assert.Equal(t, "foo", f.Value(0, "col1"))
}

func TestAddAndSetColumn(t *testing.T) {
	f := sample()
	require.NoError(t, f.AddColumn("col3", []any{1, 2, 3}))
	assert.Equal(t, []string{"col1", "col2", "col3"}, f.Columns())

	assert.Error(t, f.AddColumn("col3", []any{1, 2, 3}))
	assert.Error(t, f.AddColumn("col4", []any{1}))

	require.NoError(t, f.SetColumn("col3", []any{"x", "y", "z"}))
	assert.Equal(t, "z", f.Value(2, "col3"))

	empty := New()
	require.NoError(t, empty.AddColumn("only", []any{1, 2}))
	assert.Equal(t, 2, empty.Len())
}

func TestRename(t *testing.T) {
	f := sample()
	require.NoError(t, f.Rename(map[string]string{"col1": "first", "nope": "x"}))
	assert.Equal(t, []string{"first", "col2"}, f.Columns())
	assert.True(t, f.Has("first"))
	assert.False(t, f.Has("col1"))

	err := f.Rename(map[string]string{"first": "col2"})
	assert.Error(t, err)
}

func TestDropSelect(t *testing.T) {
	f := sample()
	d := f.Drop("col1", "unknown")
	assert.Equal(t, []string{"col2"}, d.Columns())
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, []string{"col1", "col2"}, f.Columns(), "receiver untouched")

	s, err := f.Select("col2", "col1")
	require.NoError(t, err)
	assert.Equal(t, []any{"bar", "foo"}, s.Row(0))

	_, err = f.Select("nope")
	assert.Error(t, err)
}

func TestDropEmptyRows(t *testing.T) {
	got := sample().DropEmptyRows()
	assert.Equal(t, 2, got.Len())
	assert.Equal(t, []any{"baz", nil}, got.Row(1))
}

func TestHeadAndFilter(t *testing.T) {
	f := sample()
	assert.Equal(t, 2, f.Head(2).Len())
	assert.Equal(t, 3, f.Head(10).Len())
	assert.Equal(t, 0, f.Head(-1).Len())

	got := f.Filter(func(r int) bool { return f.Value(r, "col1") != nil })
	assert.Equal(t, 2, got.Len())
}

func TestValueCounts(t *testing.T) {
	f := MustFromRows([]string{"m"}, [][]any{{"both"}, {"left_only"}, {"both"}, {nil}})
	got, err := f.ValueCounts("m")
	require.NoError(t, err)
	assert.Equal(t, []ValueCount{{"both", 2}, {"left_only", 1}, {nil, 1}}, got)

	assert.Equal(t, 2, f.CountWhere("m", func(v any) bool { return v == "both" }))
	assert.Equal(t, 0, f.CountWhere("missing", func(any) bool { return true }))
}

func TestSortByPriority(t *testing.T) {
	f := MustFromRows([]string{"k", "n"}, [][]any{
		{"low", 1}, {"other", 2}, {"high", 3}, {"mid", 4}, {"high", 5},
	})
	got, err := f.SortByPriority("k", []string{"high", "mid", "low"})
	require.NoError(t, err)

	n, _ := got.Column("n")
	assert.Equal(t, []any{3, 5, 4, 1, 2}, n)

	_, err = f.SortByPriority("missing", nil)
	assert.Error(t, err)
}

func TestDuplicated(t *testing.T) {
	f := MustFromRows([]string{"id", "v"}, [][]any{
		{1, "a"}, {1.0, "b"}, {"1", "c"}, {nil, "d"}, {nil, "d"},
	})

	byID, err := f.Duplicated("id")
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, false, false, true}, byID)

	whole, err := f.Duplicated()
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false, false, true}, whole)

	_, err = f.Duplicated("nope")
	assert.Error(t, err)
}

func TestKeyOf(t *testing.T) {
	k1, null1 := KeyOf("a", 1)
	k2, null2 := KeyOf("a", int64(1))
	assert.Equal(t, k1, k2)
	assert.False(t, null1 || null2)

	_, hasNull := KeyOf("a", nil)
	assert.True(t, hasNull)

	a, _ := KeyOf("ab", "c")
	b, _ := KeyOf("a", "bc")
	assert.NotEqual(t, a, b)

	// Separator-like bytes inside a value must not shift the boundary.
	a, _ = KeyOf("x\x1fs:y", "z")
	b, _ = KeyOf("x", "y\x1fs:z")
	assert.NotEqual(t, a, b)
	a, _ = KeyOf("1:s:a", "")
	b, _ = KeyOf("", "1:s:a")
	assert.NotEqual(t, a, b)
}

func TestEqual(t *testing.T) {
	assert.True(t, sample().Equal(sample()))
	assert.False(t, sample().Equal(sample().Drop("col2")))
	var nilFrame *Frame
	assert.False(t, sample().Equal(nilFrame))
}

func TestUniqueNames(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "a.1", "a.2"}, UniqueNames([]string{"a", "b", "a", "a"}))
	assert.Equal(t, []string{"a", "a.1", "a.2"}, UniqueNames([]string{"a", "a.1", "a"}))
}
