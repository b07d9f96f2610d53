package validate

import (
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herbot/internal/dataerr"
	"herbot/internal/frame"
	"herbot/internal/logging/logtest"
)

var tableColumns = []string{"col1", "col2", "col3"}

func TestFindMissing(t *testing.T) {
	tests := []struct {
		name  string
		table []string
		sets  []ColumnSet
		want  Report
	}{
		{
			name:  "all present",
			table: tableColumns,
			sets:  []ColumnSet{Set("a", "col1", "col2"), Set("b", "col3")},
			want:  nil,
		},
		{
			name:  "sorted difference",
			table: tableColumns,
			sets:  []ColumnSet{Set("a", "zeta", "col1", "alpha")},
			want:  Report{{Set: "a", Columns: []string{"alpha", "zeta"}}},
		},
		{
			name:  "duplicates collapse",
			table: tableColumns,
			sets:  []ColumnSet{Set("a", "x", "x", "col2")},
			want:  Report{{Set: "a", Columns: []string{"x"}}},
		},
		{
			name:  "sets evaluated independently",
			table: tableColumns,
			sets:  []ColumnSet{Set("a", "x", "col1"), Set("b", "x"), Set("c", "col2")},
			want: Report{
				{Set: "a", Columns: []string{"x"}},
				{Set: "b", Columns: []string{"x"}},
			},
		},
		{
			name:  "empty table misses everything",
			table: nil,
			sets:  []ColumnSet{Set("a", "col2", "col1")},
			want:  Report{{Set: "a", Columns: []string{"col1", "col2"}}},
		},
		{
			name:  "case sensitive",
			table: tableColumns,
			sets:  []ColumnSet{Set("a", "COL1")},
			want:  Report{{Set: "a", Columns: []string{"COL1"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindMissing(tt.table, tt.sets...))
		})
	}
}

func TestNewColumnsNotFoundError(t *testing.T) {
	err := NewColumnsNotFoundError(
		[]string{"col1"},
		"Test base message.",
		Set("column_set1", "test2", "test1"),
		Set("column_set2", "col1", "test3"),
	)

	var cnf *dataerr.ColumnsNotFoundError
	require.True(t, errors.As(err, &cnf))
	assert.True(t, strings.HasPrefix(err.Error(), "Test base message."))
	assert.Equal(t,
		"Test base message. MISSING COLUMNS: COLUMN_SET1: ['test1', 'test2'] COLUMN_SET2: ['test3']",
		err.Error())
}

func TestNewColumnsNotFoundErrorWithNothingMissing(t *testing.T) {
	err := NewColumnsNotFoundError(tableColumns, "base", Set("a", "col1"), Set("b", "col2", "col3"))

	var ri *dataerr.RaisedIncorrectlyError
	require.True(t, errors.As(err, &ri))
	assert.Equal(t, "ColumnsNotFoundError was potentially raised incorrectly.", err.Error())
	require.Error(t, errors.Unwrap(err))
	assert.Equal(t, "No missing columns found. This error might have raised in error.", errors.Unwrap(err).Error())

	var cnf *dataerr.ColumnsNotFoundError
	assert.False(t, errors.As(err, &cnf))
}

func TestRequireColumns(t *testing.T) {
	f := frame.New("col1", "col2")

	assert.NoError(t, RequireColumns(f, "", Set("keys", "col1")))

	err := RequireColumns(f, "", Set("keys", "col1", "col9"))
	var cnf *dataerr.ColumnsNotFoundError
	require.True(t, errors.As(err, &cnf))
	assert.Equal(t, dataerr.DefaultColumnsBase+" MISSING COLUMNS: KEYS: ['col9']", err.Error())
}

func TestValidatorLogsFailures(t *testing.T) {
	logs := &logtest.Recorder{}
	v := New(logs)
	f := frame.New("col1")

	require.NoError(t, v.Require(f, "", Set("a", "col1")))
	assert.Empty(t, logs.Entries())

	require.Error(t, v.Require(f, "Missing.", Set("a", "b")))
	require.Error(t, v.ColumnsNotFound(f.Columns(), "", Set("a", "col1")))

	assert.Equal(t, []string{
		"Missing. MISSING COLUMNS: A: ['b']",
		"ColumnsNotFoundError was potentially raised incorrectly.",
	}, logs.Messages(slog.LevelError))
}

func TestZeroValidatorDoesNotPanic(t *testing.T) {
	var v Validator
	assert.Error(t, v.Require(frame.New(), "", Set("a", "x")))
}
