package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"herbot/internal/frame"
)

func calls() *frame.Frame {
	return frame.MustFromRows([]string{"id", "caller", "minutes", "day"}, [][]any{
		{int64(1), "alice, jr", 2.5, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
		{int64(2), nil, 10.0, time.Date(2024, 4, 2, 9, 30, 0, 0, time.UTC)},
	})
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "x", FormatValue([]byte("x")))
	assert.Equal(t, "0.1", FormatValue(0.1))
	assert.Equal(t, "10", FormatValue(10.0))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "2024-04-01", FormatValue(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-04-01 09:30:00", FormatValue(time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC)))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, calls()))
	assert.Equal(t,
		"id,caller,minutes,day\n1,\"alice, jr\",2.5,2024-04-01\n2,,10,2024-04-02 09:30:00\n",
		buf.String())
}

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	require.NoError(t, WriteCSVFile(path, calls().Head(1)))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,caller,minutes,day\n1,\"alice, jr\",2.5,2024-04-01\n", string(b))
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteXLSX(path, "Calls", calls()))

	wb, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"Calls"}, wb.GetSheetList())
	rows, err := wb.GetRows("Calls")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "caller", "minutes", "day"}, rows[0])
	assert.Equal(t, "alice, jr", rows[1][1])
	assert.Equal(t, "", rows[2][1])
	assert.Equal(t, "10", rows[2][2])
}

func TestWriteXLSXDefaultSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteXLSX(path, "", calls()))

	wb, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{DefaultSheet}, wb.GetSheetList())
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	RenderTable(&buf, calls(), 0)
	out := buf.String()
	assert.Contains(t, out, "CALLER")
	assert.Contains(t, out, "alice, jr")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(2 rows)")

	buf.Reset()
	RenderTable(&buf, calls(), 1)
	assert.Contains(t, buf.String(), "(showing 1 of 2 rows)")
	assert.NotContains(t, buf.String(), "NULL")

	buf.Reset()
	RenderTable(&buf, frame.New("a"), 5)
	assert.Equal(t, "(0 rows)\n", buf.String())
}
