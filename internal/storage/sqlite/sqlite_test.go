package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herbot/internal/dataerr"
	"herbot/internal/ddl"
	"herbot/internal/frame"
	"herbot/internal/logging/logtest"
	"herbot/internal/storage"
)

func openTemp(t *testing.T) *storage.Client {
	t.Helper()
	path := filepath.Join(t.TempDir(), "herbot.db")
	c, err := storage.Open(context.Background(), storage.Config{Kind: Name, Database: path}, logtest.New(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func calls() *frame.Frame {
	return frame.MustFromRows([]string{"id", "caller", "minutes", "answered"}, [][]any{
		{int64(1), "alice", 2.5, true},
		{int64(2), nil, 0.75, false},
		{int64(3), "carol", 10.0, true},
	})
}

func TestWriteAndQuery(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t)

	n, err := c.WriteFrame(ctx, calls(), "calls", storage.WriteOptions{ChunkSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	ok, err := c.TableExists(ctx, "calls", "")
	require.NoError(t, err)
	assert.True(t, ok)

	out, err := c.Query(ctx, "SELECT id, caller, minutes, answered FROM calls ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "caller", "minutes", "answered"}, out.Columns())
	assert.Equal(t, []any{int64(1), "alice", 2.5, int64(1)}, out.Row(0))
	assert.Equal(t, []any{int64(2), nil, 0.75, int64(0)}, out.Row(1))
}

func TestWritePolicies(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t)

	_, err := c.WriteFrame(ctx, calls(), "calls", storage.WriteOptions{})
	require.NoError(t, err)

	_, err = c.WriteFrame(ctx, calls(), "calls", storage.WriteOptions{})
	assert.ErrorIs(t, err, dataerr.ErrSQLExecution)

	_, err = c.WriteFrame(ctx, calls(), "calls", storage.WriteOptions{IfExists: storage.IfExistsAppend})
	require.NoError(t, err)
	assertCount(t, c, 6)

	_, err = c.WriteFrame(ctx, calls().Head(1), "calls", storage.WriteOptions{IfExists: storage.IfExistsReplace})
	require.NoError(t, err)
	assertCount(t, c, 1)
}

func TestBulkInsertAndExec(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t)

	require.NoError(t, c.CreateTableFromFrame(ctx, calls(), "calls", "", map[string]string{"minutes": "NUMERIC"}))
	err := c.CreateTableFromFrame(ctx, calls(), "calls", "", nil)
	assert.ErrorIs(t, err, dataerr.ErrSQLExecution)

	n, err := c.BulkInsert(ctx, calls(), "calls", "", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	affected, err := c.ExecNonQuery(ctx, "DELETE FROM calls WHERE answered = {flag}", map[string]string{"flag": "1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assertCount(t, c, 1)
}

func assertCount(t *testing.T, c *storage.Client, want int64) {
	t.Helper()
	out, err := c.Query(context.Background(), "SELECT COUNT(*) AS n FROM calls")
	require.NoError(t, err)
	assert.Equal(t, want, out.Value(0, "n"))
}

func TestDialect(t *testing.T) {
	d := Dialect{}
	dsn, err := d.DSN(storage.Config{Database: "/tmp/x.db"})
	require.NoError(t, err)
	assert.Equal(t, "file:/tmp/x.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(30000)", dsn)

	assert.Equal(t, "INTEGER", d.MapType(ddl.KindBool))
	assert.Equal(t, "REAL", d.MapType(ddl.KindFloat))
	assert.Equal(t, "TEXT", d.MapType(ddl.KindTimestamp))

	q, args := d.TableExistsSQL(storage.TableName{Table: "calls"})
	assert.Equal(t, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", q)
	assert.Equal(t, []any{"calls"}, args)
}
