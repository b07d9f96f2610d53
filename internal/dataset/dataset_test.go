package dataset

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herbot/internal/dataerr"
	"herbot/internal/frame"
	"herbot/internal/logging/logtest"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadCSV(t *testing.T) {
	p := writeFile(t, "test.csv", "col1,col2\n1,a\n,\n2,b\n")
	rec := &logtest.Recorder{}
	l := &Loader{Log: rec}

	f, err := l.LoadCSV(context.Background(), "test", Spec{Path: p})
	require.NoError(t, err)

	assert.Equal(t, []string{"col1", "col2"}, f.Columns())
	assert.Equal(t, 2, f.Len(), "all-missing row is dropped")
	assert.Equal(t, []any{int64(1), "a"}, f.Row(0))
	assert.Equal(t, []any{int64(2), "b"}, f.Row(1))
	assert.Contains(t, rec.Messages(slog.LevelInfo), "Loading test data from: "+p)
}

func TestLoadCSVNoPath(t *testing.T) {
	l := &Loader{}
	_, err := l.LoadCSV(context.Background(), "test", Spec{})
	require.Error(t, err)
	assert.ErrorIs(t, err, dataerr.ErrNoFilePathProvided)
	assert.Equal(t, "No file path provided.", err.Error())
}

func TestLoadMissingFile(t *testing.T) {
	l := &Loader{}
	_, err := l.Load(context.Background(), "x", Spec{Path: filepath.Join(t.TempDir(), "nope.csv")})
	var pnf *dataerr.PathNotFoundError
	require.True(t, errors.As(err, &pnf), "got %v", err)
}

func TestLoadOptions(t *testing.T) {
	p := writeFile(t, "semi.txt", "code;name\n007;x\n")
	l := &Loader{}

	f, err := l.Load(context.Background(), "s", Spec{Path: p, Delimiter: ";"})
	require.NoError(t, err)
	assert.Equal(t, "007", f.Value(0, "code"), "leading zeros keep string")

	f, err = l.Load(context.Background(), "s", Spec{
		Path:      p,
		Delimiter: ";",
		HeaderMap: map[string]string{"name": "label"},
	})
	require.NoError(t, err)
	assert.True(t, f.Has("label"))
}

func TestLoadHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("a,b\n1,2\n"))
	}))
	defer srv.Close()

	l := &Loader{}
	f, err := l.Load(context.Background(), "remote", Spec{Path: srv.URL + "/data.csv"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.Len())
	assert.Equal(t, int64(2), f.Value(0, "b"))
}

func TestResolvedFormat(t *testing.T) {
	assert.Equal(t, FormatXLSX, Spec{Path: "a/B.XLSX"}.ResolvedFormat())
	assert.Equal(t, FormatCSV, Spec{Path: "a/b.csv"}.ResolvedFormat())
	assert.Equal(t, FormatCSV, Spec{Path: "a/b"}.ResolvedFormat())
	assert.Equal(t, FormatXLSX, Spec{Path: "a/b.csv", Format: FormatXLSX}.ResolvedFormat())
}

func TestLoadAll(t *testing.T) {
	a := writeFile(t, "a.csv", "x\n1\n")
	b := writeFile(t, "b.csv", "y\n2\n3\n")
	l := &Loader{Concurrency: 1}

	got, err := l.LoadAll(context.Background(), map[string]Spec{
		"a": {Path: a},
		"b": {Path: b},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got["a"].Len())
	assert.Equal(t, 2, got["b"].Len())
}

func TestLoadAllErrors(t *testing.T) {
	l := &Loader{}

	_, err := l.LoadAll(context.Background(), nil)
	assert.ErrorIs(t, err, dataerr.ErrNoDatasetsProvided)
	assert.Equal(t, "No datasets provided.", err.Error())

	ok := writeFile(t, "ok.csv", "x\n1\n")
	_, err = l.LoadAll(context.Background(), map[string]Spec{
		"ok":  {Path: ok},
		"bad": {},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, dataerr.ErrNoFilePathProvided)
	assert.Contains(t, err.Error(), `load dataset "bad"`)
}

func TestGet(t *testing.T) {
	ds := map[string]*frame.Frame{
		"devices": frame.New("a"),
		"calls":   frame.New("b"),
	}
	f, err := Get(ds, "devices")
	require.NoError(t, err)
	assert.Same(t, ds["devices"], f)

	_, err = Get(ds, "missing")
	assert.ErrorIs(t, err, dataerr.ErrDatasetNotFound)
	assert.Equal(t, "Dataset 'missing' not found. Available datasets: ['calls', 'devices']", err.Error())
}
