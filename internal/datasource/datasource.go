// Package datasource resolves dataset paths to byte sources.
package datasource

import (
	"context"
	"io"
	"strings"

	"herbot/internal/datasource/file"
	"herbot/internal/datasource/httpds"
)

// Source yields the raw bytes of a dataset.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Size returns the byte size, or -1 when unknown.
	Size(ctx context.Context) (int64, error)
	String() string
}

var (
	_ Source = (*file.Local)(nil)
	_ Source = (*httpds.Source)(nil)
)

// Resolve picks an HTTP source for http(s) URLs and a local file otherwise.
// A nil client gets a default one.
func Resolve(path string, client *httpds.Client) Source {
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if client == nil {
			client = httpds.NewClient(httpds.Config{}, nil)
		}
		return httpds.NewSource(client, path)
	}
	return file.NewLocal(strings.TrimPrefix(path, "file://"))
}
