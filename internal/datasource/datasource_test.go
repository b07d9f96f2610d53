package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"herbot/internal/datasource/file"
	"herbot/internal/datasource/httpds"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		path     string
		wantHTTP bool
		wantStr  string
	}{
		{"data/in.csv", false, "data/in.csv"},
		{"file:///tmp/in.csv", false, "/tmp/in.csv"},
		{"https://example.com/in.csv", true, "https://example.com/in.csv"},
		{"HTTP://example.com/in.csv", true, "HTTP://example.com/in.csv"},
	}
	for _, tt := range tests {
		src := Resolve(tt.path, nil)
		if tt.wantHTTP {
			assert.IsType(t, &httpds.Source{}, src, tt.path)
		} else {
			assert.IsType(t, &file.Local{}, src, tt.path)
		}
		assert.Equal(t, tt.wantStr, src.String())
	}
}
