// Package file implements a local filesystem data source.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"herbot/internal/dataerr"
)

// Local opens a file from the local disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

func (l *Local) String() string { return l.path }

// Open opens the file for reading. A missing file yields a
// *dataerr.PathNotFoundError that still matches fs.ErrNotExist. A canceled
// context is reported without touching the filesystem.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fi, err := os.Stat(l.path)
	if err != nil {
		return nil, l.wrap(err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("open %s: is a directory", l.path)
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, l.wrap(err)
	}
	return f, nil
}

// Size returns the file size in bytes.
func (l *Local) Size(context.Context) (int64, error) {
	fi, err := os.Stat(l.path)
	if err != nil {
		return -1, l.wrap(err)
	}
	return fi.Size(), nil
}

func (l *Local) wrap(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return &dataerr.PathNotFoundError{Path: l.path, Err: err}
	}
	return fmt.Errorf("open %s: %w", l.path, err)
}
