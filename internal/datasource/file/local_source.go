// Package file implements the filesystem side of ingestion: opening single
// exports, listing a platform folder and watching it for new exports.
package file

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"

	"qcingest/internal/datasource"
)

// Local is a data source backed by one file on an afero filesystem.
type Local struct {
	fs   afero.Fs
	path string
}

var _ datasource.Source = (*Local)(nil)

// NewLocal returns a Local bound to path on fsys. A nil fsys means the OS
// filesystem.
func NewLocal(fsys afero.Fs, path string) *Local {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Local{fs: fsys, path: path}
}

// Name returns the base name of the file.
func (l *Local) Name() string { return filepath.Base(l.path) }

// Path returns the full path the source was created with.
func (l *Local) Path() string { return l.path }

// Open opens the file for reading. A context that is already done short
// circuits without touching the filesystem. Filesystem errors are wrapped with
// the path and keep their identity for errors.Is.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := l.fs.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}
