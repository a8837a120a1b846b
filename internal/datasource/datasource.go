// Package datasource defines where QC exports are read from.
package datasource

import (
	"context"
	"io"
)

// Source is one readable QC export.
type Source interface {
	// Name is the file name recorded on every record built from the source.
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}
