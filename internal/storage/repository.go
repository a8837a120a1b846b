// Package storage is the backend-agnostic write path for QC records.
//
// Concrete backends (postgres, sqlite, mysql, mssql, mongo) live in
// subpackages and register a Factory and a DDLBootstrapper from init, so the
// command only depends on this package and picks a backend by kind.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownKind is returned by New for kinds nobody registered.
var ErrUnknownKind = errors.New("unsupported storage kind")

// Repository is the minimal contract a backend implements.
type Repository interface {
	// InsertRows writes rows whose values follow columns. Rows whose
	// row_hash is already stored are ignored; the return value counts the
	// rows actually written.
	InsertRows(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	// Close releases the underlying connection pool.
	Close()
}

// Config selects and parameterizes a backend.
type Config struct {
	Kind  string // postgres, sqlite, mysql, mssql or mongo
	DSN   string
	Table string // table or collection name
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a repository through the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: storage.kind=%s", ErrUnknownKind, cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
