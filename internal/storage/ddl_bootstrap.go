package storage

import (
	"context"
	"fmt"
	"sync"
)

// DDLBootstrapper creates the target table (or collection indexes) for one
// backend kind if it does not exist yet, through the already-open repo.
type DDLBootstrapper func(ctx context.Context, repo Repository, table string) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) the DDLBootstrapper for kind. Backends
// call it from init.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable runs the bootstrapper registered for kind. It is idempotent.
func EnsureTable(ctx context.Context, kind, table string, repo Repository) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%q", kind)
	}
	if err := fn(ctx, repo, table); err != nil {
		return fmt.Errorf("ensure table %s: %w", table, err)
	}
	return nil
}
