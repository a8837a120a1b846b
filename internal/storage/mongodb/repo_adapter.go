package mongodb

import (
	"context"
	"fmt"

	"qcingest/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

// wrappedRepo adapts *mongodb.Repository to storage.Repository and provides Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

var _ storage.Repository = (*wrappedRepo)(nil)

// indexer is implemented by repositories that bootstrap with indexes
// rather than DDL.
type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

func init() {
	storage.Register("mongo", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{URI: cfg.DSN, Collection: cfg.Table})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDDL("mongo", func(ctx context.Context, repo storage.Repository, table string) error {
		ix, ok := repo.(indexer)
		if !ok {
			return fmt.Errorf("mongo: repository %T cannot create indexes", repo)
		}
		return ix.EnsureIndexes(ctx)
	})
}
