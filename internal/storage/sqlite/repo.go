// Package sqlite implements a SQLite-backed storage.Repository on the pure-Go
// modernc driver. Duplicate rows are dropped with INSERT OR IGNORE against the
// unique row_hash column.
package sqlite

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"qcingest/internal/ddl"
	"qcingest/internal/storage/sqldb"
)

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a file path or URI understood by the driver, e.g.
	//   "qc.db"
	//   "file:qc.db?_pragma=busy_timeout(5000)"
	//   ":memory:"
	DSN string

	// Table is the target table, usually "qc_records".
	Table string
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	*sqldb.Repository
}

// NewRepository opens the database and returns a Repository plus a Close
// function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("sqlite: table must not be empty")
	}
	db, err := sqldb.Open(ctx, "sqlite", "sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	// One connection: SQLite serializes writers anyway, and every extra
	// connection to ":memory:" would see a different database.
	db.SetMaxOpenConns(1)

	repo := &Repository{Repository: sqldb.New(db, "sqlite", insertStatement(cfg.Table))}
	return repo, func() { _ = db.Close() }, nil
}

func insertStatement(table string) sqldb.Statement {
	fqn := dialect.QuoteFQN(table)
	return func(columns []string, row []any) (string, []any, error) {
		return sq.Insert(fqn).
			Options("OR IGNORE").
			Columns(quoteAll(columns)...).
			Values(row...).
			ToSql()
	}
}

func quoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = ddl.DoubleQuote(c)
	}
	return out
}
