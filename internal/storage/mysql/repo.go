// Package mysql provides a MySQL-backed storage.Repository. Duplicate rows
// are dropped by INSERT IGNORE against the unique row_hash column.
package mysql

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"

	"qcingest/internal/storage/sqldb"
)

// Config holds MySQL repository configuration.
type Config struct {
	DSN   string // go-sql-driver DSN, e.g. "qc:secret@tcp(db:3306)/lab?parseTime=true"
	Table string
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	*sqldb.Repository
}

// NewRepository opens the pool and returns a Repository plus a Close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("mysql: table must not be empty")
	}
	if _, err := mysql.ParseDSN(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	db, err := sqldb.Open(ctx, "mysql", "mysql", cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	repo := &Repository{Repository: sqldb.New(db, "mysql", insertStatement(cfg.Table))}
	return repo, func() { _ = db.Close() }, nil
}

func insertStatement(table string) sqldb.Statement {
	fqn := dialect.QuoteFQN(table)
	return func(columns []string, row []any) (string, []any, error) {
		cols := make([]string, len(columns))
		for i, c := range columns {
			cols[i] = quoteIdent(c)
		}
		return sq.Insert(fqn).
			Options("IGNORE").
			Columns(cols...).
			Values(row...).
			ToSql()
	}
}

// quoteIdent quotes an identifier with backticks, doubling embedded ones.
func quoteIdent(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}
