// Package mssql implements a Microsoft SQL Server repository on go-mssqldb.
// T-SQL has no INSERT IGNORE, so each insert is guarded by an IF NOT EXISTS
// lookup on row_hash.
package mssql

import (
	"context"
	"fmt"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"qcingest/internal/storage"
	"qcingest/internal/storage/sqldb"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN   string
	Table string // e.g. "dbo.qc_records"
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	*sqldb.Repository
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("mssql: table must not be empty")
	}
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sqldb.Open(ctx, "mssql", "sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	repo := &Repository{Repository: sqldb.New(db, "mssql", insertStatement(cfg.Table))}
	return repo, func() { _ = db.Close() }, nil
}

func insertStatement(table string) sqldb.Statement {
	fqn := dialect.QuoteFQN(table)
	guard := fmt.Sprintf("IF NOT EXISTS (SELECT 1 FROM %s WHERE %s = ?)", fqn, quoteIdent(storage.ColRowHash))
	return func(columns []string, row []any) (string, []any, error) {
		i := slices.Index(columns, storage.ColRowHash)
		if i < 0 {
			return "", nil, fmt.Errorf("column %s is required", storage.ColRowHash)
		}
		cols := make([]string, len(columns))
		for j, c := range columns {
			cols[j] = quoteIdent(c)
		}
		return sq.Insert(fqn).
			Prefix(guard, row[i]).
			Columns(cols...).
			Values(row...).
			PlaceholderFormat(sq.AtP).
			ToSql()
	}
}

// quoteIdent quotes a single identifier segment with brackets.
//
//	name      -> [name]
//	weird]id  -> [weird]]id]
func quoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}
