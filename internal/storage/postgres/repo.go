// Package postgres implements a Postgres repository using pgx v5. Rows are
// inserted inside one transaction with ON CONFLICT (row_hash) DO NOTHING, so
// re-ingesting a file only adds rows that are not stored yet.
package postgres

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"qcingest/internal/storage"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN   string // connection string for pgxpool
	Table string // optionally schema-qualified, e.g. "lab.qc_records"
}

// pool is the subset of *pgxpool.Pool the repository uses. pgxmock's pool
// satisfies it in tests.
type pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool pool
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	p, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return newWithPool(p, cfg), func() { p.Close() }, nil
}

func newWithPool(p pool, cfg Config) *Repository {
	return &Repository{pool: p, cfg: cfg}
}

// InsertRows inserts rows in a single transaction and returns the number of
// rows Postgres reports as written. Conflicting rows count as zero.
func (r *Repository) InsertRows(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("postgres: InsertRows: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	var inserted int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, row := range rows {
			if len(row) != len(columns) {
				return fmt.Errorf("row length %d != columns length %d", len(row), len(columns))
			}
			query, args, err := insertSQL(r.cfg.Table, columns, row)
			if err != nil {
				return fmt.Errorf("build insert: %w", err)
			}
			tag, err := tx.Exec(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("insert: %w", err)
			}
			inserted += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("postgres: %w", err)
	}
	return inserted, nil
}

// Exec executes a single statement, typically DDL.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres: exec: %w", err)
	}
	return nil
}

func insertSQL(table string, columns []string, row []any) (string, []any, error) {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = pgIdent(c)
	}
	return sq.Insert(pgFQN(table)).
		Columns(cols...).
		Values(row...).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", pgIdent(storage.ColRowHash))).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func pgIdent(s string) string { return pgx.Identifier{s}.Sanitize() }

func pgFQN(fqn string) string { return pgx.Identifier(strings.Split(fqn, ".")).Sanitize() }
