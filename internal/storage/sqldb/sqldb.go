// Package sqldb holds the database/sql plumbing shared by the sqlite, mysql
// and mssql backends. Each backend supplies its driver name and a Statement
// that renders one dedup-aware INSERT.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// pingTimeout bounds the connectivity check in Open.
const pingTimeout = 5 * time.Second

// Statement renders the INSERT for one row. The statement must leave an
// already stored row untouched and report zero rows affected for it.
type Statement func(columns []string, row []any) (string, []any, error)

// Open opens a database/sql handle and pings it so bad DSNs fail fast.
func Open(ctx context.Context, name, driver, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s: DSN must not be empty", name)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", name, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", name, err)
	}
	return db, nil
}

// Repository implements the storage operations on top of a *sql.DB.
type Repository struct {
	db     *sql.DB
	name   string
	insert Statement
}

// New wraps db. name prefixes error messages, e.g. "mysql".
func New(db *sql.DB, name string, insert Statement) *Repository {
	return &Repository{db: db, name: name, insert: insert}
}

// DB exposes the underlying handle.
func (r *Repository) DB() *sql.DB { return r.db }

// InsertRows inserts rows inside one transaction and returns how many rows
// were actually written. Rows skipped as duplicates do not count.
func (r *Repository) InsertRows(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("%s: InsertRows: columns must not be empty", r.name)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin tx: %w", r.name, err)
	}

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("%s: InsertRows: row length %d != columns length %d", r.name, len(row), len(columns))
		}
		query, args, err := r.insert(columns, row)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("%s: build insert: %w", r.name, err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("%s: insert: %w", r.name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("%s: rows affected: %w", r.name, err)
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", r.name, err)
	}
	return inserted, nil
}

// Exec runs a single statement, typically DDL. Blank statements are no-ops.
func (r *Repository) Exec(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%s: exec: %w", r.name, err)
	}
	return nil
}

// Close closes the pool.
func (r *Repository) Close() { _ = r.db.Close() }
