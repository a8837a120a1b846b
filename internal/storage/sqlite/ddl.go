package sqlite

import (
	"context"

	"qcingest/internal/ddl"
	"qcingest/internal/storage"
)

var dialect = ddl.Dialect{Name: "sqlite ddl", QuoteIdent: ddl.DoubleQuote}

// MapType maps a logical column kind to a SQLite type. SQLite is dynamically
// typed; dates and timestamps are kept as ISO-8601 text and JSON as text.
func MapType(_ string) string {
	return "TEXT"
}

// CreateTableSQL returns the CREATE TABLE IF NOT EXISTS statement for table.
func CreateTableSQL(table string) (string, error) {
	return ddl.BuildCreateTableSQL(ddl.QCRecords(table, MapType), dialect)
}

// EnsureTable creates table through repo if it does not exist yet.
func EnsureTable(ctx context.Context, repo storage.Repository, table string) error {
	stmt, err := CreateTableSQL(table)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, stmt)
}
