package postgres

import (
	"context"

	"qcingest/internal/ddl"
	"qcingest/internal/storage"
)

var dialect = ddl.Dialect{Name: "postgres ddl", QuoteIdent: ddl.DoubleQuote}

// MapType maps a logical column kind to a Postgres type.
func MapType(kind string) string {
	switch kind {
	case ddl.KindUUID:
		return "UUID"
	case ddl.KindDate:
		return "DATE"
	case ddl.KindJSON:
		return "JSONB"
	case ddl.KindTimestamp:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
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
