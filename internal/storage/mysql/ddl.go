package mysql

import (
	"context"

	"qcingest/internal/ddl"
	"qcingest/internal/storage"
)

var dialect = ddl.Dialect{Name: "mysql ddl", QuoteIdent: quoteIdent}

// MapType maps a logical column kind to a MySQL type. Indexed text columns
// need a bounded VARCHAR.
func MapType(kind string) string {
	switch kind {
	case ddl.KindHash:
		return "VARCHAR(32)"
	case ddl.KindUUID:
		return "CHAR(36)"
	case ddl.KindDate:
		return "DATE"
	case ddl.KindJSON:
		return "JSON"
	case ddl.KindTimestamp:
		return "DATETIME"
	default:
		return "VARCHAR(255)"
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
