package mssql

import (
	"context"
	"fmt"

	"qcingest/internal/ddl"
	"qcingest/internal/storage"
)

// T-SQL has no CREATE TABLE IF NOT EXISTS, so the statement is wrapped in an
// IF OBJECT_ID(...) IS NULL guard.
var dialect = ddl.Dialect{
	Name:       "mssql ddl",
	QuoteIdent: quoteIdent,
	Create: func(quotedFQN, body string) string {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n  %s\n  );\nEND;",
			quotedFQN, quotedFQN, body)
	},
}

// MapType maps a logical column kind to a SQL Server type.
func MapType(kind string) string {
	switch kind {
	case ddl.KindHash:
		return "VARCHAR(32)"
	case ddl.KindUUID:
		return "UNIQUEIDENTIFIER"
	case ddl.KindDate:
		return "DATE"
	case ddl.KindJSON:
		return "NVARCHAR(MAX)"
	case ddl.KindTimestamp:
		return "DATETIME2"
	default:
		return "NVARCHAR(255)"
	}
}

// CreateTableSQL returns the guarded CREATE TABLE script for table.
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
