// Package all wires all built-in storage backends into the storage factory.
//
// It exists purely for side effects: importing it runs the init functions of
// each backend, which register their factories and table bootstrappers with
// the storage package. The kinds available afterwards are:
//
//   - "sqlite"   (qcingest/internal/storage/sqlite)
//   - "postgres" (qcingest/internal/storage/postgres)
//   - "mysql"    (qcingest/internal/storage/mysql)
//   - "mssql"    (qcingest/internal/storage/mssql)
//   - "mongo"    (qcingest/internal/storage/mongodb)
//
// A binary that needs only a subset can import the backends it wants instead.
package all

import (
	_ "qcingest/internal/storage/mongodb"
	_ "qcingest/internal/storage/mssql"
	_ "qcingest/internal/storage/mysql"
	_ "qcingest/internal/storage/postgres"
	_ "qcingest/internal/storage/sqlite"
)
