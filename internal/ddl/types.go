package ddl

import "qcingest/internal/storage"

// ColumnDef describes a single column. Name is unquoted; quoting happens at
// render time through the Dialect.
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Unique     bool
	Default    string // raw SQL expression, e.g. CURRENT_TIMESTAMP
}

// TableDef holds the dotted table name (e.g. "lab.qc_records") and an
// ordered list of columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Logical column kinds translated by each backend's MapType.
const (
	KindHash      = "hash" // short fixed-width key
	KindUUID      = "uuid"
	KindString    = "string" // bounded text, indexable
	KindDate      = "date"
	KindJSON      = "json"
	KindTimestamp = "timestamp"
)

// QCRecords returns the QC records table definition with SQL types chosen by
// mapType. row_hash is the unique key that makes re-ingestion idempotent.
func QCRecords(fqn string, mapType func(kind string) string) TableDef {
	return TableDef{
		FQN: fqn,
		Columns: []ColumnDef{
			{Name: storage.ColRowHash, SQLType: mapType(KindHash), Unique: true},
			{Name: storage.ColRunID, SQLType: mapType(KindUUID)},
			{Name: storage.ColFileName, SQLType: mapType(KindString)},
			{Name: storage.ColNGSType, SQLType: mapType(KindString)},
			{Name: storage.ColSampleID, SQLType: mapType(KindString), Nullable: true},
			{Name: storage.ColExperimentName, SQLType: mapType(KindString), Nullable: true},
			{Name: storage.ColAnalysisDate, SQLType: mapType(KindDate), Nullable: true},
			{Name: storage.ColQualityData, SQLType: mapType(KindJSON)},
			{Name: storage.ColInsertedAt, SQLType: mapType(KindTimestamp), Default: "CURRENT_TIMESTAMP"},
		},
	}
}
