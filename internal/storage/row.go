package storage

import (
	"fmt"
	"time"

	"github.com/golang-sql/civil"

	"qcingest/internal/records"
)

// Column names of the QC records table.
const (
	ColRowHash        = "row_hash"
	ColRunID          = "run_id"
	ColFileName       = "file_name"
	ColNGSType        = "ngs_type"
	ColSampleID       = "sample_id"
	ColExperimentName = "experiment_name"
	ColAnalysisDate   = "analysis_date"
	ColQualityData    = "quality_data"
	ColInsertedAt     = "inserted_at"
)

// Columns lists the table's columns in the order Row.Values emits them.
var Columns = []string{
	ColRowHash,
	ColRunID,
	ColFileName,
	ColNGSType,
	ColSampleID,
	ColExperimentName,
	ColAnalysisDate,
	ColQualityData,
	ColInsertedAt,
}

// Row is the stored form of one records.Record.
type Row struct {
	RowHash        string
	RunID          string
	FileName       string
	NGSType        string
	SampleID       *string
	ExperimentName *string
	AnalysisDate   *civil.Date
	QualityData    []byte // JSON object
	InsertedAt     time.Time
}

// NewRow converts rec into a Row stamped with runID and now (stored as UTC).
func NewRow(rec records.Record, runID string, now time.Time) (Row, error) {
	data, err := rec.Metrics.JSON()
	if err != nil {
		return Row{}, fmt.Errorf("encode quality data: %w", err)
	}
	return Row{
		RowHash:        rec.Fingerprint(),
		RunID:          runID,
		FileName:       rec.FileName,
		NGSType:        rec.Platform,
		SampleID:       optional(rec.SampleID),
		ExperimentName: optional(rec.ExperimentName),
		AnalysisDate:   rec.AnalysisDate,
		QualityData:    data,
		InsertedAt:     now.UTC(),
	}, nil
}

// Values returns the row in Columns order. Absent identity fields are nil,
// the analysis date is an ISO "YYYY-MM-DD" string and quality data is the
// JSON text, which every SQL backend accepts for its column type.
func (r Row) Values() []any {
	var date any
	if r.AnalysisDate != nil {
		date = r.AnalysisDate.String()
	}
	return []any{
		r.RowHash,
		r.RunID,
		r.FileName,
		r.NGSType,
		deref(r.SampleID),
		deref(r.ExperimentName),
		date,
		string(r.QualityData),
		r.InsertedAt,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
