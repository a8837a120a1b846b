package storage

import (
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcingest/internal/records"
)

func sampleRecord(line int) records.Record {
	d := civil.Date{Year: 2024, Month: time.March, Day: 5}
	return records.Record{
		FileName:     "wes_2024-03-05.csv",
		Platform:     "WES",
		Line:         line,
		SampleID:     "S001",
		AnalysisDate: &d,
		Metrics:      records.Metrics{"q30_percentage": 95.5, "reads": int64(1200)},
	}
}

func TestNewRow(t *testing.T) {
	t.Parallel()

	rec := sampleRecord(2)
	now := time.Date(2024, 3, 6, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	row, err := NewRow(rec, "run-1", now)
	require.NoError(t, err)

	assert.Equal(t, rec.Fingerprint(), row.RowHash)
	assert.Equal(t, "run-1", row.RunID)
	assert.Equal(t, "WES", row.NGSType)
	require.NotNil(t, row.SampleID)
	assert.Equal(t, "S001", *row.SampleID)
	assert.Nil(t, row.ExperimentName)
	assert.JSONEq(t, `{"q30_percentage":95.5,"reads":1200}`, string(row.QualityData))
	assert.Equal(t, time.UTC, row.InsertedAt.Location())
	assert.True(t, row.InsertedAt.Equal(now))
}

func TestRowValues(t *testing.T) {
	t.Parallel()

	rec := sampleRecord(3)
	rec.AnalysisDate = nil
	now := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	row, err := NewRow(rec, "run-1", now)
	require.NoError(t, err)

	vals := row.Values()
	require.Len(t, vals, len(Columns))
	assert.Equal(t, []any{
		rec.Fingerprint(),
		"run-1",
		"wes_2024-03-05.csv",
		"WES",
		"S001",
		nil,
		nil,
		`{"q30_percentage":95.5,"reads":1200}`,
		now,
	}, vals)

	withDate := sampleRecord(3)
	row, err = NewRow(withDate, "run-1", now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", row.Values()[6])
}
