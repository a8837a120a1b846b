package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"qcingest/internal/logging"
	"qcingest/internal/records"
)

// ErrEmptyRecord rejects records without a single metric.
var ErrEmptyRecord = errors.New("record has no quality data")

// Stats summarizes what a sink did with a batch of records.
type Stats struct {
	Inserted   int
	Duplicates int // already stored by an earlier run
	Skipped    int // empty records, or no database configured
	Failed     int
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Inserted += o.Inserted
	s.Duplicates += o.Duplicates
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

// Total is the number of records the stats account for.
func (s Stats) Total() int {
	return s.Inserted + s.Duplicates + s.Skipped + s.Failed
}

// Sink writes records one at a time through a Repository.
type Sink struct {
	repo  Repository
	runID string
	log   *log.Logger
	now   func() time.Time
}

// NewSink returns a sink that stamps every row with runID.
func NewSink(repo Repository, runID string, logger *log.Logger) *Sink {
	return &Sink{repo: repo, runID: runID, log: logging.OrDefault(logger), now: time.Now}
}

// Put stores one record. It reports whether a new row was written; false
// with a nil error means the row was already stored.
func (s *Sink) Put(ctx context.Context, rec records.Record) (bool, error) {
	if len(rec.Metrics) == 0 {
		return false, ErrEmptyRecord
	}
	row, err := NewRow(rec, s.runID, s.now())
	if err != nil {
		return false, err
	}
	n, err := s.repo.InsertRows(ctx, Columns, [][]any{row.Values()})
	if err != nil {
		return false, fmt.Errorf("insert %s line %d: %w", rec.FileName, rec.Line, err)
	}
	return n > 0, nil
}

// PutAll stores recs in order. A failing record is logged and counted and
// the remaining records are still attempted, unless ctx is done.
func (s *Sink) PutAll(ctx context.Context, recs []records.Record) (Stats, error) {
	var st Stats
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		inserted, err := s.Put(ctx, rec)
		switch {
		case errors.Is(err, ErrEmptyRecord):
			st.Skipped++
			s.log.Warn("skipping empty record", "file", rec.FileName, "line", rec.Line)
		case errors.Is(err, ErrNoCredentials):
			st.Skipped++
			s.log.Debug("no database configured, record not stored", "file", rec.FileName, "line", rec.Line)
		case err != nil:
			st.Failed++
			s.log.Error("storing record failed", "file", rec.FileName, "line", rec.Line, "err", err)
		case inserted:
			st.Inserted++
			s.log.Debug("inserted record", "sample", rec.SampleID, "ngs_type", rec.Platform, "file", rec.FileName)
		default:
			st.Duplicates++
			s.log.Debug("record already stored", "file", rec.FileName, "line", rec.Line)
		}
	}
	return st, nil
}
