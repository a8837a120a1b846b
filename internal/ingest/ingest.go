// Package ingest drives one ingestion pass: for every configured platform it
// lists the export folder, builds records file by file and hands them to the
// record sink. Failures are scoped to the smallest unit that can be skipped:
// an unusable folder skips its platform, an unreadable file skips that file,
// and a rejected record is counted and the rest are still stored.
package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"qcingest/internal/datasource/file"
	"qcingest/internal/logging"
	"qcingest/internal/metrics"
	"qcingest/internal/parser/qcfile"
	"qcingest/internal/platform"
	"qcingest/internal/storage"
)

// DefaultWorkers is the per-platform file concurrency when Options.Workers
// is not positive.
const DefaultWorkers = 4

// Folder is one platform's export location.
type Folder struct {
	Platform platform.Platform
	Dir      string
	Glob     string
}

// Options configures a Runner.
type Options struct {
	Job     string // metrics job label
	Workers int    // files processed concurrently per platform
	DryRun  bool   // render records to Out instead of storing them
	FS      afero.Fs
	Out     io.Writer
	Logger  *log.Logger
}

// FileResult is the outcome of ingesting one file.
type FileResult struct {
	Path  string
	Rows  int
	Stats storage.Stats
	Err   error

	rendered []string
}

// PlatformSummary aggregates the file results of one platform.
type PlatformSummary struct {
	Platform    platform.Platform
	Files       int
	FailedFiles int
	Rows        int
	Stats       storage.Stats
	Err         error // folder could not be listed
}

// Failed reports whether anything in the platform's batch failed.
func (s PlatformSummary) Failed() bool {
	return s.Err != nil || s.FailedFiles > 0 || s.Stats.Failed > 0
}

// Runner ingests platform folders into a sink.
type Runner struct {
	sink *storage.Sink
	opts Options
	log  *log.Logger
}

// NewRunner returns a Runner writing to sink. sink may be nil when
// opts.DryRun is set.
func NewRunner(sink *storage.Sink, opts Options) *Runner {
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Runner{sink: sink, opts: opts, log: logging.OrDefault(opts.Logger)}
}

// Run ingests every folder, one goroutine per platform, and returns the
// summaries in folder order. Dry-run output is written after all platforms
// finish so blocks of different files never interleave.
func (r *Runner) Run(ctx context.Context, folders []Folder) []PlatformSummary {
	summaries := make([]PlatformSummary, len(folders))
	rendered := make([][]string, len(folders))

	var g errgroup.Group
	for i, f := range folders {
		g.Go(func() error {
			summaries[i], rendered[i] = r.platform(ctx, f)
			return nil
		})
	}
	_ = g.Wait()

	for i := range folders {
		r.write(rendered[i])
		r.logSummary(summaries[i])
	}
	return summaries
}

func (r *Runner) platform(ctx context.Context, f Folder) (PlatformSummary, []string) {
	sum := PlatformSummary{Platform: f.Platform}
	name := f.Platform.String()

	start := time.Now()
	files, err := file.ListFiles(r.opts.FS, f.Dir, f.Glob, r.log)
	metrics.RecordStep(r.opts.Job, "list", err, time.Since(start))
	if err != nil {
		r.log.Error("skipping platform", "platform", name, "dir", f.Dir, "err", err)
		sum.Err = err
		return sum, nil
	}
	r.log.Info("processing folder", "platform", name, "dir", f.Dir, "files", len(files))

	builder := qcfile.NewBuilder(f.Platform, r.log)
	results := make([]FileResult, len(files))

	var g errgroup.Group
	g.SetLimit(r.opts.Workers)
	for i, path := range files {
		g.Go(func() error {
			results[i] = r.ingest(ctx, builder, path)
			return nil
		})
	}
	_ = g.Wait()

	var rendered []string
	for _, res := range results {
		sum.Files++
		if res.Err != nil {
			sum.FailedFiles++
		}
		sum.Rows += res.Rows
		sum.Stats.Add(res.Stats)
		rendered = append(rendered, res.rendered...)
	}
	return sum, rendered
}

// IngestFile ingests a single file for platform p. Dry-run output is written
// before it returns.
func (r *Runner) IngestFile(ctx context.Context, p platform.Platform, path string) FileResult {
	res := r.ingest(ctx, qcfile.NewBuilder(p, r.log), path)
	r.write(res.rendered)
	return res
}

func (r *Runner) ingest(ctx context.Context, b *qcfile.Builder, path string) FileResult {
	res := FileResult{Path: path}
	name := b.Platform().String()

	if info, err := r.opts.FS.Stat(path); err == nil {
		r.log.Debug("reading file", "platform", name, "file", path, "size", humanize.Bytes(uint64(info.Size())))
	}

	start := time.Now()
	recs, err := b.BuildSource(ctx, file.NewLocal(r.opts.FS, path))
	metrics.RecordStep(r.opts.Job, "build", err, time.Since(start))
	if err != nil {
		r.log.Error("skipping file", "platform", name, "file", path, "err", err)
		metrics.RecordFile(r.opts.Job, name, err)
		res.Err = err
		return res
	}
	res.Rows = len(recs)
	metrics.RecordRows(r.opts.Job, name, "built", int64(len(recs)))

	if r.opts.DryRun || r.sink == nil {
		for _, rec := range recs {
			res.rendered = append(res.rendered, rec.String())
		}
		metrics.RecordFile(r.opts.Job, name, nil)
		return res
	}

	start = time.Now()
	st, err := r.sink.PutAll(ctx, recs)
	metrics.RecordStep(r.opts.Job, "store", err, time.Since(start))
	metrics.RecordFile(r.opts.Job, name, err)
	metrics.RecordRows(r.opts.Job, name, "inserted", int64(st.Inserted))
	metrics.RecordRows(r.opts.Job, name, "duplicate", int64(st.Duplicates))
	metrics.RecordRows(r.opts.Job, name, "skipped", int64(st.Skipped))
	metrics.RecordRows(r.opts.Job, name, "failed", int64(st.Failed))
	res.Stats = st
	if err != nil {
		res.Err = fmt.Errorf("store %s: %w", path, err)
		r.log.Error("storing file interrupted", "platform", name, "file", path, "err", err)
	}
	return res
}

func (r *Runner) write(blocks []string) {
	for _, b := range blocks {
		fmt.Fprintln(r.opts.Out, b)
	}
}

func (r *Runner) logSummary(s PlatformSummary) {
	if s.Err != nil {
		return
	}
	r.log.Info("platform summary",
		"platform", s.Platform,
		"files", s.Files,
		"failed_files", s.FailedFiles,
		"rows", s.Rows,
		"inserted", s.Stats.Inserted,
		"duplicates", s.Stats.Duplicates,
		"skipped", s.Stats.Skipped,
		"failed", s.Stats.Failed,
	)
}
