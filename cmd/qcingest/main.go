// Command qcingest loads sequencing QC exports (WGS, WES and LRS) from their
// platform folders into a database table. It is a thin composition layer:
// configuration, logging and metrics are set up in main, and every side
// effect run() depends on is injected through Deps so tests stay hermetic.
//
// Modes:
//   - default: one pass over all selected platforms, then exit.
//   - -schedule: one pass per cron tick until interrupted.
//   - -watch: one pass, then ingest new files as they appear.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"qcingest/internal/config"
	"qcingest/internal/datasource/file"
	"qcingest/internal/ingest"
	"qcingest/internal/logging"
	"qcingest/internal/metrics"
	"qcingest/internal/metrics/datadog"
	"qcingest/internal/metrics/prompush"
	"qcingest/internal/storage"

	// register all backends with the storage factory.
	_ "qcingest/internal/storage/all"
)

// Deps holds injectable dependencies so run() is fully testable. In tests we
// pass fakes here; in production, defaultDeps() provides the real funcs.
type Deps struct {
	Connect     func(ctx context.Context, o storage.ConnectOptions) (storage.Repository, error)
	EnsureTable func(ctx context.Context, kind, table string, repo storage.Repository) error
	Watch       func(ctx context.Context, dir string, opts file.WatchOptions, onFile func(path string)) error
	NewRunID    func() string

	FS     afero.Fs
	Stdout io.Writer
}

// defaultDeps wires production implementations.
func defaultDeps() Deps {
	return Deps{
		Connect:     storage.Connect,
		EnsureTable: storage.EnsureTable,
		Watch:       file.Watch,
		NewRunID:    func() string { return uuid.NewString() },
		FS:          afero.NewOsFs(),
		Stdout:      os.Stdout,
	}
}

// errPlatformsFailed is returned by a single pass when at least one
// platform, file or record failed. The remaining work was still done.
var errPlatformsFailed = errors.New("ingestion finished with failures")

// run executes the program given a validated config and injected Deps:
//
//  1. Opens the repository (or a no-op one for dry runs and missing
//     credentials) and creates the table when asked to.
//  2. Runs one ingestion pass, a cron schedule, or a folder watch.
func run(ctx context.Context, cfg *config.Config, logger *log.Logger, deps Deps) error {
	platforms, err := cfg.SelectedPlatforms()
	if err != nil {
		return err
	}
	folders := make([]ingest.Folder, 0, len(platforms))
	for _, p := range platforms {
		f := cfg.Folder(p)
		folders = append(folders, ingest.Folder{Platform: p, Dir: f.Dir, Glob: f.Glob})
	}

	repo, err := openRepository(ctx, cfg, logger, deps)
	if err != nil {
		return err
	}
	defer repo.Close()

	newRunner := func() *ingest.Runner {
		var sink *storage.Sink
		if !cfg.DryRun {
			runID := deps.NewRunID()
			logger.Info("starting run", "run_id", runID, "platforms", cfg.Platforms, "dry_run", cfg.DryRun)
			sink = storage.NewSink(repo, runID, logger)
		}
		return ingest.NewRunner(sink, ingest.Options{
			Job:     cfg.JobName,
			Workers: cfg.Workers,
			DryRun:  cfg.DryRun,
			FS:      deps.FS,
			Out:     deps.Stdout,
			Logger:  logger,
		})
	}

	switch {
	case cfg.Watch:
		return watch(ctx, cfg, folders, newRunner(), logger, deps)
	case cfg.Schedule != "":
		return schedule(ctx, cfg, folders, newRunner, logger)
	default:
		return pass(ctx, cfg, folders, newRunner(), logger)
	}
}

// openRepository connects to the configured backend. Missing credentials are
// not fatal: the run proceeds and every insert is skipped and logged.
func openRepository(ctx context.Context, cfg *config.Config, logger *log.Logger, deps Deps) (storage.Repository, error) {
	if cfg.DryRun {
		return storage.NopRepository{}, nil
	}
	repo, err := deps.Connect(ctx, storage.ConnectOptions{
		Kind:     cfg.DBDriver,
		DSN:      cfg.DSN,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
		Table:    cfg.Table,
		Retries:  cfg.ConnectRetries,
		Logger:   logger,
	})
	if errors.Is(err, storage.ErrNoCredentials) {
		logger.Error("database login credentials are missing; records will not be stored", "driver", cfg.DBDriver)
		return storage.NopRepository{}, nil
	}
	if err != nil {
		return nil, err
	}
	if cfg.AutoCreateTable {
		if err := deps.EnsureTable(ctx, cfg.DBDriver, cfg.Table, repo); err != nil {
			repo.Close()
			return nil, err
		}
	}
	return repo, nil
}

// pass runs one ingestion over every folder and flushes metrics.
func pass(ctx context.Context, cfg *config.Config, folders []ingest.Folder, r *ingest.Runner, logger *log.Logger) error {
	start := time.Now()
	sums := r.Run(ctx, folders)

	failed := 0
	for _, s := range sums {
		if s.Failed() {
			failed++
		}
	}
	var err error
	if failed > 0 {
		err = fmt.Errorf("%w: %d of %d platforms", errPlatformsFailed, failed, len(sums))
	}
	metrics.RecordStep(cfg.JobName, "run", err, time.Since(start))
	if ferr := metrics.Flush(); ferr != nil {
		logger.Warn("metrics flush failed", "err", ferr)
	}
	logger.Info("run finished", "platforms", len(sums), "failed", failed, "elapsed", time.Since(start).Round(time.Millisecond))
	return err
}

// schedule runs a pass on every tick of cfg.Schedule until ctx is done.
// Each pass gets its own run id.
func schedule(ctx context.Context, cfg *config.Config, folders []ingest.Folder, newRunner func() *ingest.Runner, logger *log.Logger) error {
	sched, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.Schedule, err)
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(sched, cron.FuncJob(func() {
		if err := pass(ctx, cfg, folders, newRunner(), logger); err != nil {
			logger.Error("scheduled run failed", "err", err)
		}
	}))
	c.Start()
	logger.Info("waiting for schedule", "schedule", cfg.Schedule, "next", sched.Next(time.Now()))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// errNoWatchers is returned when no selected folder could be watched.
var errNoWatchers = errors.New("no folder could be watched")

// watch ingests what is already there, then every new file that appears in
// a selected platform folder, until ctx is done. A folder that cannot be
// watched is logged and dropped; the other folders keep being watched.
func watch(ctx context.Context, cfg *config.Config, folders []ingest.Folder, r *ingest.Runner, logger *log.Logger, deps Deps) error {
	if err := pass(ctx, cfg, folders, r, logger); err != nil {
		logger.Warn("initial run had failures", "err", err)
	}

	var (
		g      errgroup.Group
		failed atomic.Int32
	)
	for _, f := range folders {
		g.Go(func() error {
			logger.Info("watching folder", "platform", f.Platform, "dir", f.Dir)
			err := deps.Watch(ctx, f.Dir, file.WatchOptions{Pattern: f.Glob, Logger: logger}, func(path string) {
				res := r.IngestFile(ctx, f.Platform, path)
				if res.Err == nil {
					logger.Info("ingested new file", "platform", f.Platform, "file", path,
						"rows", res.Rows, "inserted", res.Stats.Inserted, "duplicates", res.Stats.Duplicates)
				}
				if err := metrics.Flush(); err != nil {
					logger.Warn("metrics flush failed", "err", err)
				}
			})
			if err != nil {
				failed.Add(1)
				logger.Error("stopped watching folder", "platform", f.Platform, "dir", f.Dir, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if n := int(failed.Load()); n > 0 && n == len(folders) {
		return fmt.Errorf("%w: %d of %d folders failed", errNoWatchers, n, len(folders))
	}
	return nil
}

// setupMetrics installs the configured metrics backend. "none" keeps the
// no-op default.
func setupMetrics(cfg *config.Config) error {
	switch cfg.MetricsBackend {
	case "pushgateway":
		b, err := prompush.NewBackend(cfg.JobName, cfg.PushgatewayURL)
		if err != nil {
			return fmt.Errorf("init pushgateway backend: %w", err)
		}
		metrics.SetBackend(b)
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       cfg.DatadogAddr,
			Namespace:  "qcingest.",
			GlobalTags: []string{"job:" + cfg.JobName},
		})
		if err != nil {
			return fmt.Errorf("init datadog backend: %w", err)
		}
		metrics.SetBackend(b)
	}
	return nil
}

// Process exit codes.
const (
	exitFailure = 1
	exitConfig  = 2
)

// errInvalidConfig marks startup failures caused by the configuration.
var errInvalidConfig = errors.New("invalid configuration")

// prepare validates cfg, logs its warnings and installs the metrics backend.
func prepare(cfg *config.Config, logger *log.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errInvalidConfig, err)
	}
	for _, w := range cfg.Warnings() {
		logger.Warn(w.Message, "key", w.Path)
	}
	if err := setupMetrics(cfg); err != nil {
		return fmt.Errorf("%w: %w", errInvalidConfig, err)
	}
	return nil
}

// exitCode maps an error from prepare or run to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errInvalidConfig):
		return exitConfig
	default:
		return exitFailure
	}
}

// main is intentionally tiny. It loads config, builds real deps, and runs.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfig)
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON})
	log.SetDefault(logger)

	if err := prepare(cfg, logger); err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(exitCode(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger, defaultDeps())
	stop()
	if err != nil {
		logger.Error("qcingest failed", "err", err)
		os.Exit(exitCode(err))
	}
}
