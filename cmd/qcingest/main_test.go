package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcingest/internal/config"
	"qcingest/internal/datasource/file"
	"qcingest/internal/logging"
	"qcingest/internal/storage"
)

//
// Test fakes (no I/O)
//

// fakeRepo is an in-memory storage.Repository keyed by row_hash.
type fakeRepo struct {
	mu     sync.Mutex
	rows   map[string][]any
	closed bool
}

func newFakeRepo() *fakeRepo { return &fakeRepo{rows: map[string][]any{}} }

func (f *fakeRepo) InsertRows(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range rows {
		if _, ok := f.rows[r[0].(string)]; !ok {
			f.rows[r[0].(string)] = r
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) Exec(context.Context, string) error { return nil }
func (f *fakeRepo) Close()                             { f.closed = true }

func (f *fakeRepo) runIDs() map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := map[string]bool{}
	for _, r := range f.rows {
		ids[r[1].(string)] = true
	}
	return ids
}

const (
	wgsExport = "SampleID\tQ30 %\n" + "S001\t95.5\n" + "S002\t97.0\n"
	lrsExport = "Sample_Name,N50\n" + "L1,18000\n"
)

// testFS lays out one WGS and one LRS export. There is no WES folder, so
// tests that select WES see a folder error.
func testFS(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in/wgs/wgs_2024.csv", []byte(wgsExport), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/in/lrs/lrs_2024.csv", []byte(lrsExport), 0o644))
	return fs
}

// testCfg returns a baseline config; individual tests tweak fields to
// exercise branches.
func testCfg(t *testing.T, args ...string) *config.Config {
	t.Helper()
	base := []string{
		"-platforms=WGS,LRS",
		"-wgs_dir=/in/wgs",
		"-lrs_dir=/in/lrs",
		"-dsn=file:qc.db",
		"-workers=2",
	}
	cfg, err := config.LoadFromArgs(flag.NewFlagSet("test", flag.ContinueOnError),
		func(string) string { return "" }, append(base, args...))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

type fakeDeps struct {
	Deps
	repo        *fakeRepo
	connectOpts storage.ConnectOptions
	ensured     []string
	out         *bytes.Buffer
}

func newFakeDeps(t *testing.T) *fakeDeps {
	t.Helper()
	fd := &fakeDeps{repo: newFakeRepo(), out: &bytes.Buffer{}}
	ids := 0
	fd.Deps = Deps{
		Connect: func(ctx context.Context, o storage.ConnectOptions) (storage.Repository, error) {
			fd.connectOpts = o
			return fd.repo, nil
		},
		EnsureTable: func(ctx context.Context, kind, table string, repo storage.Repository) error {
			fd.ensured = append(fd.ensured, kind+":"+table)
			return nil
		},
		Watch: func(ctx context.Context, dir string, opts file.WatchOptions, onFile func(string)) error {
			t.Errorf("watch should not be called")
			return nil
		},
		NewRunID: func() string {
			ids++
			return []string{"run-a", "run-b", "run-c", "run-d"}[(ids-1)%4]
		},
		FS:     testFS(t),
		Stdout: fd.out,
	}
	return fd
}

func TestDefaultDeps_ProvidesNonNilProductionWiring(t *testing.T) {
	t.Parallel()

	d := defaultDeps()
	require.NotNil(t, d.Connect)
	require.NotNil(t, d.EnsureTable)
	require.NotNil(t, d.Watch)
	require.NotNil(t, d.FS)
	require.NotNil(t, d.Stdout)
	assert.Len(t, d.NewRunID(), 36)
}

func TestRun_Once_StoresRecords(t *testing.T) {
	t.Parallel()

	cfg := testCfg(t, "-db_table=lab.qc")
	fd := newFakeDeps(t)

	require.NoError(t, run(context.Background(), cfg, logging.Discard(), fd.Deps))

	assert.Equal(t, "sqlite", fd.connectOpts.Kind)
	assert.Equal(t, "file:qc.db", fd.connectOpts.DSN)
	assert.Equal(t, "lab.qc", fd.connectOpts.Table)
	assert.Equal(t, 3, fd.connectOpts.Retries)
	assert.Equal(t, []string{"sqlite:lab.qc"}, fd.ensured)
	assert.Len(t, fd.repo.rows, 3)
	assert.Equal(t, map[string]bool{"run-a": true}, fd.repo.runIDs())
	assert.True(t, fd.repo.closed)
}

func TestRun_NoAutoCreate(t *testing.T) {
	t.Parallel()

	cfg := testCfg(t, "-auto_create_table=false")
	fd := newFakeDeps(t)

	require.NoError(t, run(context.Background(), cfg, logging.Discard(), fd.Deps))
	assert.Empty(t, fd.ensured)
}

func TestRun_DryRunSkipsDatabase(t *testing.T) {
	t.Parallel()

	cfg := testCfg(t, "-dry_run")
	fd := newFakeDeps(t)
	fd.Connect = func(context.Context, storage.ConnectOptions) (storage.Repository, error) {
		t.Fatalf("dry run must not connect")
		return nil, nil
	}

	require.NoError(t, run(context.Background(), cfg, logging.Discard(), fd.Deps))
	out := fd.out.String()
	assert.Contains(t, out, "File: wgs_2024.csv")
	assert.Contains(t, out, "Sample ID: S002")
	assert.Contains(t, out, "NGS Type: LRS")
	assert.Empty(t, fd.repo.rows)
}

func TestRun_MissingCredentialsIsNotFatal(t *testing.T) {
	t.Parallel()

	cfg := testCfg(t)
	fd := newFakeDeps(t)
	fd.Connect = func(context.Context, storage.ConnectOptions) (storage.Repository, error) {
		return nil, storage.ErrNoCredentials
	}

	require.NoError(t, run(context.Background(), cfg, logging.Discard(), fd.Deps))
	assert.Empty(t, fd.ensured, "nothing to create without a database")
}

func TestRun_ConnectErrors(t *testing.T) {
	t.Parallel()

	cfg := testCfg(t)
	fd := newFakeDeps(t)
	fd.Connect = func(context.Context, storage.ConnectOptions) (storage.Repository, error) {
		return nil, errors.New("connect sqlite: unable to open database file")
	}

	err := run(context.Background(), cfg, logging.Discard(), fd.Deps)
	assert.ErrorContains(t, err, "unable to open database file")
}

func TestRun_EnsureTableErrorClosesRepo(t *testing.T) {
	t.Parallel()

	cfg := testCfg(t)
	fd := newFakeDeps(t)
	fd.EnsureTable = func(context.Context, string, string, storage.Repository) error {
		return errors.New("permission denied")
	}

	err := run(context.Background(), cfg, logging.Discard(), fd.Deps)
	assert.ErrorContains(t, err, "permission denied")
	assert.True(t, fd.repo.closed)
}

func TestRun_FailedPlatformIsReportedAfterOthersRun(t *testing.T) {
	t.Parallel()

	cfg := testCfg(t, "-platforms=WES,WGS", "-wes_dir=/in/wes")
	fd := newFakeDeps(t)

	err := run(context.Background(), cfg, logging.Discard(), fd.Deps)
	require.ErrorIs(t, err, errPlatformsFailed)
	assert.Contains(t, err.Error(), "1 of 2 platforms")
	assert.Len(t, fd.repo.rows, 2, "WGS still ingested")
}

func TestRun_Watch(t *testing.T) {
	t.Parallel()

	cfg := testCfg(t, "-watch", "-platforms=LRS")
	fd := newFakeDeps(t)
	var watched []string
	fd.Watch = func(ctx context.Context, dir string, opts file.WatchOptions, onFile func(string)) error {
		watched = append(watched, dir+"|"+opts.Pattern)
		if err := afero.WriteFile(fd.FS, "/in/lrs/lrs_new.csv", []byte("Sample_Name,N50\nL9,21000\n"), 0o644); err != nil {
			return err
		}
		onFile("/in/lrs/lrs_new.csv")
		return nil
	}

	require.NoError(t, run(context.Background(), cfg, logging.Discard(), fd.Deps))
	assert.Equal(t, []string{"/in/lrs|*.csv"}, watched)
	assert.Len(t, fd.repo.rows, 2, "initial file plus the new one")
	assert.Equal(t, map[string]bool{"run-a": true}, fd.repo.runIDs(), "one run id per watch session")
}

func TestRun_WatchKeepsOtherFoldersWhenOneFails(t *testing.T) {
	t.Parallel()

	cfg := testCfg(t, "-watch")
	fd := newFakeDeps(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wgsFailed := make(chan struct{})
	var lrsStoppedEarly atomic.Bool
	fd.Watch = func(wctx context.Context, dir string, opts file.WatchOptions, onFile func(string)) error {
		if dir == "/in/wgs" {
			close(wgsFailed)
			return errors.New("watch /in/wgs: no such file or directory")
		}
		<-wgsFailed
		select {
		case <-wctx.Done():
			lrsStoppedEarly.Store(true)
			return nil
		case <-time.After(100 * time.Millisecond):
		}
		if err := afero.WriteFile(fd.FS, "/in/lrs/lrs_new.csv", []byte("Sample_Name,N50\nL9,21000\n"), 0o644); err != nil {
			return err
		}
		onFile("/in/lrs/lrs_new.csv")
		cancel()
		return nil
	}

	require.NoError(t, run(ctx, cfg, logging.Discard(), fd.Deps))
	assert.False(t, lrsStoppedEarly.Load(), "LRS watcher must outlive the WGS failure")
	assert.Len(t, fd.repo.rows, 4, "initial WGS and LRS rows plus the new LRS file")
}

func TestRun_WatchFailsWhenNoFolderCanBeWatched(t *testing.T) {
	t.Parallel()

	cfg := testCfg(t, "-watch")
	fd := newFakeDeps(t)
	fd.Watch = func(ctx context.Context, dir string, opts file.WatchOptions, onFile func(string)) error {
		return errors.New("too many open files")
	}

	err := run(context.Background(), cfg, logging.Discard(), fd.Deps)
	require.ErrorIs(t, err, errNoWatchers)
	assert.Contains(t, err.Error(), "2 of 2 folders")
	assert.Equal(t, exitFailure, exitCode(err))
}

func TestRun_ScheduleStopsOnCancel(t *testing.T) {
	t.Parallel()

	cfg := testCfg(t, "-schedule=@every 1h")
	fd := newFakeDeps(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, logging.Discard(), fd.Deps) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
	assert.Empty(t, fd.repo.rows, "no tick within the window")
	assert.True(t, fd.repo.closed)
}

func TestSetupMetrics(t *testing.T) {
	t.Parallel()

	cfg := testCfg(t)
	require.NoError(t, setupMetrics(cfg))

	cfg.MetricsBackend = "pushgateway"
	assert.ErrorContains(t, setupMetrics(cfg), "gateway URL is required")

	cfg.MetricsBackend = "datadog"
	assert.ErrorContains(t, setupMetrics(cfg), "init datadog backend")
}

func TestPrepare_ExitCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mod  func(*config.Config)
		want int
	}{
		{name: "valid", mod: func(*config.Config) {}, want: 0},
		{name: "watch with schedule", mod: func(c *config.Config) {
			c.Watch = true
			c.Schedule = "@every 1h"
		}, want: exitConfig},
		{name: "pushgateway without url", mod: func(c *config.Config) {
			c.MetricsBackend = "pushgateway"
		}, want: exitConfig},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := testCfg(t)
			tc.mod(cfg)
			err := prepare(cfg, logging.Discard())
			assert.Equal(t, tc.want, exitCode(err))
		})
	}

	assert.Equal(t, exitFailure, exitCode(errPlatformsFailed))
}
