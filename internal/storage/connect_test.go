package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcingest/internal/logging"
)

func TestResolveDSN(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		opts    ConnectOptions
		want    string
		wantErr error
	}{
		{"explicit DSN wins", ConnectOptions{Kind: "postgres", DSN: "postgres://x", User: "u", Name: "n"}, "postgres://x", nil},
		{"sqlite needs DSN", ConnectOptions{Kind: "sqlite", User: "u", Name: "n"}, "", ErrNoCredentials},
		{"no user", ConnectOptions{Kind: "postgres", Name: "qc"}, "", ErrNoCredentials},
		{"no name", ConnectOptions{Kind: "postgres", User: "qc"}, "", ErrNoCredentials},
		{
			"postgres parts",
			ConnectOptions{Kind: "postgres", User: "qc", Password: "p@ss", Host: "db", Name: "lab"},
			"postgres://qc:p%40ss@db:5432/lab", nil,
		},
		{
			"mssql parts",
			ConnectOptions{Kind: "mssql", User: "sa", Password: "pw", Host: "sql", Port: "14330", Name: "lab"},
			"sqlserver://sa:pw@sql:14330?database=lab", nil,
		},
		{
			"mongo parts",
			ConnectOptions{Kind: "mongo", User: "qc", Password: "pw", Host: "mongo", Name: "lab"},
			"mongodb://qc:pw@mongo:27017/lab", nil,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ResolveDSN(tc.opts)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveDSN_MySQL(t *testing.T) {
	t.Parallel()

	dsn, err := ResolveDSN(ConnectOptions{Kind: "mysql", User: "qc", Password: "pw", Name: "lab"})
	require.NoError(t, err)

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "qc", cfg.User)
	assert.Equal(t, "pw", cfg.Passwd)
	assert.Equal(t, "tcp", cfg.Net)
	assert.Equal(t, "localhost:3306", cfg.Addr)
	assert.Equal(t, "lab", cfg.DBName)
	assert.True(t, cfg.ParseTime)
}

func fastBackoff(t *testing.T) {
	t.Helper()
	orig := connectBackoff
	connectBackoff = time.Millisecond
	t.Cleanup(func() { connectBackoff = orig })
}

func TestConnect_RetriesTransientFailures(t *testing.T) {
	fastBackoff(t)

	attempts := 0
	Register("flaky", func(ctx context.Context, cfg Config) (Repository, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("connection refused")
		}
		return newFakeRepo(), nil
	})

	repo, err := Connect(context.Background(), ConnectOptions{
		Kind: "flaky", DSN: "flaky://", Table: "qc_records", Retries: 3, Logger: logging.Discard(),
	})
	require.NoError(t, err)
	assert.NotNil(t, repo)
	assert.Equal(t, 3, attempts)
}

func TestConnect_GivesUp(t *testing.T) {
	fastBackoff(t)

	attempts := 0
	want := errors.New("connection refused")
	Register("down", func(ctx context.Context, cfg Config) (Repository, error) {
		attempts++
		return nil, want
	})

	_, err := Connect(context.Background(), ConnectOptions{Kind: "down", DSN: "down://", Retries: 2, Logger: logging.Discard()})
	require.ErrorIs(t, err, want)
	assert.Equal(t, 3, attempts, "one try plus two retries")
}

func TestConnect_DoesNotRetryUnknownKind(t *testing.T) {
	fastBackoff(t)

	_, err := Connect(context.Background(), ConnectOptions{Kind: "nope", DSN: "x", Retries: 5, Logger: logging.Discard()})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestConnect_NoCredentials(t *testing.T) {
	_, err := Connect(context.Background(), ConnectOptions{Kind: "postgres", Logger: logging.Discard()})
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestNopRepository(t *testing.T) {
	t.Parallel()

	var r Repository = NopRepository{}
	n, err := r.InsertRows(context.Background(), Columns, [][]any{{"x"}})
	assert.Zero(t, n)
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.NoError(t, r.Exec(context.Background(), "CREATE TABLE x (a int)"))
	r.Close()
}
