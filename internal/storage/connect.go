package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-sql-driver/mysql"
	"github.com/sethvargo/go-retry"

	"qcingest/internal/logging"
)

// ErrNoCredentials means neither a DSN nor enough connection parts were
// configured. Callers fall back to NopRepository.
var ErrNoCredentials = errors.New("database login credentials are missing")

// ConnectOptions carries what Connect needs to open a backend. DSN wins over
// the discrete parts.
type ConnectOptions struct {
	Kind     string
	DSN      string
	User     string
	Password string
	Host     string
	Port     string
	Name     string
	Table    string
	Retries  int
	Logger   *log.Logger
}

// connectBackoff is the first retry delay; it doubles on every attempt.
var connectBackoff = 500 * time.Millisecond

var defaultPorts = map[string]string{
	"postgres": "5432",
	"mysql":    "3306",
	"mssql":    "1433",
	"mongo":    "27017",
}

// ResolveDSN returns o.DSN, or builds one from the discrete parts. A user
// and a database name are the minimum; sqlite only accepts a DSN.
func ResolveDSN(o ConnectOptions) (string, error) {
	if o.DSN != "" {
		return o.DSN, nil
	}
	if o.User == "" || o.Name == "" {
		return "", ErrNoCredentials
	}
	host := o.Host
	if host == "" {
		host = "localhost"
	}
	port := o.Port
	if port == "" {
		port = defaultPorts[o.Kind]
	}
	addr := net.JoinHostPort(host, port)

	switch o.Kind {
	case "postgres":
		u := url.URL{Scheme: "postgres", User: url.UserPassword(o.User, o.Password), Host: addr, Path: "/" + o.Name}
		return u.String(), nil
	case "mssql":
		u := url.URL{Scheme: "sqlserver", User: url.UserPassword(o.User, o.Password), Host: addr}
		u.RawQuery = url.Values{"database": {o.Name}}.Encode()
		return u.String(), nil
	case "mysql":
		c := mysql.NewConfig()
		c.User = o.User
		c.Passwd = o.Password
		c.Net = "tcp"
		c.Addr = addr
		c.DBName = o.Name
		c.ParseTime = true
		return c.FormatDSN(), nil
	case "mongo":
		u := url.URL{Scheme: "mongodb", User: url.UserPassword(o.User, o.Password), Host: addr, Path: "/" + o.Name}
		return u.String(), nil
	}
	return "", ErrNoCredentials
}

// Connect resolves the DSN and opens the backend registered for o.Kind,
// retrying transient failures with exponential backoff. Unknown kinds and
// missing credentials are not retried.
func Connect(ctx context.Context, o ConnectOptions) (Repository, error) {
	logger := logging.OrDefault(o.Logger)

	dsn, err := ResolveDSN(o)
	if err != nil {
		return nil, err
	}
	retries := o.Retries
	if retries < 0 {
		retries = 0
	}

	var repo Repository
	attempt := 0
	b := retry.WithMaxRetries(uint64(retries), retry.NewExponential(connectBackoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		r, err := New(ctx, Config{Kind: o.Kind, DSN: dsn, Table: o.Table})
		if err != nil {
			if errors.Is(err, ErrUnknownKind) {
				return err
			}
			logger.Warn("database connection failed", "kind", o.Kind, "attempt", attempt, "err", err)
			return retry.RetryableError(err)
		}
		repo = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", o.Kind, err)
	}
	logger.Info("connected to database", "kind", o.Kind, "table", o.Table)
	return repo, nil
}

// NopRepository stands in when no database is configured. Inserts store
// nothing and report ErrNoCredentials so sinks count them as skipped.
type NopRepository struct{}

var _ Repository = NopRepository{}

func (NopRepository) InsertRows(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	return 0, ErrNoCredentials
}

func (NopRepository) Exec(ctx context.Context, sql string) error { return nil }

func (NopRepository) Close() {}
