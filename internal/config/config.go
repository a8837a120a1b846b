// Package config centralizes qcingest configuration. All tunables come from
// command-line flags whose defaults are seeded from environment variables
// (and, through LoadEnvFile, from a .env file). Flags are defined first so
// that `-help` shows every knob and its default.
//
// Typical usage:
//
//	cfg, err := config.Load() // reads .env, os.Args and os.Environ
//
// For tests, prefer LoadFromArgs to keep them hermetic:
//
//	fs := flag.NewFlagSet("test", flag.ContinueOnError)
//	getenv := func(k string) string { return testEnv[k] }
//	cfg, err := config.LoadFromArgs(fs, getenv, []string{"-workers=4"})
package config

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"qcingest/internal/datasource/file"
	"qcingest/internal/platform"
)

// DefaultTable is the table (or collection) records are written to.
const DefaultTable = "qc_records"

// Folder describes where one platform's QC exports live.
type Folder struct {
	Dir  string // Directory scanned for exports.
	Glob string // Base-name pattern, matched case-insensitively.
}

// Config holds all process configuration derived from flags and
// environment variables. The struct is safe to copy and share across
// goroutines once loaded.
type Config struct {
	// Inputs.
	WGS       Folder
	WES       Folder
	LRS       Folder
	Platforms string `flag:"platforms" validate:"required"` // Comma separated, e.g. "WGS,LRS".

	// DB describes the target store. DSN wins over the discrete parts.
	DBDriver        string `flag:"db_driver" validate:"oneof=sqlite postgres mysql mssql mongo"`
	DSN             string
	DBUser          string
	DBPassword      string
	DBHost          string
	DBPort          string `flag:"db_port" validate:"omitempty,numeric"`
	DBName          string
	Table           string `flag:"db_table" validate:"required,sqlident"`
	AutoCreateTable bool
	ConnectRetries  int `flag:"connect_retries" validate:"gte=0,lte=20"`

	// Runtime.
	Workers  int  `flag:"workers" validate:"gte=1,lte=64"`
	DryRun   bool // Print records instead of writing them.
	Watch    bool // Keep running and ingest new files as they appear.
	Schedule string

	// Observability.
	LogLevel       string `flag:"log_level" validate:"oneof=debug info warn error"`
	LogJSON        bool
	MetricsBackend string `flag:"metrics_backend" validate:"oneof=none pushgateway datadog"`
	PushgatewayURL string `flag:"pushgateway_url" validate:"required_if=MetricsBackend pushgateway,omitempty,url"`
	DatadogAddr    string `flag:"datadog_addr" validate:"required_if=MetricsBackend datadog"`
	JobName        string `flag:"job_name" validate:"required"`
}

// Folder returns the input folder configured for p.
func (c *Config) Folder(p platform.Platform) Folder {
	switch p {
	case platform.WGS:
		return c.WGS
	case platform.WES:
		return c.WES
	case platform.LRS:
		return c.LRS
	}
	return Folder{}
}

// SelectedPlatforms parses the Platforms list.
func (c *Config) SelectedPlatforms() ([]platform.Platform, error) {
	return platform.ParseList(c.Platforms)
}

// LoadFromArgs builds a Config by defining flags on fs, seeding each
// flag's default from getenv, and then parsing args.
//
// Precedence:
//  1. Environment values seed each flag's default.
//  2. Explicit CLI flags (in args) override the seeded defaults.
//
// The returned Config is not validated; call Validate before use.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := &Config{}

	envOrDefaultFn := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	intEnvOrDefaultFn := func(k string, d int) int {
		if v := getenv(k); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
		return d
	}
	boolEnvOrDefaultFn := func(k string, d bool) bool {
		return parseBool(getenv(k), d)
	}

	// Inputs
	fs.StringVar(&cfg.WGS.Dir, "wgs_dir", envOrDefaultFn("WGS_DIR", "./data/wgs"), "Folder with WGS QC exports")
	fs.StringVar(&cfg.WES.Dir, "wes_dir", envOrDefaultFn("WES_DIR", "./data/wes"), "Folder with WES QC exports")
	fs.StringVar(&cfg.LRS.Dir, "lrs_dir", envOrDefaultFn("LRS_DIR", "./data/lrs"), "Folder with LRS QC exports")
	fs.StringVar(&cfg.WGS.Glob, "wgs_glob", envOrDefaultFn("WGS_GLOB", file.DefaultPattern), "File pattern for WGS exports")
	fs.StringVar(&cfg.WES.Glob, "wes_glob", envOrDefaultFn("WES_GLOB", file.DefaultPattern), "File pattern for WES exports")
	fs.StringVar(&cfg.LRS.Glob, "lrs_glob", envOrDefaultFn("LRS_GLOB", file.DefaultPattern), "File pattern for LRS exports")
	fs.StringVar(&cfg.Platforms, "platforms", envOrDefaultFn("PLATFORMS", "WGS,WES,LRS"), "Platforms to ingest, in order")

	// DB connectivity
	fs.StringVar(&cfg.DBDriver, "db_driver", envOrDefaultFn("DB_DRIVER", "sqlite"), "Store: sqlite, postgres, mysql, mssql or mongo")
	fs.StringVar(&cfg.DSN, "dsn", getenv("DB_DSN"), "Full DSN; overrides the discrete parts")
	fs.StringVar(&cfg.DBUser, "db_user", getenv("DB_USER"), "DB user")
	fs.StringVar(&cfg.DBPassword, "db_password", getenv("DB_PASSWORD"), "DB password")
	fs.StringVar(&cfg.DBHost, "db_host", envOrDefaultFn("DB_HOST", "localhost"), "DB host")
	fs.StringVar(&cfg.DBPort, "db_port", getenv("DB_PORT"), "DB port (driver default when empty)")
	fs.StringVar(&cfg.DBName, "db_name", getenv("DB_NAME"), "DB name")
	fs.StringVar(&cfg.Table, "db_table", envOrDefaultFn("DB_TABLE", DefaultTable), "Target table or collection")
	fs.BoolVar(&cfg.AutoCreateTable, "auto_create_table", boolEnvOrDefaultFn("AUTO_CREATE_TABLE", true), "Create the target table when missing")
	fs.IntVar(&cfg.ConnectRetries, "connect_retries", intEnvOrDefaultFn("CONNECT_RETRIES", 3), "Retries for the initial DB connection")

	// Runtime
	fs.IntVar(&cfg.Workers, "workers", intEnvOrDefaultFn("WORKERS", 4), "Files processed in parallel per platform")
	fs.BoolVar(&cfg.DryRun, "dry_run", boolEnvOrDefaultFn("DRY_RUN", false), "Print records instead of storing them")
	fs.BoolVar(&cfg.Watch, "watch", boolEnvOrDefaultFn("WATCH", false), "Watch the input folders for new files")
	fs.StringVar(&cfg.Schedule, "schedule", getenv("SCHEDULE"), "Cron expression for repeated runs; empty runs once")

	// Observability
	fs.StringVar(&cfg.LogLevel, "log_level", strings.ToLower(envOrDefaultFn("LOG_LEVEL", "info")), "Log level: debug, info, warn or error")
	fs.BoolVar(&cfg.LogJSON, "log_json", boolEnvOrDefaultFn("LOG_JSON", false), "Emit JSON logs")
	fs.StringVar(&cfg.MetricsBackend, "metrics_backend", envOrDefaultFn("METRICS_BACKEND", "none"), "Metrics backend: none, pushgateway or datadog")
	fs.StringVar(&cfg.PushgatewayURL, "pushgateway_url", getenv("PUSHGATEWAY_URL"), "Pushgateway URL")
	fs.StringVar(&cfg.DatadogAddr, "datadog_addr", getenv("DATADOG_ADDR"), "DogStatsD address, e.g. 127.0.0.1:8125")
	fs.StringVar(&cfg.JobName, "job_name", envOrDefaultFn("JOB_NAME", "qcingest"), "Job label for metrics")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom is a wrapper around LoadFromArgs for call-sites that don't
// need to pass args explicitly.
func LoadFrom(fs *flag.FlagSet, getenv func(string) string) (*Config, error) {
	return LoadFromArgs(fs, getenv, nil)
}

// Load is the production entry point. It loads the .env file named by
// QC_ENV_FILE (default ".env"), then parses os.Args[1:] on flag.CommandLine
// with os.Getenv as the fallback source.
func Load() (*Config, error) {
	envFile := os.Getenv("QC_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	return LoadFromArgs(flag.CommandLine, os.Getenv, os.Args[1:])
}

// LoadEnvFile copies the variables of a dotenv file into the process
// environment. Variables that are already set are left untouched and a
// missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// parseBool accepts "1/0", "true/false", "yes/no" and "on/off" in any case.
// Anything else yields d.
func parseBool(v string, d bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}
