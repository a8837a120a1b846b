// Package logging builds the structured logger shared by the ingestion run.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Config selects the logger's level and output format.
type Config struct {
	Level  string // debug, info, warn or error
	JSON   bool
	Output io.Writer
}

// New returns a logger writing to cfg.Output (stderr when nil). Unknown levels
// fall back to info.
func New(cfg Config) *log.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	l := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           ParseLevel(cfg.Level),
	})
	if cfg.JSON {
		l.SetFormatter(log.JSONFormatter)
	}
	return l
}

// ParseLevel maps a level name to a log.Level, defaulting to info.
func ParseLevel(s string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// OrDefault returns l, or the package default logger when l is nil.
func OrDefault(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Default()
	}
	return l
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
