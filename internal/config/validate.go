package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path names the flag the
// finding is about (e.g. "db_driver", "wes_dir").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a
// single error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

var sqlIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// newValidator returns a validator that reports fields by their flag name
// and knows the "sqlident" tag used for table names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("flag"); name != "" {
			return name
		}
		return f.Name
	})
	_ = v.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
		return sqlIdent.MatchString(fl.Field().String())
	})
	return v
}

// ValidateConfig performs static validation of c: struct tag rules first,
// then checks that span several fields. It does not mutate c.
func ValidateConfig(c *Config) []Issue {
	var issues []Issue

	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []Issue{{Severity: SeverityError, Path: "config", Message: err.Error()}}
		}
		for _, fe := range verrs {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fe.Field(),
				Message:  describe(fe),
			})
		}
	}

	issues = append(issues, validateInputs(c)...)
	issues = append(issues, validateStore(c)...)
	issues = append(issues, validateRuntime(c)...)
	return issues
}

// Validate returns the error-severity issues of ValidateConfig joined into
// one error, or nil when c is usable.
func (c *Config) Validate() error {
	var errs []error
	for _, iss := range ValidateConfig(c) {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	return errors.Join(errs...)
}

// Warnings returns the warning-severity issues of ValidateConfig.
func (c *Config) Warnings() []Issue {
	var out []Issue
	for _, iss := range ValidateConfig(c) {
		if iss.Severity == SeverityWarning {
			out = append(out, iss)
		}
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "must not be empty"
	case "oneof":
		return fmt.Sprintf("%q is not one of [%s]", fe.Value(), fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%v must be %s %s", fe.Value(), fe.Tag(), fe.Param())
	case "sqlident":
		return fmt.Sprintf("%q is not a plain table identifier", fe.Value())
	}
	return fmt.Sprintf("%v fails %q", fe.Value(), fe.Tag())
}

// validateInputs checks the platform list and the folder of every selected
// platform.
func validateInputs(c *Config) []Issue {
	ps, err := c.SelectedPlatforms()
	if err != nil {
		return []Issue{{Severity: SeverityError, Path: "platforms", Message: err.Error()}}
	}
	if len(ps) == 0 && strings.TrimSpace(c.Platforms) != "" {
		return []Issue{{Severity: SeverityError, Path: "platforms", Message: "no platform selected"}}
	}

	var issues []Issue
	for _, p := range ps {
		prefix := strings.ToLower(p.String())
		f := c.Folder(p)
		if strings.TrimSpace(f.Dir) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     prefix + "_dir",
				Message:  fmt.Sprintf("%s is selected but has no folder", p),
			})
		}
		if f.Glob == "" || !doublestar.ValidatePattern(f.Glob) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     prefix + "_glob",
				Message:  fmt.Sprintf("invalid file pattern %q", f.Glob),
			})
		}
	}
	return issues
}

// validateStore flags configurations that will run without a database.
func validateStore(c *Config) []Issue {
	if c.DryRun {
		return nil
	}
	if c.DSN != "" {
		return nil
	}
	switch c.DBDriver {
	case "postgres", "mysql", "mssql":
		if c.DBUser != "" && c.DBName != "" {
			return nil
		}
	}
	return []Issue{{
		Severity: SeverityWarning,
		Path:     "dsn",
		Message:  "no database credentials configured; records will be skipped",
	}}
}

// validateRuntime checks the run mode switches.
func validateRuntime(c *Config) []Issue {
	var issues []Issue
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "schedule",
				Message:  fmt.Sprintf("invalid cron expression %q: %v", c.Schedule, err),
			})
		}
		if c.Watch {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "watch",
				Message:  "watch and schedule are mutually exclusive",
			})
		}
	}
	return issues
}
