// Package platform describes the three sequencing platforms whose QC exports
// are ingested. Each platform owns one immutable Config: its field delimiter,
// its header alias table and the layouts accepted for its analysis date column.
//
// The tables are process-wide and read-only after package initialization, so
// they can be shared between file workers without synchronization.
package platform

import (
	"fmt"
	"strings"
)

// Platform is a closed enumeration of the supported sequencing platforms.
type Platform int

const (
	// WGS is whole genome sequencing (tab separated exports).
	WGS Platform = iota + 1
	// WES is whole exome sequencing (tab separated exports).
	WES
	// LRS is long read sequencing (comma separated exports).
	LRS
)

// Alias rewrites one normalized header token. An empty Canonical marks the
// column for exclusion.
type Alias struct {
	Raw       string
	Canonical string
}

// Config is the fixed configuration record of a platform.
type Config struct {
	Name      string
	Delimiter string

	// Aliases are evaluated in order; the first exact match wins.
	Aliases []Alias

	// DateLayouts are Go time layouts tried in order against the analysis
	// date column. An empty list means the column never parses.
	DateLayouts []string

	// FilenameDateFallback derives the analysis date from the file name when
	// no row value could be parsed.
	FilenameDateFallback bool
}

var lrsAliases = []Alias{
	{"instrument", "sequencer_id"},
	{"run_name", "experiment_name"},
	{"sample_name", "sample_id"},
	{"transfer_complete", "analysis_date"},
	{"sample_comment", ""},
	{"sample_summary", ""},
	{"run_comments", ""},
	{"experiment_name", ""},
	{"experiment_id", ""},
	{"run_start", ""},
	{"run_complete", ""},
	{"run_id", ""},
	{"run_description", ""},
}

var shortReadAliases = []Alias{
	{"sampleid", "sample_id"},
	{"runid", "run_id"},
}

// configs is indexed by Platform; index 0 is the invalid zero value.
var configs = [...]Config{
	WGS: {
		Name:        "WGS",
		Delimiter:   "\t",
		Aliases:     shortReadAliases,
		DateLayouts: []string{"2-1-2006"},
	},
	WES: {
		Name:                 "WES",
		Delimiter:            "\t",
		Aliases:              shortReadAliases,
		FilenameDateFallback: true,
	},
	LRS: {
		Name:        "LRS",
		Delimiter:   ",",
		Aliases:     lrsAliases,
		DateLayouts: []string{"1.2.2006 15:04", "1.2.2006 15:04:05"},
	},
}

// All returns every platform in processing order.
func All() []Platform { return []Platform{WGS, WES, LRS} }

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool { return p >= WGS && p <= LRS }

// Config returns the platform's configuration. It panics for invalid values,
// which can only be produced by converting arbitrary integers.
func (p Platform) Config() Config {
	if !p.Valid() {
		panic(fmt.Sprintf("platform: invalid value %d", int(p)))
	}
	return configs[p]
}

func (p Platform) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Platform(%d)", int(p))
	}
	return configs[p].Name
}

// Parse resolves a platform name case-insensitively.
func Parse(name string) (Platform, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for _, p := range All() {
		if configs[p].Name == n {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown platform %q (want WGS, WES or LRS)", name)
}

// ParseList resolves a comma separated list of platform names, dropping
// duplicates and preserving the first-seen order.
func ParseList(s string) ([]Platform, error) {
	var out []Platform
	seen := map[Platform]bool{}
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		p, err := Parse(part)
		if err != nil {
			return nil, err
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}
