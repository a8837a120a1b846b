// Package normalize turns human-authored QC export headers and cells into
// canonical, typed values. Everything here is pure: no I/O and no shared
// mutable state, so the functions are safe to call from any number of file
// workers at once.
package normalize

import (
	"regexp"
	"strings"

	"qcingest/internal/platform"
)

// Reserved canonical headers. Values under these names are extracted into the
// dedicated Record slots and never reach the metrics mapping.
const (
	SampleID       = "sample_id"
	ExperimentName = "experiment_name"
	AnalysisDate   = "analysis_date"
)

// headerRule is one rewrite applied to the whole lower-cased header line.
type headerRule struct {
	match *regexp.Regexp
	repl  string
}

// headerRules run in order; later rules see the output of earlier ones, so
// the space collapse must stay after every rule that can introduce spaces.
var headerRules = []headerRule{
	{regexp.MustCompile(`"`), ""},
	{regexp.MustCompile(`%`), "percentage "},
	{regexp.MustCompile(` / `), " ratio "},
	{regexp.MustCompile(`/`), " "},
	{regexp.MustCompile(`=`), ""},
	{regexp.MustCompile(`-`), "_"},
	{regexp.MustCompile(`:`), ""},
	{regexp.MustCompile(`>`), "bigger_than"},
	{regexp.MustCompile(`<`), "less_than"},
	{regexp.MustCompile(`[()]`), ""},
	{regexp.MustCompile(`[\[\]]`), ""},
	{regexp.MustCompile(`\*`), " times "},
	{regexp.MustCompile(` {2,}`), " "},
	{regexp.MustCompile(`≥`), "bigger_than_or_equal_to"},
}

// NormalizeHeaderLine lower-cases the raw header line, applies the rewrite
// table and splits on delim. Every resulting token has its spaces replaced by
// underscores and loses at most one trailing underscore.
//
// The result has one token per raw column, empty tokens included, so column
// positions line up with the data rows.
func NormalizeHeaderLine(line, delim string) []string {
	s := strings.ToLower(line)
	for _, r := range headerRules {
		s = r.match.ReplaceAllLiteralString(s, r.repl)
	}

	tokens := strings.Split(s, delim)
	for i, tok := range tokens {
		tok = strings.ReplaceAll(tok, " ", "_")
		tokens[i] = strings.TrimSuffix(tok, "_")
	}
	return tokens
}

// MapHeaders applies a platform alias table to normalized headers and returns
// a new slice. Each token is compared against the aliases in table order and
// replaced by the first exact match; unmatched tokens pass through.
func MapHeaders(headers []string, aliases []platform.Alias) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = h
		for _, a := range aliases {
			if h == a.Raw {
				out[i] = a.Canonical
				break
			}
		}
	}
	return out
}

// CanonicalHeaders normalizes a raw header line and resolves it against the
// platform's alias table in one step.
func CanonicalHeaders(line string, p platform.Platform) []string {
	cfg := p.Config()
	return MapHeaders(NormalizeHeaderLine(line, cfg.Delimiter), cfg.Aliases)
}

// IsReserved reports whether h names one of the dedicated identity slots.
func IsReserved(h string) bool {
	switch h {
	case SampleID, ExperimentName, AnalysisDate:
		return true
	}
	return false
}
