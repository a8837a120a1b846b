// Package records defines the uniform QC record every platform export is
// normalized into.
package records

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/golang-sql/civil"
	"github.com/zeebo/xxh3"
)

// Metrics maps canonical header names to typed values (int64, float64 or
// string). The reserved identity names never appear as keys.
type Metrics map[string]any

// Record is one data row of a QC export. It is built once and not mutated
// after it has been handed to a sink.
type Record struct {
	FileName string
	Platform string
	// Line is the 1-based line number in the source file; the header is line 1.
	Line int

	// Empty SampleID/ExperimentName and a nil AnalysisDate mean absent.
	SampleID       string
	ExperimentName string
	AnalysisDate   *civil.Date

	Metrics Metrics
}

// Keys returns the metric names in sorted order.
func (m Metrics) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// JSON encodes the metrics as a JSON object with sorted keys.
func (m Metrics) JSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(m))
}

// Fingerprint is a stable hash of the record's content and position. Two
// ingestions of the same file produce the same fingerprints, which lets sinks
// skip rows they already stored.
func (r Record) Fingerprint() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\x00%s\x00%d\x00%s\x00%s\x00", r.FileName, r.Platform, r.Line, r.SampleID, r.ExperimentName)
	if r.AnalysisDate != nil {
		sb.WriteString(r.AnalysisDate.String())
	}
	sb.WriteByte(0)
	if b, err := r.Metrics.JSON(); err == nil {
		sb.Write(b)
	}
	return fmt.Sprintf("%016x", xxh3.HashString(sb.String()))
}

// String renders the record as a readable block, one metric per line.
func (r Record) String() string {
	na := func(s string) string {
		if s == "" {
			return "N/A"
		}
		return s
	}
	date := "N/A"
	if r.AnalysisDate != nil {
		date = r.AnalysisDate.String()
	}

	lines := []string{
		"File: " + r.FileName,
		"NGS Type: " + r.Platform,
		"Sample ID: " + na(r.SampleID),
		"Experiment Name: " + na(r.ExperimentName),
		"Analysis Date: " + date,
	}
	for _, k := range r.Metrics.Keys() {
		lines = append(lines, fmt.Sprintf("\t%s: %v", k, r.Metrics[k]))
	}
	return strings.Join(lines, "\n")
}
