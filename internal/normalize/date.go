package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-sql/civil"

	"qcingest/internal/platform"
)

var (
	// ErrNoDateLayouts is returned for platforms whose date column is never parsed.
	ErrNoDateLayouts = errors.New("platform has no date layouts")
	// ErrUnparseableDate is returned when no layout matches the value.
	ErrUnparseableDate = errors.New("unparseable date")
)

// filenameDateRe matches yyyy-mm-dd with '-' or '_' separators, mixed freely.
var filenameDateRe = regexp.MustCompile(`\d{4}[-_]\d{2}[-_]\d{2}`)

// ParseColumnDate parses an analysis date cell with the platform's layouts in
// order and truncates the first hit to a calendar date.
func ParseColumnDate(raw string, p platform.Platform) (civil.Date, error) {
	cfg := p.Config()
	if len(cfg.DateLayouts) == 0 {
		return civil.Date{}, fmt.Errorf("%s: %w", cfg.Name, ErrNoDateLayouts)
	}
	s := strings.TrimSpace(raw)
	for _, layout := range cfg.DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("%w: %q for %s", ErrUnparseableDate, raw, cfg.Name)
}

// DateFromFilename finds the first yyyy[-_]mm[-_]dd substring in name and
// parses it. Only that first match is considered; an invalid calendar date
// such as 2024_13_40 yields false.
func DateFromFilename(name string) (civil.Date, bool) {
	m := filenameDateRe.FindString(name)
	if m == "" {
		return civil.Date{}, false
	}
	d, err := civil.ParseDate(strings.ReplaceAll(m, "_", "-"))
	if err != nil {
		return civil.Date{}, false
	}
	return d, true
}
