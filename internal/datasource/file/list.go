package file

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"qcingest/internal/logging"
)

var (
	// ErrInvalidDirectory means the folder is missing or not a directory.
	ErrInvalidDirectory = errors.New("invalid directory")
	// ErrEmptyDirectory means the folder has no entries at all.
	ErrEmptyDirectory = errors.New("the directory is empty")
	// ErrBadPattern means the file glob cannot be compiled.
	ErrBadPattern = errors.New("bad file pattern")
)

// DefaultPattern selects the exports of every platform.
const DefaultPattern = "*.csv"

// ListFiles returns the regular files directly under dir whose names match
// pattern, sorted by name. Matching ignores case. Entries that do not match
// are counted and reported with a single warning.
//
// Folder problems are returned before any file is handed out: a missing path
// or a non-directory yields ErrInvalidDirectory, a directory without entries
// ErrEmptyDirectory.
func ListFiles(fsys afero.Fs, dir, pattern string, logger *log.Logger) ([]string, error) {
	logger = logging.OrDefault(logger)
	if pattern == "" {
		pattern = DefaultPattern
	}
	pattern = strings.ToLower(pattern)
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
	}

	display := dir
	if abs, err := filepath.Abs(dir); err == nil {
		display = abs
	}

	isDir, err := afero.IsDir(fsys, dir)
	if err != nil || !isDir {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDirectory, display)
	}
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", display, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDirectory, display)
	}

	var (
		out     []string
		skipped int
		total   int64
	)
	for _, e := range entries {
		if !e.Mode().IsRegular() {
			skipped++
			continue
		}
		ok, _ := doublestar.Match(pattern, strings.ToLower(e.Name()))
		if !ok {
			skipped++
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
		total += e.Size()
	}

	if skipped > 0 {
		logger.Warn("non-matching files detected in folder", "dir", display, "pattern", pattern, "count", skipped)
	}
	logger.Debug("folder listed", "dir", display, "files", len(out), "size", humanize.Bytes(uint64(total)))
	return out, nil
}

// Matches reports whether a file name matches pattern the way ListFiles does.
func Matches(pattern, name string) bool {
	if pattern == "" {
		pattern = DefaultPattern
	}
	ok, err := doublestar.Match(strings.ToLower(pattern), strings.ToLower(filepath.Base(name)))
	return err == nil && ok
}
