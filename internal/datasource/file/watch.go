package file

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"qcingest/internal/logging"
)

// DefaultQuietPeriod is how long a file must stay unchanged before it is
// reported by Watch.
const DefaultQuietPeriod = 2 * time.Second

// WatchOptions tunes Watch.
type WatchOptions struct {
	Pattern string
	Quiet   time.Duration
	Logger  *log.Logger
}

// Watch reports files under dir that are created or written and match the
// pattern. A file is reported once it has been quiet for opts.Quiet, so
// exports still being copied in are not picked up half written. Watch blocks
// until ctx is done and then returns nil.
func Watch(ctx context.Context, dir string, opts WatchOptions, onFile func(path string)) error {
	logger := logging.OrDefault(opts.Logger)
	quiet := opts.Quiet
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	tick := time.NewTicker(quiet / 4)
	defer tick.Stop()

	pending := map[string]time.Time{}
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if Matches(opts.Pattern, ev.Name) {
				pending[ev.Name] = time.Now()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch error", "dir", dir, "err", err)

		case now := <-tick.C:
			for path, last := range pending {
				if now.Sub(last) >= quiet {
					delete(pending, path)
					onFile(path)
				}
			}
		}
	}
}
