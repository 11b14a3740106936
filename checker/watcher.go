// ABOUTME: Rescans a plugin directory whenever its plugin files change
// ABOUTME: Bursts of file events are debounced into a single scan

package checker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long the watcher waits for events to settle
const DefaultDebounce = 500 * time.Millisecond

// Watcher runs a scan on start and again after plugin files change
type Watcher struct {
	scanner  *Scanner
	dir      string
	debounce time.Duration
	onReport func(*Report)
	logger   *logrus.Logger
}

// NewWatcher creates a watcher that passes each scan's report to onReport
func NewWatcher(s *Scanner, dir string, debounce time.Duration, onReport func(*Report)) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		scanner:  s,
		dir:      dir,
		debounce: debounce,
		onReport: onReport,
		logger:   s.logger,
	}
}

// Run watches until ctx is done. Scan failures are logged and do not stop the watch.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.WithField("dir", w.dir).Info("Watching for plugin changes")

	w.rescan(ctx)

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !IsPluginFile(event.Name) || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.WithFields(logrus.Fields{"file": event.Name, "op": event.Op.String()}).Debug("Plugin changed")
			fire = time.After(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("Watcher error")
		case <-fire:
			fire = nil
			w.rescan(ctx)
		}
	}
}

func (w *Watcher) rescan(ctx context.Context) {
	report, err := w.scanner.Scan(ctx, w.dir)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			w.logger.WithError(err).Error("Scan failed")
		}
		return
	}
	if w.onReport != nil {
		w.onReport(report)
	}
}
