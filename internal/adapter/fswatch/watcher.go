// Package fswatch triggers a callback when files under a set of directories
// change, collapsing bursts of events into one call.
package fswatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Watcher watches directories and calls OnChange after Debounce of quiet.
type Watcher struct {
	Paths    []string
	Debounce time.Duration
	OnChange func(ctx context.Context)
}

// Run blocks until ctx is done. Directories that do not exist when Run starts
// are skipped. Returns an error only when no directory could be watched.
func (w *Watcher) Run(ctx context.Context) error {
	if w.OnChange == nil {
		return errors.New("fswatch: OnChange is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fswatch: create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	watched := 0
	for _, p := range w.Paths {
		if _, err := os.Stat(p); err != nil {
			slog.Debug("fswatch: skipping missing path", "path", p)
			continue
		}
		if err := watcher.Add(p); err != nil {
			slog.Warn("fswatch: cannot watch path", "path", p, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("fswatch: none of %v could be watched", w.Paths)
	}
	slog.Info("watching for changes", "paths", w.Paths, "debounce", w.Debounce)

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(relevantOps) {
				continue
			}
			slog.Debug("fswatch: change detected", "path", event.Name, "op", event.Op.String())
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("fswatch: watcher error", "error", err)

		case <-timer.C:
			w.OnChange(ctx)
		}
	}
}
