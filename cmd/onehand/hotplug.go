package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// devicePollInterval is the fallback re-check cadence when inotify misses a
// node (symlinks under by-path are created by udev after the event node).
const devicePollInterval = time.Second

func missingPaths(paths []string) []string {
	var missing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, p)
		}
	}
	return missing
}

// nearestExistingDir returns the closest existing ancestor directory of p.
func nearestExistingDir(p string) string {
	dir := filepath.Dir(p)
	for {
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

// waitForDevices blocks until every path exists, ctx is canceled, or timeout
// elapses (timeout 0 waits forever).
func waitForDevices(ctx context.Context, paths []string, timeout time.Duration, logger *slog.Logger) error {
	missing := missingPaths(paths)
	if len(missing) == 0 {
		return nil
	}
	logger.Info("waiting for input devices", "missing", missing, "timeout", timeout)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var fsEvents <-chan fsnotify.Event
	var fsErrors <-chan error

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("fsnotify unavailable, polling for devices", "error", err)
	} else {
		defer watcher.Close()
		watched := make(map[string]bool)
		for _, p := range missing {
			dir := nearestExistingDir(p)
			if watched[dir] {
				continue
			}
			if err := watcher.Add(dir); err != nil {
				logger.Warn("cannot watch directory", "dir", dir, "error", err)
				continue
			}
			watched[dir] = true
		}
		fsEvents = watcher.Events
		fsErrors = watcher.Errors
	}

	ticker := time.NewTicker(devicePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("input devices not available %v: %w", missingPaths(paths), ctx.Err())

		case event, ok := <-fsEvents:
			if !ok {
				fsEvents = nil
				continue
			}
			if event.Op&fsnotify.Create == 0 {
				continue
			}
			// A new directory on the way (e.g. by-path itself) must be watched too.
			if st, err := os.Stat(event.Name); err == nil && st.IsDir() && watcher != nil {
				_ = watcher.Add(event.Name)
			}

		case err, ok := <-fsErrors:
			if !ok {
				fsErrors = nil
				continue
			}
			logger.Warn("device watcher error", "error", err)

		case <-ticker.C:
		}

		if len(missingPaths(paths)) == 0 {
			logger.Info("input devices present")
			return nil
		}
	}
}
