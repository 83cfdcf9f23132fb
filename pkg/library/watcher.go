package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/platinummonkey/depot/pkg/observability"
	"github.com/platinummonkey/depot/pkg/storage"
)

// Watcher triggers a rescan after metadata files under a directory change.
// Bursts of events within the debounce interval cause one rescan.
type Watcher struct {
	root      string
	debounce  time.Duration
	rescanner Rescanner
	logger    *observability.Logger
	watcher   *fsnotify.Watcher
}

// NewWatcher starts watching root and every directory below it
func NewWatcher(root string, debounce time.Duration, rescanner Rescanner, logger *observability.Logger) (*Watcher, error) {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		root:      root,
		debounce:  debounce,
		rescanner: rescanner,
		logger:    logger.WithField("component", "watcher"),
		watcher:   watcher,
	}
	if err := w.addRecursive(root); err != nil {
		watcher.Close()
		return nil, err
	}

	return w, nil
}

// addRecursive adds path and all directories below it to the watcher
func (w *Watcher) addRecursive(path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.watcher.Add(p); err != nil {
				return fmt.Errorf("failed to watch %s: %w", p, err)
			}
		}
		return nil
	})
}

// Run processes filesystem events until ctx is done or the watcher is closed
func (w *Watcher) Run(ctx context.Context) error {
	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	w.logger.Infof("Started watching for metadata changes in %s", w.root)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.handle(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			trigger = timer.C

		case <-trigger:
			trigger = nil
			if _, err := w.rescanner.Rescan(ctx); err != nil {
				w.logger.WithError(err).Error("Rescan after file change failed")
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("Watcher error")
		}
	}
}

// handle reports whether event should trigger a rescan. New directories are
// added to the watch list, since they may arrive already populated.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if event.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			w.logger.Debugf("New directory: %s", event.Name)
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.WithError(err).Warn("Error watching new directory")
			}
			return true
		}
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		return true
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 && storage.IsMetadataFile(event.Name) {
		w.logger.Debugf("Modified file: %s", event.Name)
		return true
	}

	return false
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
