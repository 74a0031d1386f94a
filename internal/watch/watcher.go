// Package watch monitors the content tree and triggers incremental rebuilds.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RebuildFunc runs one pipeline build. The incremental manifest makes it
// cheap to call on every change burst.
type RebuildFunc func(ctx context.Context) error

// EventCallback is called for each observed content change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind, path string)

// Watch starts an fsnotify watcher on the content root and processes file
// change events until ctx is cancelled. Changes are debounced: a burst of
// events produces a single rebuild once the tree settles.
//
// New directories created at runtime are automatically added to the watch
// list. Renames are handled by the rebuild itself, which prunes index
// entries whose files no longer exist on disk.
func Watch(ctx context.Context, root string, debounce time.Duration, logger *slog.Logger, cb EventCallback, rebuild RebuildFunc) error {
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var rebuildTimer *time.Timer
	var rebuildCh <-chan time.Time

	scheduleRebuild := func() {
		if rebuildTimer == nil {
			rebuildTimer = time.NewTimer(debounce)
			rebuildCh = rebuildTimer.C
		} else {
			rebuildTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if rebuildTimer != nil {
				rebuildTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-rebuildCh:
			if err := rebuild(ctx); err != nil {
				logger.Warn("watcher: rebuild failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New directories: add to the watch list and rebuild to pick up
			// any files that arrived with them.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					scheduleRebuild()
					continue
				}
			}

			// Only react to .md files from here on.
			if !strings.HasSuffix(absPath, ".md") {
				continue
			}

			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&fsnotify.Create != 0:
				logger.Debug("watcher: created", slog.String("path", rel))
				if cb != nil {
					cb("created", rel)
				}
				scheduleRebuild()

			case ev.Op&fsnotify.Write != 0:
				logger.Debug("watcher: updated", slog.String("path", rel))
				if cb != nil {
					cb("updated", rel)
				}
				scheduleRebuild()

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				logger.Debug("watcher: deleted", slog.String("path", rel))
				if cb != nil {
					cb("deleted", rel)
				}
				scheduleRebuild()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
