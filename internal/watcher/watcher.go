// Package watcher reports vault file changes. It keeps no derived state:
// subscribers are told what changed and re-read the vault themselves.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/basalt/internal/pathfilter"
)

// Change kinds passed to Callback.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// Callback is called for every relevant change. path is vault-relative with
// forward slashes.
type Callback func(kind, path string)

// relevant reports whether changes to rel should be announced: visible notes
// and base documents.
func relevant(filter *pathfilter.Filter, rel string) bool {
	if !strings.HasSuffix(rel, ".md") && !strings.HasSuffix(rel, ".base") {
		return false
	}
	return filter.IsAllowed(rel)
}

// Watch starts an fsnotify watcher on the vault root and reports changes
// until ctx is cancelled. Directories hidden by filter are not watched; new
// directories created at runtime are added and their files reported as
// created.
//
// fsnotify reports a rename on the old path only, so renames are reported as
// a deletion; the new name arrives as its own create event.
func Watch(ctx context.Context, root string, filter *pathfilter.Filter, logger *slog.Logger, cb Callback) error {
	if cb == nil {
		cb = func(string, string) {}
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer w.Close()

	if err := addDirsRecursive(w, root, root, filter); err != nil {
		return fmt.Errorf("watcher: %w", err)
	}

	logger.Info("watcher: started", slog.String("root", root))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if !filter.IsAllowed(rel + "/") {
						continue
					}
					if addErr := addDirsRecursive(w, root, ev.Name, filter); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", rel))
					}
					announceDir(root, ev.Name, filter, cb)
					continue
				}
			}

			if !relevant(filter, rel) {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				logger.Debug("watcher: change", slog.String("path", rel), slog.String("op", Created))
				cb(Created, rel)
			case ev.Op&fsnotify.Write != 0:
				logger.Debug("watcher: change", slog.String("path", rel), slog.String("op", Updated))
				cb(Updated, rel)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				logger.Debug("watcher: change", slog.String("path", rel), slog.String("op", Deleted))
				cb(Deleted, rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// announceDir reports every relevant file already inside a new directory;
// files can land before the watch is in place.
func announceDir(root, dir string, filter *pathfilter.Filter, cb Callback) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if relevant(filter, rel) {
			cb(Created, rel)
		}
		return nil
	})
}

// addDirsRecursive watches dir and every visible subdirectory below it.
func addDirsRecursive(w *fsnotify.Watcher, root, dir string, filter *pathfilter.Filter) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root {
			if rel, relErr := filepath.Rel(root, p); relErr == nil && !filter.IsAllowed(filepath.ToSlash(rel)+"/") {
				return fs.SkipDir
			}
		}
		return w.Add(p)
	})
}
