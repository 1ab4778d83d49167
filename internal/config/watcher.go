/*-------------------------------------------------------------------------
 *
 * kdb+/q Console
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"kdb-q-console/internal/logging"
)

// debounceDuration collapses the bursts of events editors produce on save
const debounceDuration = 100 * time.Millisecond

// FileWatcher watches a file for changes and triggers a reload callback
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	filePath string
	reloadFn func() error
	done     chan struct{}
}

// NewFileWatcher creates a new file watcher
func NewFileWatcher(filePath string, reloadFn func() error) (*FileWatcher, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", filePath, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher:  watcher,
		filePath: abs,
		reloadFn: reloadFn,
		done:     make(chan struct{}),
	}

	// Watch the directory containing the file (not the file itself)
	// This is because editors often delete and recreate files on save
	dir := filepath.Dir(abs)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	return fw, nil
}

// WatchConfig reloads rc whenever its file changes. The returned watcher
// is already started.
func WatchConfig(rc *ReloadableConfig) (*FileWatcher, error) {
	path := rc.GetPath()
	if path == "" {
		return nil, fmt.Errorf("no configuration file path set")
	}
	fw, err := NewFileWatcher(path, rc.Reload)
	if err != nil {
		return nil, err
	}
	fw.Start()
	return fw, nil
}

// Start begins watching for file changes
func (fw *FileWatcher) Start() {
	go fw.watch()
}

// Stop stops watching for file changes
func (fw *FileWatcher) Stop() {
	close(fw.done)
	fw.watcher.Close()
}

// watch monitors file events and triggers reloads
func (fw *FileWatcher) watch() {
	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// Only process events for our specific file
			if filepath.Clean(event.Name) != fw.filePath {
				continue
			}

			// Handle write and create events (editors may delete and recreate)
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					if err := fw.reloadFn(); err != nil {
						logging.Warn("config_reload_failed", "path", fw.filePath, "error", err)
					} else {
						logging.Debug("config_file_changed", "path", fw.filePath)
					}
				})
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("config_watcher_error", "path", fw.filePath, "error", err)

		case <-fw.done:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		}
	}
}
