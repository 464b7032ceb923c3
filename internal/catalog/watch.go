package catalog

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce collapses the burst of events editors emit on save.
const reloadDebounce = 200 * time.Millisecond

// Watch reloads the catalog at path whenever it changes and hands every
// valid result to onReload. Invalid edits are logged and the previous
// catalog stays in effect. Watch blocks until ctx is done.
//
// The parent directory is watched rather than the file so that editors
// which replace the file on save keep triggering reloads.
func Watch(ctx context.Context, path string, logger *log.Logger, onReload func(*Catalog)) error {
	if logger == nil {
		logger = log.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("catalog watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("catalog watcher: watch %s: %w", filepath.Dir(abs), err)
	}

	reload := make(chan struct{}, 1)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Printf("catalog: watcher error: %v", err)
		case <-reload:
			c, err := Load(path)
			if err != nil {
				logger.Printf("catalog: reload rejected: %v", err)
				continue
			}
			logger.Printf("catalog: reloaded %d templates from %s", c.Len(), path)
			onReload(c)
		}
	}
}
