package asset

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// debounce collapses the burst of write events editors produce on save.
const debounce = 100 * time.Millisecond

// Watch calls reload with the new contents every time the file at path is
// written or replaced, until ctx is done. Read errors are logged and
// skipped. The directory is watched rather than the file so atomic
// renames are seen.
func Watch(ctx context.Context, path string, reload func([]byte) error) error {
	p, err := ExpandPath(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating fsnotify watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck

	dir := filepath.Dir(p)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("error adding dir to fsnotify watcher: %w", err)
	}
	log.Info("fsnotify watching dir", "dir", dir)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != p {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)

			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			data, err := ReadFile(p)
			if err != nil {
				log.Warn("Failed to reload asset", "file", p, "error", err)
				continue
			}
			if err := reload(data); err != nil {
				log.Warn("Asset reload rejected", "file", p, "error", err)
				continue
			}
			log.Info("Asset reloaded", "file", p, "bytes", len(data))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Debug("fsnotify error", "dir", dir, "error", err)
		}
	}
}
