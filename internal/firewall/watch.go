package firewall

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDelay = 100 * time.Millisecond

// Watch reloads the index whenever the rule file at path is written or
// replaced. Editors that save through a rename are handled by watching the
// parent directory. Bursts of events within reloadDelay cause one reload.
// Watch blocks until ctx is done.
func (fw *Firewall) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	fw.log.WithField("path", target).Info("watching rule file")

	timer := time.NewTimer(reloadDelay)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(reloadDelay)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fw.log.WithError(err).Warn("rule file watcher error")
		case <-timer.C:
			if err := fw.Reload(ctx); err != nil {
				fw.log.WithError(err).Error("rule reload failed, keeping previous index")
			}
		}
	}
}
