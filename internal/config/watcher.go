package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"ordo/internal/logger"
)

// Watch reloads the config when the file (or any of its includes)
// changes and hands the fresh copy to onReload. Editors often replace
// files atomically, so the watcher follows the directories, not the
// files, and debounces bursts of events.
func Watch(ctx context.Context, path string, onReload func(*Config)) error {
	files, err := expandIncludes(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	watched := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		watched[filepath.Clean(f)] = true
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return err
		}
	}

	go func() {
		defer watcher.Close()
		var debounce *time.Timer
		reload := func() {
			cfg, err := Load(path)
			if err != nil {
				logger.Warnf("config: reload failed, keeping previous config: %v", err)
				return
			}
			logger.Infof("config: reloaded from %s", path)
			onReload(cfg)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !watched[filepath.Clean(ev.Name)] {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(300*time.Millisecond, reload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnf("config: watcher error: %v", err)
			}
		}
	}()
	return nil
}
