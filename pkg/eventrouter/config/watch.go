package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the file at path whenever it changes and passes the result
// to fn. Parse failures are reported through fn's error argument so the
// caller can keep its previous configuration.
//
// The parent directory is watched rather than the file so that a file
// replaced by rename shows up as a create. Watch returns once the watcher is
// registered; it stops when ctx is done.
func Watch(ctx context.Context, path string, fn func(Config, error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != abs {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := FromFile(abs)
				fn(cfg, err)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				fn(Config{}, fmt.Errorf("watch config: %w", err))
			}
		}
	}()
	return nil
}
