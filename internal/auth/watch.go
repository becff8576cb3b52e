package auth

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the token whenever the token file is created or written,
// until ctx is done. The parent directory is watched so that files
// replaced by rename are still seen. ready, if non-nil, is closed once
// the watch is installed.
func (f *TokenFile) Watch(ctx context.Context, ready chan<- struct{}) error {
	if f.path == "" {
		return fmt.Errorf("watching token: %w", ErrTokenEmpty)
	}
	target, err := filepath.Abs(f.path)
	if err != nil {
		return fmt.Errorf("resolving token path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}
	if ready != nil {
		close(ready)
	}

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
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			changed, err := f.Reload()
			if err != nil {
				f.logger.Debug("token reload skipped", slog.Any("error", err))
				continue
			}
			if changed {
				f.logger.Info("token reloaded", slog.String("path", f.path))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("token watch error", slog.Any("error", err))
		}
	}
}
