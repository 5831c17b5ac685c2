package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of events editors produce on save
// (truncate, write, rename) into one reload.
const reloadDebounce = 250 * time.Millisecond

// ReloadFunc produces a fresh, validated Config.
type ReloadFunc func() (*Config, error)

// Watch observes the directory containing holder.Path() and, after the file
// changes, calls reload and stores the result in holder. A failed reload is
// logged and the previous config stays active. The parent directory is
// watched rather than the file so atomic rename-on-save keeps working.
// Watch blocks until ctx is canceled.
func Watch(ctx context.Context, holder *Holder, reload ReloadFunc, logger *slog.Logger) error {
	path := holder.Path()
	if path == "" {
		return fmt.Errorf("config: watch: no config file path")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config: watching %s: %w", dir, err)
	}

	logger.Debug("watching config file", slog.String("path", path))

	name := filepath.Clean(path)

	// Stopped timer; armed by the first relevant event.
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()

	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != name {
				continue
			}

			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}

			debounce.Reset(reloadDebounce)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("config watcher error", slog.String("error", watchErr.Error()))

		case <-debounce.C:
			applyReload(holder, reload, logger)
		}
	}
}

func applyReload(holder *Holder, reload ReloadFunc, logger *slog.Logger) {
	cfg, err := reload()
	if err != nil {
		logger.Warn("config reload failed, keeping previous config",
			slog.String("path", holder.Path()),
			slog.String("error", err.Error()),
		)

		return
	}

	holder.Update(cfg)
	logger.Info("config reloaded", slog.String("path", holder.Path()))
}
