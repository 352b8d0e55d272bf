// Package watch reloads the reminder store when another process rewrites
// its data file.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/dagaz/internal/checksum"
	"github.com/starford/dagaz/internal/storage"
)

// DefaultDebounce is how long the watcher waits for a burst of events to
// settle before comparing checksums.
const DefaultDebounce = 200 * time.Millisecond

// Source is the store being watched.
type Source interface {
	Name() string
	// Checksum of the bytes the store last wrote or read.
	Checksum() string
}

// Watch observes the directory holding src's data file until ctx is
// cancelled. When the file settles on content that differs from src's own
// checksum, onChange is called. The store's own atomic writes match its
// checksum and are ignored.
func Watch(ctx context.Context, provider storage.Provider, src Source, debounce time.Duration, logger *slog.Logger, onChange func()) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := provider.Path(src.Name())
	if err != nil {
		return err
	}
	dir, base := filepath.Dir(abs), filepath.Base(abs)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: atomic replaces swap the inode, which drops a
	// watch placed on the file itself.
	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("file", abs))

	var timer *time.Timer
	var settleCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			settleCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			current := fileChecksum(provider, src.Name(), logger)
			if current == src.Checksum() {
				logger.Debug("watcher: own write, skipped")
				continue
			}
			logger.Info("watcher: data file changed externally", slog.String("file", abs))
			onChange()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if name != base || storage.IsTemp(name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// fileChecksum hashes the file, returning "" when it is absent.
func fileChecksum(provider storage.Provider, name string, logger *slog.Logger) string {
	ok, err := provider.Exists(name)
	if err != nil || !ok {
		return ""
	}
	data, err := provider.Read(name)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("error", err.Error()))
		return ""
	}
	return checksum.Sum(data)
}
