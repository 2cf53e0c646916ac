package coverage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leapcurate/internal/refresh"
)

// Watcher reloads a Table when its YAML file changes and announces the
// change on the bus.
type Watcher struct {
	path     string
	table    *Table
	bus      *refresh.Bus
	logger   *slog.Logger
	debounce time.Duration
}

// NewWatcher creates a watcher for path. bus may be nil.
func NewWatcher(path string, table *Table, bus *refresh.Bus, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		path:     filepath.Clean(path),
		table:    table,
		bus:      bus,
		logger:   logger,
		debounce: refresh.DefaultDebounce,
	}
}

// Reload loads the file into the table. An invalid file leaves the table
// unchanged.
func (w *Watcher) Reload() error {
	dims, err := LoadDimensions(w.path)
	if err != nil {
		return err
	}
	if err := w.table.Set(dims); err != nil {
		return err
	}
	if w.bus != nil {
		w.bus.Publish(refresh.TopicDimensionsChanged, "coverage.watcher")
	}
	return nil
}

// Run watches the file until ctx is done. The parent directory is watched
// so editors that replace the file on save are picked up.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	var (
		debounceTimer *time.Timer
		pending       sync.WaitGroup
	)
	defer func() {
		if debounceTimer != nil && debounceTimer.Stop() {
			pending.Done()
		}
		pending.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer == nil || !debounceTimer.Stop() {
				pending.Add(1)
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				defer pending.Done()
				if err := w.Reload(); err != nil {
					w.logger.Error("failed to reload coverage dimensions", "file", w.path, "error", err)
					return
				}
				w.logger.Debug("coverage dimensions reloaded", "file", w.path)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}
