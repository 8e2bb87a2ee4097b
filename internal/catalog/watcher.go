package catalog

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"media-gallery/internal/logging"
	"media-gallery/internal/storage"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of directory events into one invalidation.
const DefaultDebounce = 250 * time.Millisecond

// Watcher invalidates a Catalog when files appear in or vanish from the asset
// directory without going through the server, for example when an operator
// copies files in by hand.
type Watcher struct {
	catalog  *Catalog
	watcher  *fsnotify.Watcher
	debounce time.Duration

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher starts watching the catalog's asset directory.
func NewWatcher(c *Catalog, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(c.layout.AssetDir()); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", c.layout.AssetDir(), err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		catalog:  c,
		watcher:  fw,
		debounce: debounce,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()

	logging.Info("Watching %s for changes", c.layout.AssetDir())
	return w, nil
}

// Stop ends the watch and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) run() {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			logging.Debug("Watcher event: %s %s", event.Op, filepath.Base(event.Name))
			timer.Reset(w.debounce)

		case <-timer.C:
			w.catalog.Invalidate("watcher")

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("Watcher error: %v", err)

		case <-w.done:
			return
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if storage.IsTemp(filepath.Base(event.Name)) {
		return false
	}
	return event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) ||
		event.Has(fsnotify.Rename)
}
