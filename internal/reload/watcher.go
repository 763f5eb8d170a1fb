package reload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/salafibot/salafibot/internal/loader"
	"github.com/salafibot/salafibot/internal/logging"
)

// DefaultDebounce is how long a file must stay quiet before it is reloaded.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads commands whose source files change on disk.
type Watcher struct {
	manager  *Manager
	importer loader.Importer
	debounce time.Duration
	onReload func(*Result)

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher that uses importer to find out which command a
// changed file declares.
func NewWatcher(manager *Manager, importer loader.Importer, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		manager:  manager,
		importer: importer,
		debounce: debounce,
		pending:  make(map[string]*time.Timer),
	}
}

// OnReload sets a callback invoked after each watch-triggered reload.
func (w *Watcher) OnReload(fn func(*Result)) {
	w.onReload = fn
}

// Run watches the module tree until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	w.watcher = watcher
	defer func() {
		watcher.Close()
		w.stopTimers()
		w.wg.Wait()
	}()

	if err := w.watchRecursive(w.manager.loader.Root()); err != nil {
		return err
	}
	logging.Infof("[reload] Watching %s", w.manager.loader.Root())

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Errorf("[reload] Watch error: %v", err)
		}
	}
}

func (w *Watcher) watchRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				logging.Debugf("[reload] Could not watch %s: %v", path, err)
			}
		}
		return nil
	})
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.watchRecursive(event.Name)
			return
		}
	}
	if !loader.IsCommandFile(filepath.Base(event.Name)) {
		return
	}

	logging.Debugf("[reload] File event: %s %s", event.Op, event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[event.Name]; ok && t.Stop() {
		t.Reset(w.debounce)
		return
	}
	path := event.Name
	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		w.reloadFile(ctx, path)
	})
	w.pending[path] = t
}

// reloadFile interprets path to learn its command name, then reloads that
// name through the manager so the scan order decides which file wins.
func (w *Watcher) reloadFile(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	def, err := w.importer.Import(ctx, path)
	if err != nil {
		logging.Warnf("[reload] Skipping %s: %v", w.manager.loader.Rel(path), err)
		return
	}
	if !w.manager.catalog.Has(def.Name) {
		logging.Debugf("[reload] %s declares unregistered command %s", w.manager.loader.Rel(path), def.Name)
		return
	}

	res, err := w.manager.Reload(ctx, def.Name)
	if err != nil {
		logging.Errorf("[reload] Error reloading %s: %v", def.Name, err)
		return
	}
	if w.onReload != nil {
		w.onReload(res)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
}
