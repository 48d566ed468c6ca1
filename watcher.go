package flexconfig

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

// FileWatcher triggers configuration reloads when watched files change.
// Editors often produce bursts of write/rename events for one save, so
// reloads are debounced.
type FileWatcher struct {
	cfg      *FlexConfig
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   Logger

	paths map[string]struct{}

	mu      sync.Mutex
	timer   *time.Timer
	started bool
	closed  bool
	done    chan struct{}
}

// NewFileWatcher creates a watcher bound to the given config. Debounce <= 0
// selects the 200ms default.
func NewFileWatcher(cfg *FlexConfig, debounce time.Duration) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &FileWatcher{
		cfg:      cfg.rootConfig(),
		watcher:  w,
		debounce: debounce,
		logger:   cfg.Logger(),
		paths:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Watch adds a file to the watch set. The containing directory is watched so
// atomic-rename saves are observed.
func (w *FileWatcher) Watch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve watch path: %w", err)
	}
	w.paths[abs] = struct{}{}

	if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", abs, err)
	}
	return nil
}

// Start begins dispatching reloads. It returns immediately; watching stops
// when ctx is cancelled or Close is called.
func (w *FileWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	go w.run(ctx)
	return nil
}

func (w *FileWatcher) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("config file changed", "file", event.Name, "op", event.Op.String())
			w.scheduleReload(ctx, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *FileWatcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.paths[abs]
	return ok
}

func (w *FileWatcher) scheduleReload(ctx context.Context, file string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.cfg.emitEvent(ctx, EventTypeSourceRefreshed, map[string]any{"source": file})
		if err := w.cfg.Reload(ctx); err != nil {
			w.logger.Error("reload after file change failed", "error", err)
		}
	})
}

// Close stops watching. Pending debounced reloads are cancelled.
func (w *FileWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	started := w.started
	w.mu.Unlock()

	err := w.watcher.Close()
	if started {
		<-w.done
	}
	return err
}
