package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDelay coalesces the bursts of events editors and atomic
// renames produce for a single save.
const DefaultReloadDelay = 150 * time.Millisecond

// Watcher watches the config file and pushes every successfully loaded
// configuration to the change callback.
type Watcher struct {
	mu       sync.Mutex
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	path     string
	delay    time.Duration
	onChange func(*Config)
	onError  func(error)
	timer    *time.Timer
	done     chan struct{}
	running  bool
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string, onChange func(*Config), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		logger:   logger,
		watcher:  watcher,
		path:     path,
		delay:    DefaultReloadDelay,
		onChange: onChange,
		done:     make(chan struct{}),
	}, nil
}

// SetDelay sets how long the watcher waits for events to settle.
func (w *Watcher) SetDelay(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.delay = d
}

// SetErrorCallback sets a function called when a changed file fails to load.
func (w *Watcher) SetErrorCallback(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// Start begins watching. The watch stops when ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watch the directory containing the file (more reliable for writes)
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.watch(ctx)
	w.logger.Debug("config watcher started", "path", w.path)
	return nil
}

func (w *Watcher) watch(ctx context.Context) {
	filename := filepath.Base(w.path)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-ctx.Done():
			_ = w.Stop()
			return

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous settings", "path", w.path, "error", err)
		w.mu.Lock()
		onError := w.onError
		w.mu.Unlock()
		if onError != nil {
			onError(err)
		}
		return
	}

	w.logger.Info("config reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.done)
	return w.watcher.Close()
}
