package theme

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval is how often a file theme is checked for changes.
const DefaultPollInterval = time.Second

// Watcher polls a file theme and reports new CSS when it changes.
type Watcher struct {
	theme    *Theme
	interval time.Duration
	onChange func(css string)
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a watcher for theme. onChange runs on the watcher goroutine.
func NewWatcher(theme *Theme, interval time.Duration, onChange func(css string), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{
		theme:    theme,
		interval: interval,
		onChange: onChange,
		logger:   logger,
	}
}

// Start begins polling. Bundled themes are not watched.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil || w.theme == nil || w.theme.Bundled {
		return
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.poll(ctx)
	w.logger.Debug("theme watcher started", "path", w.theme.Path, "interval", w.interval)
}

// Stop ends polling and waits for the goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watcher) poll(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed, err := w.theme.Reload()
			if err != nil {
				w.logger.Debug("theme reload failed", "path", w.theme.Path, "error", err)
				continue
			}
			if changed {
				w.logger.Info("theme changed, reloading", "path", w.theme.Path)
				if w.onChange != nil {
					w.onChange(w.theme.CSS)
				}
			}
		}
	}
}
