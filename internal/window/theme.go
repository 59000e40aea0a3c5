package window

import (
	"context"
	"log/slog"
	"sync"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/poptrans/internal/theme"
)

// ThemeLoader owns the CSS provider attached to the display. Methods other than
// Current must be called on the GTK main thread.
type ThemeLoader struct {
	mu        sync.RWMutex
	logger    *slog.Logger
	provider  *gtk.CSSProvider
	themesDir string
	current   *theme.Theme
	watcher   *theme.Watcher
	ctx       context.Context
}

// NewThemeLoader creates a loader. ctx bounds theme file watching.
func NewThemeLoader(ctx context.Context, logger *slog.Logger) *ThemeLoader {
	if logger == nil {
		logger = slog.Default()
	}
	themesDir, err := theme.ThemesDir()
	if err != nil {
		logger.Warn("failed to get themes directory", "error", err)
	}
	return &ThemeLoader{
		logger:    logger,
		provider:  gtk.NewCSSProvider(),
		themesDir: themesDir,
		ctx:       ctx,
	}
}

// Apply attaches the provider to display, or to the default display when nil.
func (l *ThemeLoader) Apply(display *gdk.Display) {
	if display == nil {
		display = gdk.DisplayGetDefault()
	}
	if display == nil {
		l.logger.Warn("no display available, cannot apply theme")
		return
	}
	gtk.StyleContextAddProviderForDisplay(display, l.provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
}

// Use loads the theme named by spec. If it cannot be resolved the default
// theme is loaded and the resolution error is returned.
func (l *ThemeLoader) Use(spec string) error {
	th, err := theme.Resolve(spec, l.themesDir)
	if err != nil {
		l.logger.Warn("theme unavailable, using default", "theme", spec, "error", err)
		th = theme.NewDefaultTheme()
	}

	l.mu.Lock()
	if l.current != nil && l.current.Name == th.Name && l.current.Path == th.Path {
		l.mu.Unlock()
		return err
	}
	if l.watcher != nil {
		l.watcher.Stop()
		l.watcher = nil
	}
	l.current = th
	l.provider.LoadFromString(th.CSS)

	if !th.Bundled {
		l.watcher = theme.NewWatcher(th, theme.DefaultPollInterval, func(css string) {
			glib.IdleAdd(func() {
				l.provider.LoadFromString(css)
			})
		}, l.logger)
		l.watcher.Start(l.ctx)
	}
	l.mu.Unlock()

	l.logger.Info("loaded theme", "name", th.Name, "path", th.Path, "bundled", th.Bundled)
	return err
}

// Current returns the loaded theme.
func (l *ThemeLoader) Current() *theme.Theme {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Stop ends theme file watching.
func (l *ThemeLoader) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher != nil {
		l.watcher.Stop()
		l.watcher = nil
	}
}
