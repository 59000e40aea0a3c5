package daemon

import (
	"log/slog"
	"sync"

	"github.com/jmylchreest/poptrans/internal/audio"
	"github.com/jmylchreest/poptrans/internal/config"
	"github.com/jmylchreest/poptrans/internal/display"
	"github.com/jmylchreest/poptrans/internal/model"
	"github.com/jmylchreest/poptrans/internal/shortcut"
)

// SettingsSink receives the popup settings snapshot.
type SettingsSink interface {
	UpdateSettings(s model.Settings)
}

// TranslatorSink receives the API and history settings.
type TranslatorSink interface {
	Configure(cfg *config.Config)
}

// ShortcutSink re-registers the global hotkey.
type ShortcutSink interface {
	SetShortcut(s shortcut.Shortcut) error
}

// ScreenSink receives the display overrides.
type ScreenSink interface {
	Update(scale float64, monitor int)
}

// SoundSink receives the chime settings.
type SoundSink interface {
	Update(s audio.Settings)
}

// ThemeSink loads a theme. It is called on the dispatcher thread.
type ThemeSink interface {
	Use(spec string) error
}

// ReloaderOptions lists the components a config reload updates. Nil sinks
// are skipped.
type ReloaderOptions struct {
	Settings   SettingsSink
	Translator TranslatorSink
	Shortcut   ShortcutSink
	Screen     ScreenSink
	Sound      SoundSink
	Theme      ThemeSink
	Dispatcher display.Dispatcher
	Notifier   *InternalNotifier
	Logger     *slog.Logger
}

// Reloader pushes a reloaded configuration to the running components,
// touching only the parts that changed.
type Reloader struct {
	mu   sync.Mutex
	opts ReloaderOptions
	last *config.Config
}

// NewReloader creates a reloader whose baseline is the config the daemon
// started with.
func NewReloader(initial *config.Config, opts ReloaderOptions) *Reloader {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Reloader{opts: opts, last: initial}
}

// Apply updates the components from cfg. It is safe to call from the
// config watcher goroutine.
func (r *Reloader) Apply(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.last
	r.last = cfg
	logger := r.opts.Logger

	if r.opts.Settings != nil && (prev == nil || prev.Settings() != cfg.Settings()) {
		r.opts.Settings.UpdateSettings(cfg.Settings())
	}

	// The API key may come from the environment, so always reapply.
	if r.opts.Translator != nil {
		r.opts.Translator.Configure(cfg)
	}

	if r.opts.Shortcut != nil && (prev == nil || prev.Shortcut != cfg.Shortcut) {
		sc, err := shortcut.Parse(cfg.Shortcut)
		if err == nil {
			err = r.opts.Shortcut.SetShortcut(sc)
		}
		if err != nil {
			logger.Warn("failed to update shortcut", "shortcut", cfg.Shortcut, "error", err)
			if r.opts.Notifier != nil {
				r.opts.Notifier.NotifyShortcutError(cfg.Shortcut, err)
			}
		}
	}

	if r.opts.Screen != nil && (prev == nil || prev.Display.Scale != cfg.Display.Scale || prev.Display.Monitor != cfg.Display.Monitor) {
		r.opts.Screen.Update(cfg.Display.Scale, cfg.Display.Monitor)
	}

	if r.opts.Sound != nil && (prev == nil || prev.Sound != cfg.Sound) {
		r.opts.Sound.Update(SoundSettings(cfg))
	}

	if r.opts.Theme != nil && r.opts.Dispatcher != nil && (prev == nil || prev.Display.Theme != cfg.Display.Theme) {
		spec := cfg.Display.Theme
		theme := r.opts.Theme
		notifier := r.opts.Notifier
		r.opts.Dispatcher.Post(func() {
			if err := theme.Use(spec); err != nil && notifier != nil {
				notifier.NotifyThemeError(err)
			}
		})
	}

	logger.Debug("configuration applied")
}

// ConfigError reports a config file that failed to reload.
func (r *Reloader) ConfigError(err error) {
	if r.opts.Notifier != nil {
		r.opts.Notifier.NotifyConfigError(err)
	}
}

// SoundSettings returns the chime settings from cfg.
func SoundSettings(cfg *config.Config) audio.Settings {
	return audio.Settings{
		Enabled: cfg.Sound.Enabled,
		File:    cfg.SoundFile(),
		Volume:  cfg.Sound.Volume,
	}
}
