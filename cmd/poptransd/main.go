// Package main is the entry point for the poptransd popup translator daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/poptrans/internal/audio"
	"github.com/jmylchreest/poptrans/internal/config"
	"github.com/jmylchreest/poptrans/internal/daemon"
	"github.com/jmylchreest/poptrans/internal/dbus"
	"github.com/jmylchreest/poptrans/internal/display"
	"github.com/jmylchreest/poptrans/internal/history"
	"github.com/jmylchreest/poptrans/internal/hotkey"
	"github.com/jmylchreest/poptrans/internal/model"
	"github.com/jmylchreest/poptrans/internal/screen"
	"github.com/jmylchreest/poptrans/internal/selection"
	"github.com/jmylchreest/poptrans/internal/shortcut"
	"github.com/jmylchreest/poptrans/internal/translate"
	"github.com/jmylchreest/poptrans/internal/window"
)

const appID = "io.github.jmylchreest.poptransd"

var (
	// Build-time variables
	version = "dev"
)

func main() {
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("poptransd version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	os.Exit(run(logger))
}

// components holds everything started on activation so it can be stopped
// from the GTK main loop.
type components struct {
	controller    *display.Controller
	dbusServer    *dbus.Server
	listener      *hotkey.Listener
	themeLoader   *window.ThemeLoader
	chime         *audio.Chime
	configWatcher *config.Watcher
	tray          *daemon.TraySupervisor
}

func (c *components) stop(logger *slog.Logger) {
	if c.tray != nil {
		c.tray.Stop()
	}
	if c.configWatcher != nil {
		_ = c.configWatcher.Stop()
	}
	if c.listener != nil {
		c.listener.Stop()
	}
	if c.controller != nil {
		c.controller.Stop()
	}
	if c.dbusServer != nil {
		if err := c.dbusServer.Stop(); err != nil {
			logger.Warn("error stopping D-Bus server", "error", err)
		}
	}
	if c.themeLoader != nil {
		c.themeLoader.Stop()
	}
	if c.chime != nil {
		c.chime.Close()
	}
}

func run(logger *slog.Logger) int {
	logger.Info("starting poptransd", "version", version)

	cfgPath, err := config.Path()
	if err != nil {
		logger.Error("failed to get config path", "error", err)
		return 1
	}

	var configErr error
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("failed to load config, using defaults", "path", cfgPath, "error", err)
		configErr = err
		cfg = config.Default()
	}

	app := adw.NewApplication(appID, 0)

	var (
		parts    components
		running  atomic.Bool
		exitCode atomic.Int32
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := func() {
		glib.IdleAdd(func() {
			if running.Load() {
				app.Quit()
			}
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
		quit()
	}()

	app.ConnectActivate(func() {
		if running.Load() {
			logger.Debug("application already active")
			return
		}
		running.Store(true)

		if err := activate(ctx, app, cfg, cfgPath, configErr, &parts, quit, logger); err != nil {
			logger.Error("failed to start", "error", err)
			exitCode.Store(1)
			app.Quit()
		}
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		parts.stop(logger)
		running.Store(false)
	})

	status := app.Run(os.Args)
	cancel()

	if status != 0 {
		logger.Error("application exited with error", "status", status)
		return status
	}
	if code := exitCode.Load(); code != 0 {
		return int(code)
	}

	logger.Info("poptransd stopped")
	return 0
}

// activate builds and starts the daemon on the GTK main thread.
func activate(
	ctx context.Context,
	app *adw.Application,
	cfg *config.Config,
	cfgPath string,
	configErr error,
	parts *components,
	quit func(),
	logger *slog.Logger,
) error {
	dispatcher := display.DispatchFunc(func(f func()) {
		glib.IdleAdd(f)
	})

	// Translation history
	var store *history.Store
	if cfg.History.Enabled {
		historyPath, err := config.HistoryPath()
		if err != nil {
			logger.Warn("failed to get history path, history disabled", "error", err)
		} else if store, err = history.Open(historyPath, logger); err != nil {
			logger.Warn("failed to open history, history disabled", "path", historyPath, "error", err)
			store = nil
		}
	}

	// Theme
	parts.themeLoader = window.NewThemeLoader(ctx, logger)
	themeErr := parts.themeLoader.Use(cfg.Display.Theme)
	parts.themeLoader.Apply(nil)

	parts.chime = audio.NewChime(daemon.SoundSettings(cfg), logger)

	// Popup window and controller
	var controller *display.Controller
	popup := window.New(&app.Application, window.Handlers{
		Measured:     func(h, inner float64) { controller.ContentMeasured(h, inner) },
		PointerEnter: func() { controller.PointerEnter() },
		PointerLeave: func() { controller.PointerLeave() },
		Escape:       func() { controller.Escape() },
		Close:        func() { controller.Close() },
		Copy:         func() { controller.Copy() },
		FocusChanged: func(focused bool) { controller.FocusChanged(focused) },
	}, logger)

	locator := screen.New(screen.Options{
		Scale:     cfg.Display.Scale,
		Monitor:   cfg.Display.Monitor,
		ScaleFunc: popup.ScaleAt,
		Logger:    logger,
	})
	clip := selection.New(logger)

	client := translate.New(translate.Options{
		Endpoint: cfg.API.Endpoint,
		Timeout:  cfg.API.Timeout.Duration(),
		Retries:  cfg.API.Retries,
		Logger:   logger,
	})
	var recorder daemon.HistoryRecorder
	if store != nil {
		recorder = store
	}
	translator := daemon.NewTranslator(client, recorder, cfg, logger)

	chime := parts.chime
	controller, err := display.NewController(display.Options{
		Translator: translator,
		Surface:    popup,
		Dispatcher: dispatcher,
		Screens:    locator,
		Clipboard:  clip,
		Settings:   cfg.Settings(),
		Logger:     logger,
		OnShown: func(res model.Result) {
			go chime.Play()
			if parts.dbusServer == nil {
				return
			}
			text := res.Text
			if !res.Success {
				text = res.Error
			}
			if err := parts.dbusServer.EmitPopupShown(text); err != nil {
				logger.Debug("failed to emit PopupShown", "error", err)
			}
		},
		// History I/O stays off the GTK main loop.
		OnResult: func(text string, res model.Result) {
			go translator.Record(text, res)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create popup controller: %w", err)
	}
	parts.controller = controller

	service := daemon.NewService(controller, clip, quit, logger)

	// Global hotkey
	shortcutFailed := false
	sc, err := shortcut.Parse(cfg.Shortcut)
	if err == nil {
		parts.listener, err = hotkey.New(hotkey.Options{
			Shortcut:  sc,
			Logger:    logger,
			OnTrigger: service.TranslateSelection,
		})
	}
	if err != nil {
		logger.Warn("failed to create hotkey listener", "shortcut", cfg.Shortcut, "error", err)
		shortcutFailed = true
	} else {
		service.SetAnchorSource(parts.listener)
	}

	// D-Bus service; owning the name makes this the only instance
	parts.dbusServer = dbus.NewServer(service, logger)
	if err := parts.dbusServer.Start(); err != nil {
		if errors.Is(err, dbus.ErrAlreadyRunning) {
			return err
		}
		return fmt.Errorf("failed to start D-Bus server: %w", err)
	}

	notifier := daemon.NewInternalNotifier(func(n dbus.Notification) error {
		_, err := dbus.NewNotifier(parts.dbusServer.Conn()).Notify(n)
		return err
	}, logger)
	if configErr != nil {
		notifier.NotifyConfigError(configErr)
	}
	if themeErr != nil {
		notifier.NotifyThemeError(themeErr)
	}

	if parts.listener != nil {
		if err := parts.listener.Start(); err != nil {
			logger.Warn("failed to register shortcut", "shortcut", cfg.Shortcut, "error", err)
			shortcutFailed = true
		}
	}

	// Config hot reload
	reloader := daemon.NewReloader(cfg, daemon.ReloaderOptions{
		Settings:   controller,
		Translator: translator,
		Shortcut:   listenerSink(parts.listener),
		Screen:     locator,
		Sound:      parts.chime,
		Theme:      parts.themeLoader,
		Dispatcher: dispatcher,
		Notifier:   notifier,
		Logger:     logger,
	})
	parts.configWatcher, err = config.NewWatcher(cfgPath, reloader.Apply, logger)
	if err != nil {
		logger.Warn("failed to create config watcher", "error", err)
	} else {
		parts.configWatcher.SetErrorCallback(reloader.ConfigError)
		if err := parts.configWatcher.Start(ctx); err != nil {
			logger.Warn("failed to start config watcher", "error", err)
		}
	}

	daemon.CheckFirstRun(cfg, shortcutFailed, notifier, logger)

	if cfg.Tray.Enabled {
		parts.tray = daemon.NewTraySupervisor(logger)
		if err := parts.tray.Start(ctx); err != nil {
			logger.Info("tray not started", "error", err)
			parts.tray = nil
		}
	}

	logger.Info("poptransd ready", "shortcut", cfg.Shortcut, "dbus_name", dbus.BusName)

	// Create a hidden window to keep the application running
	// (GTK apps quit when all windows are closed)
	keepAliveWindow := gtk.NewWindow()
	keepAliveWindow.SetApplication(&app.Application)
	keepAliveWindow.SetDefaultSize(1, 1)
	keepAliveWindow.SetDecorated(false)
	keepAliveWindow.SetVisible(false)

	return nil
}

// listenerSink avoids handing the reloader a typed nil listener.
func listenerSink(l *hotkey.Listener) daemon.ShortcutSink {
	if l == nil {
		return nil
	}
	return l
}
