// Package tray provides the system tray icon. It runs in its own process and
// talks to the daemon over D-Bus.
package tray

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/getlantern/systray"
)

// CallTimeout bounds each D-Bus call made from the menu.
const CallTimeout = 5 * time.Second

// Daemon is the subset of the D-Bus client the tray uses.
type Daemon interface {
	Trigger(ctx context.Context) error
	Quit(ctx context.Context) error
}

// Options configures the tray.
type Options struct {
	Daemon Daemon
	// Terminal runs the settings editor, e.g. "foot" or "kitty -e".
	Terminal string
	// Command is the poptrans CLI binary.
	Command string
	Logger  *slog.Logger
}

type action int

const (
	actionTranslate action = iota
	actionSettings
	actionQuit
)

// Tray owns the tray icon and its menu.
type Tray struct {
	daemon   Daemon
	terminal string
	command  string
	logger   *slog.Logger

	launch func(name string, args ...string) error
	quit   func()
}

// New creates a tray.
func New(opts Options) *Tray {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Command == "" {
		opts.Command = "poptrans"
	}
	return &Tray{
		daemon:   opts.Daemon,
		terminal: opts.Terminal,
		command:  opts.Command,
		logger:   opts.Logger,
		launch:   startDetached,
		quit:     systray.Quit,
	}
}

// Run shows the icon and blocks until Quit is chosen or ctx is cancelled.
func (t *Tray) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(t.onReady, func() {
		t.logger.Debug("tray exited")
	})
}

func (t *Tray) onReady() {
	systray.SetIcon(Icon())
	systray.SetTitle("poptrans")
	systray.SetTooltip("poptrans: translate selected text")

	mTranslate := systray.AddMenuItem("Translate selection", "Translate the selected text")
	mSettings := systray.AddMenuItem("Settings", "Open the settings editor")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Stop poptrans")

	go func() {
		for {
			select {
			case <-mTranslate.ClickedCh:
				t.handle(actionTranslate)
			case <-mSettings.ClickedCh:
				t.handle(actionSettings)
			case <-mQuit.ClickedCh:
				t.handle(actionQuit)
				return
			}
		}
	}()
}

func (t *Tray) handle(a action) {
	ctx, cancel := context.WithTimeout(context.Background(), CallTimeout)
	defer cancel()

	switch a {
	case actionTranslate:
		if err := t.daemon.Trigger(ctx); err != nil {
			t.logger.Warn("failed to trigger translation", "error", err)
		}

	case actionSettings:
		if err := t.openSettings(); err != nil {
			t.logger.Warn("failed to open settings", "error", err)
		}

	case actionQuit:
		if err := t.daemon.Quit(ctx); err != nil {
			t.logger.Warn("failed to stop daemon", "error", err)
		}
		t.quit()
	}
}

// SettingsCommand returns the argv that opens the settings editor.
func (t *Tray) SettingsCommand() ([]string, error) {
	argv := strings.Fields(t.terminal)
	if len(argv) == 0 {
		return nil, errors.New("no terminal configured")
	}
	return append(argv, t.command, "settings"), nil
}

func (t *Tray) openSettings() error {
	argv, err := t.SettingsCommand()
	if err != nil {
		return err
	}
	t.logger.Debug("opening settings", "argv", argv)
	return t.launch(argv[0], argv[1:]...)
}

// startDetached starts a process without waiting for it to exit.
func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
