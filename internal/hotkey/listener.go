// Package hotkey listens for the global translate shortcut and remembers
// where the user last clicked.
//
// Events come from gohook, which reads the X server's input stream. On a
// pure Wayland session without XWayland no events arrive; the D-Bus Trigger
// method is the way to bind the shortcut there.
package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	hook "github.com/robotn/gohook"

	"github.com/jmylchreest/poptrans/internal/model"
	"github.com/jmylchreest/poptrans/internal/shortcut"
)

// DefaultDebounce drops a trigger that follows the previous one too closely.
const DefaultDebounce = 300 * time.Millisecond

// leftButton is gohook's button number for the primary mouse button.
const leftButton = 1

// ErrUnavailable is returned when the input hook could not be started.
var ErrUnavailable = errors.New("global input hook unavailable")

// Options configures a Listener.
type Options struct {
	Shortcut shortcut.Shortcut
	Debounce time.Duration
	Logger   *slog.Logger

	// OnTrigger is called on its own goroutine with the position of the
	// last left-button release, or an invalid anchor if none was seen.
	OnTrigger func(anchor model.Anchor)
}

type keyState struct {
	keysyms []uint16
	pressed bool
}

// Listener matches key events against one shortcut.
type Listener struct {
	mu         sync.Mutex
	shortcut   shortcut.Shortcut
	keys       []keyState
	lastAnchor model.Anchor
	lastFire   time.Time
	debounce   time.Duration
	onTrigger  func(model.Anchor)
	logger     *slog.Logger
	running    bool

	// Event source, replaced in tests.
	start func() chan hook.Event
	end   func()
	now   func() time.Time
	spawn func(func())
}

// New creates a listener. It does not start listening.
func New(opts Options) (*Listener, error) {
	if opts.OnTrigger == nil {
		return nil, errors.New("hotkey: OnTrigger is required")
	}
	if opts.Shortcut.Key == "" {
		return nil, shortcut.ErrNoKey
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	l := &Listener{
		debounce:  opts.Debounce,
		onTrigger: opts.OnTrigger,
		logger:    opts.Logger,
		start:     hook.Start,
		end:       hook.End,
		now:       time.Now,
		spawn:     func(f func()) { go f() },
	}
	l.setShortcut(opts.Shortcut)
	return l, nil
}

// SetShortcut replaces the shortcut being matched.
func (l *Listener) SetShortcut(s shortcut.Shortcut) error {
	if s.Key == "" {
		return shortcut.ErrNoKey
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if s == l.shortcut {
		return nil
	}
	l.setShortcut(s)
	l.logger.Info("hotkey updated", "shortcut", s.String())
	return nil
}

func (l *Listener) setShortcut(s shortcut.Shortcut) {
	l.shortcut = s
	groups := s.Keysyms()
	l.keys = make([]keyState, len(groups))
	for i, g := range groups {
		l.keys[i] = keyState{keysyms: g}
	}
}

// Shortcut returns the shortcut being matched.
func (l *Listener) Shortcut() shortcut.Shortcut {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.shortcut
}

// LastAnchor returns where the left mouse button was last released.
func (l *Listener) LastAnchor() model.Anchor {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastAnchor
}

// Start begins reading input events on a background goroutine.
func (l *Listener) Start() (err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil
	}

	defer func() {
		// gohook panics without a reachable X display.
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnavailable, r)
		}
	}()

	events := l.start()
	if events == nil {
		return ErrUnavailable
	}
	l.running = true

	go l.loop(events)
	l.logger.Info("hotkey listener started", "shortcut", l.shortcut.String())
	return nil
}

// Stop ends the input hook. The event channel is closed by gohook.
func (l *Listener) Stop() {
	l.mu.Lock()
	running := l.running
	l.running = false
	l.mu.Unlock()

	if running {
		l.end()
	}
}

func (l *Listener) loop(events chan hook.Event) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic in hotkey listener", "panic", r)
		}
	}()

	for ev := range events {
		l.handle(ev)
	}
	l.logger.Debug("hotkey event channel closed")
}

func (l *Listener) handle(ev hook.Event) {
	switch ev.Kind {
	case hook.MouseUp:
		if ev.Button == leftButton {
			l.mu.Lock()
			l.lastAnchor = model.AnchorAt(int(ev.X), int(ev.Y))
			l.mu.Unlock()
		}
	case hook.KeyDown:
		if anchor, ok := l.keyDown(ev.Rawcode); ok {
			// Keep the event stream flowing while the selection is read.
			l.spawn(func() { l.onTrigger(anchor) })
		}
	case hook.KeyUp:
		l.keyUp(ev.Rawcode)
	}
}

// keyDown records a pressed key and reports whether the shortcut is now
// complete and not debounced.
func (l *Listener) keyDown(rawcode uint16) (model.Anchor, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	matched := false
	for i := range l.keys {
		if slices.Contains(l.keys[i].keysyms, rawcode) {
			l.keys[i].pressed = true
			matched = true
		}
	}
	if !matched {
		return model.Anchor{}, false
	}

	for i := range l.keys {
		if !l.keys[i].pressed {
			return model.Anchor{}, false
		}
	}

	// The main key must be pressed again before the next trigger.
	l.keys[len(l.keys)-1].pressed = false

	now := l.now()
	if !l.lastFire.IsZero() && now.Sub(l.lastFire) < l.debounce {
		l.logger.Debug("hotkey debounced", "since_ms", now.Sub(l.lastFire).Milliseconds())
		return model.Anchor{}, false
	}
	l.lastFire = now

	l.logger.Debug("hotkey pressed", "shortcut", l.shortcut.String(), "anchored", l.lastAnchor.Valid)
	return l.lastAnchor, true
}

func (l *Listener) keyUp(rawcode uint16) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.keys {
		if slices.Contains(l.keys[i].keysyms, rawcode) {
			l.keys[i].pressed = false
		}
	}
}
