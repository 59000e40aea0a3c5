package hotkey

import (
	"sync"
	"testing"
	"time"

	hook "github.com/robotn/gohook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/poptrans/internal/model"
	"github.com/jmylchreest/poptrans/internal/shortcut"
)

const (
	ctrlL  = 0xffe3
	shiftL = 0xffe1
	keyQ   = 'q'
	keyW   = 'w'
)

type recorder struct {
	mu      sync.Mutex
	anchors []model.Anchor
}

func (r *recorder) record(a model.Anchor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anchors = append(r.anchors, a)
}

func (r *recorder) get() []model.Anchor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Anchor(nil), r.anchors...)
}

func newTestListener(t *testing.T, spec string) (*Listener, *recorder, *time.Time) {
	t.Helper()
	sc, err := shortcut.Parse(spec)
	require.NoError(t, err)

	rec := &recorder{}
	l, err := New(Options{Shortcut: sc, OnTrigger: rec.record})
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	l.spawn = func(f func()) { f() }
	return l, rec, &now
}

func press(l *Listener, codes ...uint16) {
	for _, c := range codes {
		l.handle(hook.Event{Kind: hook.KeyDown, Rawcode: c})
	}
}

func release(l *Listener, codes ...uint16) {
	for _, c := range codes {
		l.handle(hook.Event{Kind: hook.KeyUp, Rawcode: c})
	}
}

func click(l *Listener, button uint16, x, y int16) {
	l.handle(hook.Event{Kind: hook.MouseUp, Button: button, X: x, Y: y})
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{Shortcut: shortcut.Shortcut{Key: "Q"}})
	assert.Error(t, err)

	_, err = New(Options{OnTrigger: func(model.Anchor) {}})
	assert.ErrorIs(t, err, shortcut.ErrNoKey)
}

func TestListener_TriggersOnShortcut(t *testing.T) {
	l, rec, _ := newTestListener(t, "Ctrl+Q")

	press(l, keyQ)
	assert.Empty(t, rec.get(), "main key alone does not trigger")
	release(l, keyQ)

	press(l, ctrlL, keyQ)
	require.Len(t, rec.get(), 1)
	assert.False(t, rec.get()[0].Valid, "no click seen yet")
}

func TestListener_UsesLastLeftClick(t *testing.T) {
	l, rec, _ := newTestListener(t, "Ctrl+Q")

	click(l, leftButton, 100, 200)
	click(l, 3, 900, 900) // right button is ignored
	press(l, ctrlL, keyQ)

	require.Len(t, rec.get(), 1)
	assert.Equal(t, model.AnchorAt(100, 200), rec.get()[0])
	assert.Equal(t, model.AnchorAt(100, 200), l.LastAnchor())
}

func TestListener_ReleasedModifierDoesNotMatch(t *testing.T) {
	l, rec, _ := newTestListener(t, "Ctrl+Shift+W")

	press(l, ctrlL, shiftL)
	release(l, shiftL)
	press(l, keyW)
	assert.Empty(t, rec.get())

	press(l, shiftL, keyW)
	assert.Len(t, rec.get(), 1)
}

func TestListener_Debounce(t *testing.T) {
	l, rec, now := newTestListener(t, "Ctrl+Q")

	press(l, ctrlL, keyQ)
	release(l, keyQ)

	*now = now.Add(100 * time.Millisecond)
	press(l, keyQ)
	release(l, keyQ)
	assert.Len(t, rec.get(), 1, "second press inside the debounce window is dropped")

	*now = now.Add(DefaultDebounce)
	press(l, keyQ)
	assert.Len(t, rec.get(), 2, "held modifier plus a fresh key press triggers again")
}

func TestListener_UpperCaseKeysym(t *testing.T) {
	l, rec, _ := newTestListener(t, "Shift+Q")

	press(l, shiftL, 'Q')
	assert.Len(t, rec.get(), 1)
}

func TestListener_SetShortcut(t *testing.T) {
	l, rec, _ := newTestListener(t, "Ctrl+Q")

	next, err := shortcut.Parse("Ctrl+W")
	require.NoError(t, err)
	require.NoError(t, l.SetShortcut(next))
	assert.Equal(t, next, l.Shortcut())

	press(l, ctrlL, keyQ)
	assert.Empty(t, rec.get())
	press(l, keyW)
	assert.Len(t, rec.get(), 1)

	assert.ErrorIs(t, l.SetShortcut(shortcut.Shortcut{}), shortcut.ErrNoKey)
}

func TestListener_StartReadsEvents(t *testing.T) {
	l, rec, _ := newTestListener(t, "Ctrl+Q")

	events := make(chan hook.Event, 8)
	var ended bool
	l.start = func() chan hook.Event { return events }
	l.end = func() {
		ended = true
		close(events)
	}

	require.NoError(t, l.Start())
	require.NoError(t, l.Start(), "second start is a no-op")

	events <- hook.Event{Kind: hook.MouseUp, Button: leftButton, X: 10, Y: 20}
	events <- hook.Event{Kind: hook.KeyDown, Rawcode: ctrlL}
	events <- hook.Event{Kind: hook.KeyDown, Rawcode: keyQ}

	require.Eventually(t, func() bool { return len(rec.get()) == 1 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, model.AnchorAt(10, 20), rec.get()[0])

	l.Stop()
	assert.True(t, ended)
	l.Stop()
}

func TestListener_TriggerDoesNotBlockEvents(t *testing.T) {
	sc, err := shortcut.Parse("Ctrl+Q")
	require.NoError(t, err)

	release := make(chan struct{})
	rec := &recorder{}
	l, err := New(Options{Shortcut: sc, OnTrigger: func(a model.Anchor) {
		<-release
		rec.record(a)
	}})
	require.NoError(t, err)

	handled := make(chan struct{})
	go func() {
		press(l, ctrlL, keyQ)
		click(l, leftButton, 30, 40)
		close(handled)
	}()

	select {
	case <-handled:
	case <-time.After(5 * time.Second):
		t.Fatal("a slow trigger callback stalled the event stream")
	}
	assert.Equal(t, model.AnchorAt(30, 40), l.LastAnchor())
	assert.Empty(t, rec.get())

	close(release)
	require.Eventually(t, func() bool { return len(rec.get()) == 1 }, 5*time.Second, time.Millisecond)
	assert.False(t, rec.get()[0].Valid)
}

func TestListener_StartUnavailable(t *testing.T) {
	l, _, _ := newTestListener(t, "Ctrl+Q")

	l.start = func() chan hook.Event { return nil }
	assert.ErrorIs(t, l.Start(), ErrUnavailable)

	l.start = func() chan hook.Event { panic("cannot open display") }
	assert.ErrorIs(t, l.Start(), ErrUnavailable)
}
