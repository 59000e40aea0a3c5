package display

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/poptrans/internal/model"
)

// queue is a Dispatcher that holds posted functions until the test drains it.
type queue struct {
	mu  sync.Mutex
	fns []func()
}

func (q *queue) Post(f func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fns = append(q.fns, f)
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fns)
}

// drain runs posted functions, including ones posted while draining.
func (q *queue) drain() {
	for {
		q.mu.Lock()
		fns := q.fns
		q.fns = nil
		q.mu.Unlock()

		if len(fns) == 0 {
			return
		}
		for _, f := range fns {
			f()
		}
	}
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

// fakeClock records timers; tests fire them explicitly.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) active() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fire runs the timer's callback as if it had expired.
func (c *fakeClock) fire(t *fakeTimer) {
	t.fired = true
	t.f()
}

type reply struct {
	res model.Result
	err error
}

type call struct {
	text  string
	reply chan reply
}

// fakeTranslator blocks each call until the test replies to it.
type fakeTranslator struct {
	calls chan *call
}

func newFakeTranslator() *fakeTranslator {
	return &fakeTranslator{calls: make(chan *call, 16)}
}

func (f *fakeTranslator) Translate(ctx context.Context, text string) (model.Result, error) {
	c := &call{text: text, reply: make(chan reply, 1)}
	f.calls <- c
	select {
	case r := <-c.reply:
		return r.res, r.err
	case <-ctx.Done():
		return model.Result{}, ctx.Err()
	}
}

type fakeSurface struct {
	visible  bool
	focused  bool
	width    int
	height   int
	x, y     int
	copied   bool
	renders  []model.ViewState
	animated []bool
	shows    int
	hides    int
}

func (s *fakeSurface) Render(v model.ViewState, _ model.Settings, animate bool) {
	s.renders = append(s.renders, v)
	s.animated = append(s.animated, animate)
}
func (s *fakeSurface) SetCopied(c bool) { s.copied = c }
func (s *fakeSurface) Resize(w, h int)  { s.width, s.height = w, h }
func (s *fakeSurface) Move(x, y int)    { s.x, s.y = x, y }
func (s *fakeSurface) Show()            { s.visible = true; s.shows++ }
func (s *fakeSurface) Focus()           { s.focused = true }
func (s *fakeSurface) Hide()            { s.visible = false; s.focused = false; s.hides++ }

type fixedScreen model.Screen

func (f fixedScreen) ScreenAt(model.Anchor) model.Screen { return model.Screen(f) }

type fakeClipboard struct {
	text string
	err  error
}

func (c *fakeClipboard) WriteText(text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

// harness wires a controller to fakes.
type harness struct {
	t          *testing.T
	q          *queue
	clock      *fakeClock
	translator *fakeTranslator
	surface    *fakeSurface
	clipboard  *fakeClipboard
	c          *Controller
	shown      []model.Result
	results    []accepted
}

// accepted is one OnResult call.
type accepted struct {
	text string
	res  model.Result
}

func newHarness(t *testing.T, settings model.Settings) *harness {
	t.Helper()
	h := &harness{
		t:          t,
		q:          &queue{},
		clock:      &fakeClock{},
		translator: newFakeTranslator(),
		surface:    &fakeSurface{},
		clipboard:  &fakeClipboard{},
	}

	c, err := NewController(Options{
		Translator: h.translator,
		Surface:    h.surface,
		Dispatcher: h.q,
		Screens:    fixedScreen(fullHD),
		Clipboard:  h.clipboard,
		Clock:      h.clock,
		Settings:   settings,
		OnShown:    func(r model.Result) { h.shown = append(h.shown, r) },
		OnResult: func(text string, r model.Result) {
			h.results = append(h.results, accepted{text: text, res: r})
		},
	})
	require.NoError(t, err)
	h.c = c
	t.Cleanup(func() {
		c.Stop()
		h.q.drain()
	})
	return h
}

// trigger starts a translation and returns the translator call it produced.
func (h *harness) trigger(text string, anchor model.Anchor) *call {
	h.t.Helper()
	h.c.Trigger(text, anchor)
	h.q.drain()

	select {
	case c := <-h.translator.calls:
		require.Equal(h.t, text, c.text)
		return c
	case <-time.After(5 * time.Second):
		h.t.Fatal("translator was not called")
		return nil
	}
}

// resolve answers a translator call and processes the posted result.
func (h *harness) resolve(c *call, res model.Result, err error) {
	h.t.Helper()
	c.reply <- reply{res: res, err: err}
	require.Eventually(h.t, func() bool { return h.q.len() > 0 }, 5*time.Second, time.Millisecond)
	h.q.drain()
}

// activeTimers returns the pending timers armed for duration d.
func (h *harness) activeTimers(d time.Duration) []*fakeTimer {
	var out []*fakeTimer
	for _, t := range h.clock.active() {
		if t.d == d {
			out = append(out, t)
		}
	}
	return out
}
