package display

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jmylchreest/poptrans/internal/model"
)

// CopiedDuration is how long the "copied" acknowledgement stays up.
const CopiedDuration = 2000 * time.Millisecond

// Translator performs one translation. A returned error and a result with
// Success=false are both treated as "no result".
type Translator interface {
	Translate(ctx context.Context, text string) (model.Result, error)
}

// Surface is the popup window. Sizes are logical pixels, positions are
// physical pixels. Calls are made on the dispatcher thread and must be
// safe to repeat.
type Surface interface {
	Render(view model.ViewState, settings model.Settings, animate bool)
	SetCopied(copied bool)
	Resize(width, height int)
	Move(x, y int)
	Show()
	Focus()
	Hide()
}

// ScreenLocator reports the display a popup anchored at a point lands on.
type ScreenLocator interface {
	ScreenAt(anchor model.Anchor) model.Screen
}

// ClipboardWriter writes text to the system clipboard.
type ClipboardWriter interface {
	WriteText(text string) error
}

// DisplayError represents an error in the popup display system.
type DisplayError struct {
	Message string
	Cause   error
}

func (e *DisplayError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *DisplayError) Unwrap() error {
	return e.Cause
}

// Options configures a Controller. Translator, Surface and Dispatcher are required.
type Options struct {
	Translator Translator
	Surface    Surface
	Dispatcher Dispatcher
	Screens    ScreenLocator
	Clipboard  ClipboardWriter
	Clock      Clock
	Settings   model.Settings
	Logger     *slog.Logger

	// OnShown is called on the dispatcher thread after a result is shown.
	OnShown func(model.Result)

	// OnResult is called on the dispatcher thread with the result of the
	// current request, whether or not it is shown. Superseded and dismissed
	// requests never reach it.
	OnResult func(text string, res model.Result)
}

// Snapshot is a copy of the controller's visible state.
type Snapshot struct {
	View            model.ViewState
	Sequence        uint64
	Anchor          model.Anchor
	Geometry        model.Geometry
	Settings        model.Settings
	Hovering        bool
	Copied          bool
	FirstShow       bool
	AutoHidePending bool
}

// Controller owns the popup's lifecycle: request sequencing, placement,
// auto-hide and the copy acknowledgement. All state is mutated on the
// dispatcher thread; the exported methods may be called from any goroutine.
type Controller struct {
	translator Translator
	surface    Surface
	post       Dispatcher
	screens    ScreenLocator
	clipboard  ClipboardWriter
	logger     *slog.Logger
	onShown    func(model.Result)
	onResult   func(string, model.Result)

	ctx    context.Context
	cancel context.CancelFunc

	// Dispatcher-thread state
	seq         uint64
	dismissed   uint64 // requests at or below this sequence were closed by the user
	view        model.ViewState
	settings    model.Settings
	anchor      model.Anchor
	screen      model.Screen
	geometry    model.Geometry
	firstShow   bool
	hovering    bool
	copied      bool
	autoHide    timerSlot
	copiedReset timerSlot

	snapMu sync.RWMutex
	snap   Snapshot
}

// NewController creates a popup controller in the hidden state.
func NewController(opts Options) (*Controller, error) {
	if opts.Translator == nil {
		return nil, &DisplayError{Message: "translator is required"}
	}
	if opts.Surface == nil {
		return nil, &DisplayError{Message: "surface is required"}
	}
	if opts.Dispatcher == nil {
		return nil, &DisplayError{Message: "dispatcher is required"}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		translator:  opts.Translator,
		surface:     opts.Surface,
		post:        opts.Dispatcher,
		screens:     opts.Screens,
		clipboard:   opts.Clipboard,
		logger:      opts.Logger,
		onShown:     opts.OnShown,
		onResult:    opts.OnResult,
		ctx:         ctx,
		cancel:      cancel,
		view:        model.Hidden(),
		settings:    opts.Settings,
		screen:      model.DefaultScreen,
		firstShow:   true,
		autoHide:    newTimerSlot(opts.Clock, opts.Dispatcher),
		copiedReset: newTimerSlot(opts.Clock, opts.Dispatcher),
	}
	c.publish()
	return c, nil
}

// Trigger starts a translation of text anchored at anchor.
func (c *Controller) Trigger(text string, anchor model.Anchor) {
	c.post.Post(func() { c.handleTrigger(text, anchor) })
}

// ContentMeasured reports the rendered header and inner content heights
// (logical pixels) once the popup has been laid out.
func (c *Controller) ContentMeasured(headerHeight, innerHeight float64) {
	c.post.Post(func() { c.handleContentMeasured(headerHeight, innerHeight) })
}

// PointerEnter cancels the auto-hide countdown.
func (c *Controller) PointerEnter() {
	c.post.Post(func() {
		c.hovering = true
		if c.autoHide.Cancel() {
			c.logger.Debug("pointer entered popup, auto-hide cancelled")
		}
		c.publish()
	})
}

// PointerLeave restarts the auto-hide countdown.
func (c *Controller) PointerLeave() {
	c.post.Post(func() {
		c.hovering = false
		if c.view.Visible() {
			c.scheduleAutoHide()
		}
		c.publish()
	})
}

// Escape hides the popup immediately.
func (c *Controller) Escape() {
	c.post.Post(func() { c.dismiss("escape") })
}

// Close hides the popup immediately.
func (c *Controller) Close() {
	c.post.Post(func() { c.dismiss("close") })
}

// Copy copies the shown translation to the clipboard.
func (c *Controller) Copy() {
	c.post.Post(c.handleCopy)
}

// FocusChanged records a focus change of the popup window. It does not
// change any state.
func (c *Controller) FocusChanged(focused bool) {
	c.post.Post(func() {
		c.logger.Debug("popup focus changed", "focused", focused, "state", c.view.Kind.String())
	})
}

// UpdateSettings replaces the settings snapshot.
func (c *Controller) UpdateSettings(s model.Settings) {
	c.post.Post(func() {
		c.settings = s
		if c.view.Visible() {
			c.surface.Render(c.view, c.settings, false)
		}
		c.logger.Debug("settings updated",
			"auto_close_ms", s.AutoCloseTimeout.Milliseconds(),
			"source_lang", s.SourceLang,
			"target_lang", s.TargetLang,
		)
		c.publish()
	})
}

// Snapshot returns a copy of the controller state as of the last handled event.
func (c *Controller) Snapshot() Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap
}

// Stop abandons in-flight translations and cancels all timers.
func (c *Controller) Stop() {
	c.cancel()
	c.post.Post(func() {
		c.autoHide.Cancel()
		c.copiedReset.Cancel()
		c.publish()
	})
}

func (c *Controller) handleTrigger(text string, anchor model.Anchor) {
	c.seq++
	seq := c.seq

	c.autoHide.Cancel()
	if c.view.Visible() {
		c.surface.Hide()
		c.firstShow = true
		c.hovering = false
		c.logger.Debug("hiding current popup for new translation", "seq", seq)
	}

	c.anchor = anchor
	if c.screens != nil {
		c.screen = c.screens.ScreenAt(anchor)
	}
	c.view = model.Loading()
	c.publish()

	c.logger.Debug("translation triggered",
		"seq", seq,
		"text_len", utf8.RuneCountInString(text),
		"x", anchor.X,
		"y", anchor.Y,
		"anchored", anchor.Valid,
	)

	go func() {
		res, err := c.translator.Translate(c.ctx, text)
		c.post.Post(func() { c.handleResult(seq, text, res, err) })
	}()
}

func (c *Controller) handleResult(seq uint64, text string, res model.Result, err error) {
	if seq != c.seq || seq <= c.dismissed {
		c.logger.Debug("discarding stale translation", "seq", seq, "current", c.seq)
		return
	}

	if err != nil {
		c.logger.Warn("translation failed", "seq", seq, "error", err)
		res = model.Failed(err)
	} else if !res.Success {
		c.logger.Warn("translation unsuccessful", "seq", seq, "error", res.Error)
	}

	if c.onResult != nil {
		c.onResult(text, res)
	}

	if !c.showable(res) {
		c.logger.Debug("no result to show", "seq", seq, "success", res.Success, "has_text", res.HasText())
		c.view = model.Hidden()
		c.publish()
		return
	}

	c.show(seq, res)
}

// showable reports whether res produces a popup. Failed results with an
// error message are shown only when ShowErrors is enabled.
func (c *Controller) showable(res model.Result) bool {
	if res.Displayable() {
		return true
	}
	return c.settings.ShowErrors && !res.Success && res.Error != ""
}

func (c *Controller) show(seq uint64, res model.Result) {
	c.view = model.Done(res)
	c.hovering = false
	c.copied = false
	c.copiedReset.Cancel()

	c.surface.Render(c.view, c.settings, c.firstShow)
	c.surface.SetCopied(false)

	width := ComputeWidth(displayLength(res), c.screen.Width)
	c.applyGeometry(Layout(c.anchor, width, ProvisionalHeight, c.screen))

	c.surface.Show()
	c.surface.Focus()
	c.firstShow = false

	c.logger.Debug("showed popup",
		"seq", seq,
		"result_len", displayLength(res),
		"pos_x", c.geometry.X,
		"pos_y", c.geometry.Y,
		"width", c.geometry.Width,
		"height", c.geometry.Height,
	)
	c.publish()

	if c.onShown != nil {
		c.onShown(res)
	}
}

func (c *Controller) handleContentMeasured(headerHeight, innerHeight float64) {
	if !c.view.Visible() {
		return
	}

	// Arm the countdown before resizing so a slow resize cannot delay it.
	if !c.hovering && !c.autoHide.Pending() {
		c.scheduleAutoHide()
	}

	if !validMeasure(headerHeight) || !validMeasure(innerHeight) {
		c.logger.Debug("ignoring invalid content measurement", "header", headerHeight, "inner", innerHeight)
		c.publish()
		return
	}

	width := ComputeWidth(displayLength(c.view.Result), c.screen.Width)
	height := ComputeHeight(headerHeight, innerHeight, c.screen.Height)
	c.applyGeometry(Layout(c.anchor, width, height, c.screen))

	c.logger.Debug("popup relayout",
		"header", headerHeight,
		"inner", innerHeight,
		"pos_x", c.geometry.X,
		"pos_y", c.geometry.Y,
		"width", c.geometry.Width,
		"height", c.geometry.Height,
	)
	c.publish()
}

func (c *Controller) handleCopy() {
	if !c.view.Visible() || !c.view.Result.Displayable() {
		c.logger.Debug("nothing to copy", "state", c.view.Kind.String())
		return
	}
	if c.clipboard == nil {
		c.logger.Warn("copy requested but no clipboard is available")
		return
	}

	if err := c.clipboard.WriteText(c.view.Result.Text); err != nil {
		c.logger.Warn("copy failed", "error", &DisplayError{Message: "clipboard write failed", Cause: err})
		return
	}

	c.copied = true
	c.surface.SetCopied(true)
	c.copiedReset.Schedule(CopiedDuration, func() {
		c.copied = false
		c.surface.SetCopied(false)
		c.publish()
	})
	c.logger.Debug("copied translation", "len", utf8.RuneCountInString(c.view.Result.Text))
	c.publish()
}

func (c *Controller) scheduleAutoHide() {
	timeout := c.settings.AutoCloseTimeout
	c.autoHide.Schedule(timeout, func() {
		c.logger.Debug("auto-hide timer elapsed")
		c.hide()
		c.publish()
	})
	c.logger.Debug("auto-hide scheduled", "timeout_ms", timeout.Milliseconds())
}

// dismiss hides the popup on user request; in-flight requests become stale.
func (c *Controller) dismiss(reason string) {
	c.dismissed = c.seq
	c.hide()
	c.logger.Debug("popup dismissed", "reason", reason, "seq", c.seq)
	c.publish()
}

func (c *Controller) hide() {
	c.autoHide.Cancel()
	if c.view.Visible() {
		c.surface.Hide()
	}
	c.view = model.Hidden()
	c.hovering = false
	c.firstShow = true
}

func (c *Controller) applyGeometry(g model.Geometry) {
	c.geometry = g
	c.surface.Resize(g.Width, g.Height)
	c.surface.Move(g.X, g.Y)
}

func (c *Controller) publish() {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	c.snap = Snapshot{
		View:            c.view,
		Sequence:        c.seq,
		Anchor:          c.anchor,
		Geometry:        c.geometry,
		Settings:        c.settings,
		Hovering:        c.hovering,
		Copied:          c.copied,
		FirstShow:       c.firstShow,
		AutoHidePending: c.autoHide.Pending(),
	}
}

// displayLength is the character count the width estimate is based on.
// Failures count as empty and get the minimum width.
func displayLength(res model.Result) int {
	if !res.Success {
		return 0
	}
	return utf8.RuneCountInString(res.Text)
}

func validMeasure(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
