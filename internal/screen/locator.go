// Package screen finds the display a popup should open on.
package screen

import (
	"image"
	"log/slog"
	"sync"

	"github.com/kbinani/screenshot"

	"github.com/jmylchreest/poptrans/internal/model"
)

// ScaleFunc reports the scale factor of the display containing a point,
// or 0 if unknown.
type ScaleFunc func(x, y int) float64

// Options configures a Locator.
type Options struct {
	// Scale overrides the detected scale factor when > 0.
	Scale float64
	// Monitor pins the popup to a display (1-based). 0 follows the anchor.
	Monitor   int
	ScaleFunc ScaleFunc
	Logger    *slog.Logger
}

// Locator maps anchors to display geometry using the X11 display bounds.
type Locator struct {
	mu        sync.RWMutex
	scale     float64
	monitor   int
	scaleFunc ScaleFunc
	logger    *slog.Logger

	// displays lists display bounds in physical pixels; replaced in tests.
	displays func() []image.Rectangle
}

// New creates a locator.
func New(opts Options) *Locator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Locator{
		scale:     opts.Scale,
		monitor:   opts.Monitor,
		scaleFunc: opts.ScaleFunc,
		logger:    opts.Logger,
		displays:  activeDisplays,
	}
}

func activeDisplays() []image.Rectangle {
	n := screenshot.NumActiveDisplays()
	out := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, screenshot.GetDisplayBounds(i))
	}
	return out
}

// Update applies new display settings.
func (l *Locator) Update(scale float64, monitor int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scale = scale
	l.monitor = monitor
}

// ScreenAt returns the display containing anchor. Without an anchor, or
// when the anchor is off every display, the pinned or first display is
// used. With no display information the default 1920x1080 screen is returned.
func (l *Locator) ScreenAt(anchor model.Anchor) model.Screen {
	l.mu.RLock()
	scaleOverride, monitor := l.scale, l.monitor
	l.mu.RUnlock()

	bounds := l.displays()
	if len(bounds) == 0 {
		l.logger.Debug("no display information, using default screen")
		return model.DefaultScreen
	}

	idx := 0
	switch {
	case monitor > 0 && monitor <= len(bounds):
		idx = monitor - 1
	case anchor.Valid:
		pt := image.Pt(anchor.X, anchor.Y)
		for i, b := range bounds {
			if pt.In(b) {
				idx = i
				break
			}
		}
	}
	b := bounds[idx]

	scale := scaleOverride
	if scale <= 0 && l.scaleFunc != nil {
		scale = l.scaleFunc(b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2)
	}
	if scale <= 0 {
		scale = 1
	}

	return model.Screen{
		X:      b.Min.X,
		Y:      b.Min.Y,
		Width:  float64(b.Dx()) / scale,
		Height: float64(b.Dy()) / scale,
		Scale:  scale,
	}
}
