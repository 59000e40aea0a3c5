// Package window implements the GTK4 popup surface driven by the display
// controller.
package window

import (
	"log/slog"
	"math"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/poptrans/internal/display"
	"github.com/jmylchreest/poptrans/internal/model"
)

// CSS class names shared with the bundled themes.
const (
	classPopup  = "poptrans-popup"
	classHeader = "poptrans-header"
	classLang   = "poptrans-lang"
	classBody   = "poptrans-body"
	classText   = "poptrans-text"
	classError  = "poptrans-error"
	classCopy   = "poptrans-copy"
	classClose  = "poptrans-close"
	classCopied = "poptrans-copied"
	classEnter  = "poptrans-enter"
)

const (
	iconCopy   = "edit-copy-symbolic"
	iconCopied = "object-select-symbolic"
	iconClose  = "window-close-symbolic"
)

// Handlers receive user interaction with the popup. They are called on the
// GTK main thread.
type Handlers struct {
	Measured     func(headerHeight, innerHeight float64)
	PointerEnter func()
	PointerLeave func()
	Escape       func()
	Close        func()
	Copy         func()
	FocusChanged func(focused bool)
}

// Popup is the single translation popup window. All methods must be called
// on the GTK main thread.
type Popup struct {
	window   *gtk.Window
	handlers Handlers
	logger   *slog.Logger

	// Widgets
	card     *gtk.Box
	header   *gtk.Box
	langLbl  *gtk.Label
	body     *gtk.ScrolledWindow
	textLbl  *gtk.Label
	copyBtn  *gtk.Button
	closeBtn *gtk.Button

	// State
	layerShell bool
	width      int
	height     int
	warnedMove bool
}

var _ display.Surface = (*Popup)(nil)

// New creates the popup window, hidden.
func New(app *gtk.Application, handlers Handlers, logger *slog.Logger) *Popup {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Popup{
		handlers: handlers,
		logger:   logger,
	}

	p.window = gtk.NewWindow()
	p.window.SetApplication(app)
	p.window.SetDecorated(false)
	p.window.SetResizable(false)
	p.window.SetTitle("poptrans")
	p.window.SetDefaultSize(display.BaseMinWidth+display.WindowPadding, display.ProvisionalHeight+display.WindowPadding)

	p.layerShell = layershell.IsSupported()
	if p.layerShell {
		layershell.InitForWindow(p.window)
		layershell.SetLayer(p.window, layershell.LayerShellLayerOverlay)
		layershell.SetExclusiveZone(p.window, 0)
		layershell.SetKeyboardMode(p.window, layershell.LayerShellKeyboardModeOnDemand)
		layershell.SetNamespace(p.window, "poptrans-popup")
		layershell.SetAnchor(p.window, layershell.LayerShellEdgeTop, true)
		layershell.SetAnchor(p.window, layershell.LayerShellEdgeLeft, true)
	} else {
		logger.Debug("layer-shell unavailable, popup placement is left to the window manager")
	}

	p.buildUI()
	p.connectSignals()
	return p
}

// buildUI constructs the widget hierarchy.
func (p *Popup) buildUI() {
	p.card = gtk.NewBox(gtk.OrientationVertical, 0)
	p.card.AddCSSClass(classPopup)
	p.card.AddCSSClass(colorSchemeClass())
	margin := display.WindowPadding / 2
	p.card.SetMarginTop(margin)
	p.card.SetMarginBottom(margin)
	p.card.SetMarginStart(margin)
	p.card.SetMarginEnd(margin)

	p.header = gtk.NewBox(gtk.OrientationHorizontal, 4)
	p.header.AddCSSClass(classHeader)

	p.langLbl = gtk.NewLabel("")
	p.langLbl.AddCSSClass(classLang)
	p.langLbl.SetXAlign(0)
	p.header.Append(p.langLbl)

	spacer := gtk.NewBox(gtk.OrientationHorizontal, 0)
	spacer.SetHExpand(true)
	p.header.Append(spacer)

	p.copyBtn = gtk.NewButtonFromIconName(iconCopy)
	p.copyBtn.AddCSSClass(classCopy)
	p.copyBtn.SetTooltipText("Copy translation")
	p.header.Append(p.copyBtn)

	p.closeBtn = gtk.NewButtonFromIconName(iconClose)
	p.closeBtn.AddCSSClass(classClose)
	p.closeBtn.SetTooltipText("Close")
	p.header.Append(p.closeBtn)

	p.card.Append(p.header)

	p.textLbl = gtk.NewLabel("")
	p.textLbl.AddCSSClass(classText)
	p.textLbl.SetXAlign(0)
	p.textLbl.SetYAlign(0)
	p.textLbl.SetWrap(true)
	p.textLbl.SetWrapMode(2) // PANGO_WRAP_WORD_CHAR
	p.textLbl.SetSelectable(true)

	p.body = gtk.NewScrolledWindow()
	p.body.AddCSSClass(classBody)
	p.body.SetPolicy(gtk.PolicyNever, gtk.PolicyAutomatic)
	p.body.SetPropagateNaturalHeight(true)
	p.body.SetVExpand(true)
	p.body.SetChild(p.textLbl)
	p.card.Append(p.body)

	p.window.SetChild(p.card)
}

// connectSignals sets up event handlers.
func (p *Popup) connectSignals() {
	p.copyBtn.ConnectClicked(func() {
		call(p.handlers.Copy)
	})
	p.closeBtn.ConnectClicked(func() {
		call(p.handlers.Close)
	})

	motionCtrl := gtk.NewEventControllerMotion()
	motionCtrl.ConnectEnter(func(x, y float64) {
		call(p.handlers.PointerEnter)
	})
	motionCtrl.ConnectLeave(func() {
		call(p.handlers.PointerLeave)
	})
	p.window.AddController(motionCtrl)

	keyCtrl := gtk.NewEventControllerKey()
	keyCtrl.ConnectKeyPressed(func(keyval, keycode uint, state gdk.ModifierType) bool {
		if keyval == gdk.KEY_Escape {
			call(p.handlers.Escape)
			return true
		}
		return false
	})
	p.window.AddController(keyCtrl)

	// The window manager's close button acts like ours; the window is reused.
	p.window.ConnectCloseRequest(func() bool {
		call(p.handlers.Close)
		return true
	})

	p.window.NotifyProperty("is-active", func() {
		if p.handlers.FocusChanged != nil {
			p.handlers.FocusChanged(p.window.IsActive())
		}
	})
}

// Render implements display.Surface.
func (p *Popup) Render(view model.ViewState, settings model.Settings, animate bool) {
	p.langLbl.SetText(settings.LangPair())

	res := view.Result
	if res.Success {
		p.textLbl.SetText(res.Text)
		p.textLbl.RemoveCSSClass(classError)
		p.copyBtn.SetVisible(true)
	} else {
		p.textLbl.SetText("Translation failed: " + res.Error)
		p.textLbl.AddCSSClass(classError)
		p.copyBtn.SetVisible(false)
	}

	// Re-adding the class restarts the entry animation.
	p.card.RemoveCSSClass(classEnter)
	if animate {
		p.card.AddCSSClass(classEnter)
	}
}

// SetCopied implements display.Surface.
func (p *Popup) SetCopied(copied bool) {
	if copied {
		p.copyBtn.SetIconName(iconCopied)
		p.copyBtn.AddCSSClass(classCopied)
		p.copyBtn.SetTooltipText("Copied")
		return
	}
	p.copyBtn.SetIconName(iconCopy)
	p.copyBtn.RemoveCSSClass(classCopied)
	p.copyBtn.SetTooltipText("Copy translation")
}

// Resize implements display.Surface.
func (p *Popup) Resize(width, height int) {
	if width == p.width && height == p.height {
		return
	}
	p.width, p.height = width, height
	p.window.SetDefaultSize(width, height)
	p.window.SetSizeRequest(width, height)
}

// Move implements display.Surface. x and y are physical pixels in the global
// layout; layer-shell margins are logical and relative to one monitor.
func (p *Popup) Move(x, y int) {
	if !p.layerShell {
		if !p.warnedMove {
			p.logger.Debug("cannot position popup without layer-shell", "x", x, "y", y)
			p.warnedMove = true
		}
		return
	}

	mon, bounds := p.monitorAt(x, y)
	if mon != nil {
		layershell.SetMonitor(p.window, mon)
	}
	left, top := bounds.Margins(x, y)
	layershell.SetMargin(p.window, layershell.LayerShellEdgeLeft, left)
	layershell.SetMargin(p.window, layershell.LayerShellEdgeTop, top)
}

// Show implements display.Surface. Content is measured once GTK has laid
// the new text out.
func (p *Popup) Show() {
	p.window.Present()
	glib.IdleAdd(p.measure)
}

// Focus implements display.Surface.
func (p *Popup) Focus() {
	p.window.GrabFocus()
}

// Hide implements display.Surface.
func (p *Popup) Hide() {
	p.window.SetVisible(false)
}

// ScaleAt returns the scale factor of the monitor containing the physical
// point, or 0 when no monitor is known. It matches screen.ScaleFunc.
func (p *Popup) ScaleAt(x, y int) float64 {
	mon, bounds := p.monitorAt(x, y)
	if mon == nil {
		return 0
	}
	return bounds.Scale
}

// measure reports the natural header and body heights for the current width.
func (p *Popup) measure() {
	if !p.window.IsVisible() || p.handlers.Measured == nil {
		return
	}

	inner := contentWidth(p.width)
	_, headerHeight, _, _ := p.header.Measure(gtk.OrientationVertical, inner)
	_, bodyHeight, _, _ := p.body.Measure(gtk.OrientationVertical, inner)

	p.handlers.Measured(float64(headerHeight), float64(bodyHeight))
}

// monitorAt returns the monitor containing the physical point, or the first
// monitor.
func (p *Popup) monitorAt(x, y int) (*gdk.Monitor, MonitorBounds) {
	gdkDisplay := p.window.Display()
	if gdkDisplay == nil {
		return nil, MonitorBounds{Scale: 1}
	}
	monitors := gdkDisplay.Monitors()

	var (
		first       *gdk.Monitor
		firstBounds MonitorBounds
	)
	for i := uint(0); i < monitors.NItems(); i++ {
		obj := monitors.Item(i)
		if obj == nil {
			continue
		}
		mon, ok := obj.Cast().(*gdk.Monitor)
		if !ok {
			continue
		}
		g := mon.Geometry()
		b := BoundsFromLogical(g.X(), g.Y(), g.Width(), g.Height(), float64(mon.ScaleFactor()))
		if first == nil {
			first, firstBounds = mon, b
		}
		if b.Contains(x, y) {
			return mon, b
		}
	}
	return first, firstBounds
}

// contentWidth is the text width inside a window of the given width.
func contentWidth(windowWidth int) int {
	w := windowWidth - display.WindowPadding - display.ContentPadding
	return int(math.Max(float64(w), 1))
}

// colorSchemeClass returns "light" or "dark" from the libadwaita preference.
func colorSchemeClass() string {
	if adw.StyleManagerGetDefault().Dark() {
		return "dark"
	}
	return "light"
}

func call(f func()) {
	if f != nil {
		f()
	}
}
