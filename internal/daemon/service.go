package daemon

import (
	"log/slog"

	"github.com/jmylchreest/poptrans/internal/dbus"
	"github.com/jmylchreest/poptrans/internal/display"
	"github.com/jmylchreest/poptrans/internal/model"
	"github.com/jmylchreest/poptrans/internal/selection"
)

// Popup is the part of the popup controller driven by remote requests.
type Popup interface {
	Trigger(text string, anchor model.Anchor)
	Close()
	Copy()
	Snapshot() display.Snapshot
}

// SelectionReader returns the currently selected text.
type SelectionReader interface {
	Capture() (string, bool)
}

// AnchorSource reports the position of the last click.
type AnchorSource interface {
	LastAnchor() model.Anchor
}

// Service turns hotkey presses and D-Bus calls into popup requests.
type Service struct {
	popup     Popup
	selection SelectionReader
	anchors   AnchorSource
	quit      func()
	logger    *slog.Logger
}

var _ dbus.Handler = (*Service)(nil)

// NewService creates a service. anchors may be nil until the hotkey
// listener is running; see SetAnchorSource.
func NewService(popup Popup, sel SelectionReader, quit func(), logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		popup:     popup,
		selection: sel,
		quit:      quit,
		logger:    logger,
	}
}

// SetAnchorSource sets where Trigger looks up the last click position.
// It must be called before the D-Bus server starts.
func (s *Service) SetAnchorSource(a AnchorSource) {
	s.anchors = a
}

// TranslateSelection captures the selection and opens the popup at anchor.
// Nothing happens when the selection is empty.
func (s *Service) TranslateSelection(anchor model.Anchor) {
	text, ok := s.selection.Capture()
	if !ok {
		s.logger.Debug("nothing selected, ignoring trigger")
		return
	}
	s.logger.Debug("translating selection", "text_len", len(text), "anchored", anchor.Valid)
	s.popup.Trigger(text, anchor)
}

// Trigger implements dbus.Handler. Reading the selection may run an
// external tool, so it happens off the D-Bus goroutine.
func (s *Service) Trigger() {
	anchor := model.Anchor{}
	if s.anchors != nil {
		anchor = s.anchors.LastAnchor()
	}
	go s.TranslateSelection(anchor)
}

// TranslateAt implements dbus.Handler. A negative coordinate means no anchor.
func (s *Service) TranslateAt(text string, x, y int) {
	text, ok := selection.Prepare(text)
	if !ok {
		s.logger.Debug("empty text, ignoring translate request")
		return
	}
	anchor := model.Anchor{}
	if x >= 0 && y >= 0 {
		anchor = model.AnchorAt(x, y)
	}
	s.popup.Trigger(text, anchor)
}

// Hide implements dbus.Handler.
func (s *Service) Hide() {
	s.popup.Close()
}

// Copy implements dbus.Handler.
func (s *Service) Copy() {
	s.popup.Copy()
}

// State implements dbus.Handler. The text is the translation, or the error
// message of a shown failure.
func (s *Service) State() (string, string) {
	snap := s.popup.Snapshot()
	if !snap.View.Visible() {
		return snap.View.Kind.String(), ""
	}
	res := snap.View.Result
	if res.Success {
		return snap.View.Kind.String(), res.Text
	}
	return snap.View.Kind.String(), res.Error
}

// Quit implements dbus.Handler.
func (s *Service) Quit() {
	s.logger.Info("quit requested over D-Bus")
	if s.quit != nil {
		s.quit()
	}
}
