// Package model defines the core data structures for poptrans.
package model

import (
	"strings"
	"time"
)

// Result is the outcome of a single translate call.
// It is immutable once returned by a translator.
type Result struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Error   string `json:"error,omitempty"`
}

// HasText reports whether the result carries non-whitespace text.
func (r Result) HasText() bool {
	return strings.TrimSpace(r.Text) != ""
}

// Displayable reports whether the result may be shown as a translation.
func (r Result) Displayable() bool {
	return r.Success && r.HasText()
}

// Failed builds a failed result carrying err's message.
func Failed(err error) Result {
	if err == nil {
		return Result{}
	}
	return Result{Error: err.Error()}
}

// Anchor is a point in physical screen pixels near which the popup opens.
// The zero value means no anchor is known.
type Anchor struct {
	X     int  `json:"x"`
	Y     int  `json:"y"`
	Valid bool `json:"valid"`
}

// AnchorAt returns a valid anchor at the given physical coordinates.
func AnchorAt(x, y int) Anchor {
	return Anchor{X: x, Y: y, Valid: true}
}

// Request is one translate trigger.
type Request struct {
	Text     string
	Anchor   Anchor
	Sequence uint64
}

// ViewKind tags the popup view state.
type ViewKind int

const (
	// ViewHidden means no popup and no content.
	ViewHidden ViewKind = iota
	// ViewLoading means a request is in flight; nothing is rendered.
	ViewLoading
	// ViewDone means a result is ready and the popup is visible.
	ViewDone
)

// ViewKindNames maps view kinds to their wire names.
var ViewKindNames = map[ViewKind]string{
	ViewHidden:  "hidden",
	ViewLoading: "loading",
	ViewDone:    "done",
}

func (k ViewKind) String() string {
	if name, ok := ViewKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ViewState is the popup's current view. Result is only meaningful for ViewDone.
type ViewState struct {
	Kind   ViewKind
	Result Result
}

// Hidden returns the hidden view.
func Hidden() ViewState { return ViewState{Kind: ViewHidden} }

// Loading returns the loading view.
func Loading() ViewState { return ViewState{Kind: ViewLoading} }

// Done returns a visible view showing r.
func Done(r Result) ViewState { return ViewState{Kind: ViewDone, Result: r} }

// Visible reports whether the view is rendered on screen.
func (v ViewState) Visible() bool {
	return v.Kind == ViewDone
}

// Screen describes the display the popup is placed on.
// X and Y are the physical origin of the display in the global layout;
// Width and Height are logical; Scale is the device pixel ratio.
type Screen struct {
	X      int
	Y      int
	Width  float64
	Height float64
	Scale  float64
}

// DefaultScreen is used when no display information is available.
var DefaultScreen = Screen{Width: 1920, Height: 1080, Scale: 1}

// PhysicalSize returns the screen size in physical pixels.
func (s Screen) PhysicalSize() (float64, float64) {
	scale := s.Scale
	if scale <= 0 {
		scale = 1
	}
	return s.Width * scale, s.Height * scale
}

// Contains reports whether the physical point lies on this screen.
func (s Screen) Contains(x, y int) bool {
	w, h := s.PhysicalSize()
	return x >= s.X && y >= s.Y &&
		float64(x-s.X) < w && float64(y-s.Y) < h
}

// Geometry is the popup window's size (logical) and position (physical).
type Geometry struct {
	Width  int
	Height int
	X      int
	Y      int
}

// Settings is the snapshot of user settings the popup controller reads.
// It is replaced wholesale whenever the settings change.
type Settings struct {
	AutoCloseTimeout time.Duration
	SourceLang       string
	TargetLang       string
	ShowErrors       bool
}

// DefaultSettings returns the settings used before any are loaded.
func DefaultSettings() Settings {
	return Settings{
		AutoCloseTimeout: 1500 * time.Millisecond,
		SourceLang:       "EN",
		TargetLang:       "ZH",
	}
}

// LangPair renders the language badge shown in the popup header.
func (s Settings) LangPair() string {
	return s.SourceLang + " → " + s.TargetLang
}
