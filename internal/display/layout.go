package display

import (
	"math"

	"github.com/jmylchreest/poptrans/internal/model"
)

// Popup sizing constants. Widths and heights are logical pixels; the edge
// offset and safe margin are logical and scaled to physical at placement.
const (
	BaseMinWidth         = 300
	AbsoluteMaxWidth     = 600
	WidthGrowth          = 15.0
	MaxWidthScreenRatio  = 0.5
	EdgeOffset           = 16
	SafeMargin           = 8
	WindowPadding        = 16 // room for the shadow and rounded corners
	ProvisionalHeight    = 140
	ContentPadding       = 32
	MinHeight            = 80
	MaxHeightScreenRatio = 0.85
)

// ComputeWidth returns the popup content width for a result of textLen
// characters. Width grows with the square root of the length so long texts
// wrap instead of stretching, and never exceeds half the screen.
func ComputeWidth(textLen int, screenWidth float64) int {
	if textLen < 0 {
		textLen = 0
	}
	maxWidth := math.Min(AbsoluteMaxWidth, screenWidth*MaxWidthScreenRatio)
	estimated := math.Floor(BaseMinWidth + math.Sqrt(float64(textLen))*WidthGrowth)
	return int(math.Min(math.Max(BaseMinWidth, estimated), math.Floor(maxWidth)))
}

// ComputeHeight clamps the measured content height (header plus inner
// content plus padding) to the allowed range for the screen.
func ComputeHeight(headerHeight, innerHeight, screenHeight float64) int {
	total := headerHeight + innerHeight + ContentPadding
	maxHeight := math.Floor(screenHeight * MaxHeightScreenRatio)
	return int(math.Min(math.Max(total, MinHeight), maxHeight))
}

// ComputePosition places a popup of the given logical size near anchor and
// returns its physical top-left corner. The popup opens below-right of the
// anchor, flips to the other side of an axis when it would cross that edge,
// and is finally clamped inside the screen's safe margin. Without an anchor
// it is centred horizontally near the top of the screen.
func ComputePosition(anchor model.Anchor, width, height int, screen model.Screen) (int, int) {
	dpr := screen.Scale
	if dpr <= 0 {
		dpr = 1
	}

	pWidth := float64(width) * dpr
	pHeight := float64(height) * dpr
	screenWidth, screenHeight := screen.PhysicalSize()
	offset := EdgeOffset * dpr
	safe := SafeMargin * dpr

	var posX, posY float64
	if !anchor.Valid {
		posX = (screenWidth - pWidth) / 2
		posY = safe
	} else {
		// Work in screen-local coordinates
		baseX := math.Round(float64(anchor.X - screen.X))
		baseY := math.Round(float64(anchor.Y - screen.Y))

		posX = baseX + offset
		posY = baseY + offset

		if posX+pWidth > screenWidth-safe {
			posX = baseX - pWidth - offset
		}
		if posY+pHeight > screenHeight-safe {
			posY = baseY - pHeight - offset
		}
	}

	x := clamp(math.Round(posX), math.Ceil(safe), math.Floor(screenWidth-pWidth-safe))
	y := clamp(math.Round(posY), math.Ceil(safe), math.Floor(screenHeight-pHeight-safe))

	return screen.X + int(x), screen.Y + int(y)
}

// clamp limits v to [lo, hi]; lo wins when the range is empty.
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// Layout computes the full window geometry for content of the given logical
// size: the window is the content plus padding on every side.
func Layout(anchor model.Anchor, contentWidth, contentHeight int, screen model.Screen) model.Geometry {
	w := contentWidth + WindowPadding
	h := contentHeight + WindowPadding
	x, y := ComputePosition(anchor, w, h, screen)
	return model.Geometry{Width: w, Height: h, X: x, Y: y}
}
