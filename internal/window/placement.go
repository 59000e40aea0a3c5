package window

import "math"

// MonitorBounds is a monitor's area in physical pixels of the global layout.
type MonitorBounds struct {
	X, Y          int
	Width, Height int
	Scale         float64
}

// BoundsFromLogical converts GDK's logical monitor geometry to physical bounds.
func BoundsFromLogical(x, y, width, height int, scale float64) MonitorBounds {
	if scale <= 0 {
		scale = 1
	}
	return MonitorBounds{
		X:      int(math.Round(float64(x) * scale)),
		Y:      int(math.Round(float64(y) * scale)),
		Width:  int(math.Round(float64(width) * scale)),
		Height: int(math.Round(float64(height) * scale)),
		Scale:  scale,
	}
}

// Contains reports whether the physical point lies on the monitor.
func (b MonitorBounds) Contains(x, y int) bool {
	return x >= b.X && y >= b.Y && x < b.X+b.Width && y < b.Y+b.Height
}

// Margins returns the logical top-left layer-shell margins that put the
// window's corner at the physical point. Negative margins are clamped to 0.
func (b MonitorBounds) Margins(x, y int) (left, top int) {
	scale := b.Scale
	if scale <= 0 {
		scale = 1
	}
	left = int(math.Round(float64(x-b.X) / scale))
	top = int(math.Round(float64(y-b.Y) / scale))
	return max(left, 0), max(top, 0)
}
