package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

const iconSize = 64

var (
	iconOnce sync.Once
	iconData []byte
)

// Icon returns the tray icon as PNG data.
func Icon() []byte {
	iconOnce.Do(func() {
		iconData = renderIcon()
	})
	return iconData
}

// renderIcon draws a rounded blue badge with a white "T".
func renderIcon() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	badge := color.NRGBA{R: 0x35, G: 0x84, B: 0xe4, A: 0xff}
	glyph := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

	const radius = 14
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			if insideRounded(x, y, iconSize, radius) {
				img.SetNRGBA(x, y, badge)
			}
		}
	}

	// Crossbar and stem
	fill(img, image.Rect(16, 14, 48, 22), glyph)
	fill(img, image.Rect(28, 22, 36, 50), glyph)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func insideRounded(x, y, size, r int) bool {
	cx, cy := x, y
	switch {
	case x < r:
		cx = r
	case x >= size-r:
		cx = size - r - 1
	}
	switch {
	case y < r:
		cy = r
	case y >= size-r:
		cy = size - r - 1
	}
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= r*r
}

func fill(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}
