package annotator

import (
	"image/color"

	"gocv.io/x/gocv"
)

var (
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// Font defines how a class label is written above its box.
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Pad is the space between the text and the edge of its background.
	Pad int
	// Offset is the distance from the box top edge up to the text baseline.
	Offset int
	// Background is blended under the text with opacity Alpha.
	Background color.RGBA
	Alpha      float64
}

// DefaultFont is a small white label on a half transparent black background.
func DefaultFont() Font {
	return Font{
		Face:       gocv.FontHersheySimplex,
		Scale:      0.4,
		Color:      White,
		Thickness:  1,
		LineType:   gocv.LineAA,
		Pad:        2,
		Offset:     5,
		Background: Black,
		Alpha:      0.5,
	}
}
