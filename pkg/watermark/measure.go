// Package watermark fits captions to a box and draws them onto images.
//
// Two fitting strategies are provided:
//
//   - [FitScaled] measures the unwrapped caption once and scales the font so
//     the text fills the padded image along its tighter dimension.
//   - [FitWrapped] wraps the caption at the padded width and searches for a
//     font size whose wrapped height falls in [Box.MinHeight, Box.MaxHeight].
//     The search halves its step whenever it changes direction and gives up
//     after [TrapCount] trials, keeping the last size tried.
//
// Text is measured through the [Measurer] interface so the search can be
// exercised against synthetic metrics. [GGMeasurer] measures with real glyph
// advances and line heights.
package watermark

import (
	"strings"

	"github.com/fogleman/gg"

	"github.com/matzehuels/watermarker/pkg/fonts"
)

// lineSpacing is the multiple of the font height between baselines.
const lineSpacing = 1.0

// Size is a measured text extent in pixels.
type Size struct {
	Width, Height float64
}

// Measurer reports the extent of text rendered in a font. A positive
// wrapWidth wraps lines at word boundaries to fit that width; zero disables
// wrapping. Explicit newlines always break lines.
type Measurer interface {
	Measure(text string, f fonts.Font, wrapWidth float64) Size
}

// GGMeasurer measures text with gg's layout rules, which are the same rules
// used when drawing.
type GGMeasurer struct{}

// NewMeasurer returns a GGMeasurer.
func NewMeasurer() GGMeasurer {
	return GGMeasurer{}
}

// Measure implements Measurer. The height is the number of lines times the
// font height; the width is the widest line.
func (GGMeasurer) Measure(text string, f fonts.Font, wrapWidth float64) Size {
	face := f.Face()
	defer face.Close()

	dc := gg.NewContext(1, 1)
	dc.SetFontFace(face)

	lines := strings.Split(text, "\n")
	if wrapWidth > 0 {
		lines = dc.WordWrap(text, wrapWidth)
	}
	w, h := dc.MeasureMultilineString(strings.Join(lines, "\n"), lineSpacing)
	return Size{Width: w, Height: h}
}

var _ Measurer = GGMeasurer{}
