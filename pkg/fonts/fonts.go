// Package fonts resolves font families to parsed TrueType faces.
//
// A [Font] is an immutable (family, size) value. Changing the size produces a
// new Font via [Font.WithSize]; the parsed typeface is shared between copies.
//
// Families are looked up in this order:
//
//  1. Embedded Go fonts ("Go", "Go Bold", "Go Mono", ...), always available
//  2. A file path, if the family names a readable font file
//  3. User and system font directories, via go-findfont
//
// System lookups are memoized in a [cache.Cache] so repeated runs skip the
// directory walk.
//
// [cache.Cache]: github.com/matzehuels/watermarker/pkg/cache.Cache
package fonts

import (
	"fmt"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

// DefaultFamily and DefaultSize are the caption font used when none is given.
const (
	DefaultFamily = "Arial"
	DefaultSize   = 30.0
)

// MinSize is the smallest point size a Font can carry.
const MinSize = 1.0

// Font is a parsed typeface at a fixed point size.
type Font struct {
	family string
	size   float64
	ttf    *truetype.Font
}

// New wraps a parsed typeface. Sizes below MinSize are raised to MinSize.
func New(family string, ttf *truetype.Font, size float64) Font {
	return Font{family: family, size: max(size, MinSize), ttf: ttf}
}

// Family returns the family name the font was requested with.
func (f Font) Family() string { return f.family }

// Size returns the point size.
func (f Font) Size() float64 { return f.size }

// WithSize returns a copy of f at the given point size.
func (f Font) WithSize(size float64) Font {
	return New(f.family, f.ttf, size)
}

// IsZero reports whether f holds no typeface.
func (f Font) IsZero() bool { return f.ttf == nil }

// Face creates a rasterizable face at 72 DPI, so one point equals one pixel.
// Faces are not safe for concurrent use; create one per goroutine.
func (f Font) Face() font.Face {
	return truetype.NewFace(f.ttf, &truetype.Options{
		Size:    f.size,
		Hinting: font.HintingNone,
	})
}

// String returns "family size pt".
func (f Font) String() string {
	return fmt.Sprintf("%s %.1fpt", f.family, f.size)
}
