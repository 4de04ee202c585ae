// Package avatar turns arbitrary images into fixed-size avatars with rounded,
// transparent corners.
//
// The work happens in two steps:
//
//  1. [Crop] scales the source to cover the target size and cuts the excess
//     from the center (Lanczos resampling, never stretching or padding).
//  2. [RoundCorners] erases the four corner regions built by [BuildCorners],
//     replacing their pixels with full transparency.
//
// [Convert] runs both.
package avatar

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/matzehuels/watermarker/pkg/errors"
)

// Default avatar geometry.
const (
	DefaultWidth  = 400
	DefaultHeight = 300
	DefaultRadius = 25.0
)

// Convert crops src to width x height and rounds its corners.
func Convert(src image.Image, width, height int, radius float64) (*image.RGBA, error) {
	if err := errors.ValidateGeometry(width, height, radius, 0); err != nil {
		return nil, err
	}
	dst, err := Crop(src, width, height)
	if err != nil {
		return nil, err
	}
	RoundCorners(dst, radius)
	return dst, nil
}

// Crop resizes src to exactly width x height, cropping the overflow around
// the center. The result is a new image anchored at the origin.
func Crop(src image.Image, width, height int) (*image.RGBA, error) {
	if src == nil {
		return nil, errors.New(errors.ErrCodeDecode, "no source image")
	}
	if width <= 0 || height <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidGeometry, "size must be positive, got %dx%d", width, height)
	}

	filled := imaging.Fill(src, width, height, imaging.Center, imaging.Lanczos)
	if b := filled.Bounds(); b.Dx() != width || b.Dy() != height {
		sb := src.Bounds()
		return nil, errors.New(errors.ErrCodeDecode, "cannot crop %dx%d source to %dx%d", sb.Dx(), sb.Dy(), width, height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), filled, filled.Bounds().Min, draw.Src)
	return dst, nil
}

// RoundCorners makes every pixel covered by the corner regions of img fully
// transparent, in place. Partially covered pixels along the arcs keep a
// proportional share of their color. A non-positive radius is a no-op.
func RoundCorners(img draw.Image, radius float64) {
	if radius <= 0 {
		return
	}
	b := img.Bounds()
	keep := Mask(b.Dx(), b.Dy(), radius)
	for i, a := range keep.Pix {
		keep.Pix[i] = 0xff - a
	}

	// Src through the inverted mask: dst = dst * (1 - corner coverage)
	src := imaging.Clone(img)
	draw.DrawMask(img, b, src, src.Bounds().Min, keep, image.Point{}, draw.Src)
}

// Mask rasterizes the four corner regions of a width x height image into an
// antialiased alpha mask anchored at the origin. Covered pixels are opaque.
func Mask(width, height int, radius float64) *image.Alpha {
	dc := gg.NewContext(width, height)
	if radius <= 0 {
		return dc.AsMask()
	}

	// pixel-index coordinates to pixel-area coordinates
	dc.Translate(0.5, 0.5)
	for _, c := range BuildCorners(width, height, radius) {
		c.Trace(dc)
	}
	dc.SetColor(color.Black)
	dc.Fill()
	return dc.AsMask()
}
