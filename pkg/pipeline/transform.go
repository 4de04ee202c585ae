package pipeline

import (
	"context"
	"image"
	"image/draw"
	"time"

	"github.com/matzehuels/watermarker/pkg/avatar"
	"github.com/matzehuels/watermarker/pkg/errors"
	"github.com/matzehuels/watermarker/pkg/observability"
	"github.com/matzehuels/watermarker/pkg/watermark"
)

// Stage names reported to observability hooks.
const (
	StageDownload  = "download"
	StageCrop      = "crop"
	StageWatermark = "watermark"
	StageSave      = "save"
)

// Transform is one image processing step. It may modify img in place and
// return it, or return a new image.
type Transform func(ctx context.Context, img image.Image) (image.Image, error)

// Chain composes transforms left to right. It stops at the first error and
// checks ctx before every step.
func Chain(ts ...Transform) Transform {
	return func(ctx context.Context, img image.Image) (image.Image, error) {
		var err error
		for _, t := range ts {
			if err = ctx.Err(); err != nil {
				return nil, err
			}
			if img, err = t(ctx, img); err != nil {
				return nil, err
			}
		}
		return img, nil
	}
}

// Named wraps t so the pipeline hooks see it as stage name.
func Named(name string, t Transform) Transform {
	return func(ctx context.Context, img image.Image) (image.Image, error) {
		hooks := observability.Pipeline()
		hooks.OnStageStart(ctx, name)
		start := time.Now()
		out, err := t(ctx, img)
		hooks.OnStageComplete(ctx, name, time.Since(start), err)
		return out, err
	}
}

// Crop returns a Transform that center crop-resizes to width x height and
// clears the corners outside radius.
func Crop(width, height int, radius float64) Transform {
	return func(_ context.Context, img image.Image) (image.Image, error) {
		return avatar.Convert(img, width, height, radius)
	}
}

// Watermark returns a Transform that fits and draws a caption. The fit is
// stored in *fit when fit is non-nil.
func Watermark(m watermark.Measurer, opts watermark.Options, fit *watermark.Fit) Transform {
	return func(ctx context.Context, img image.Image) (image.Image, error) {
		rgba := toRGBA(img)
		if rgba == nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "no image to watermark")
		}
		f, err := watermark.Apply(rgba, m, opts)
		if err != nil {
			return nil, err
		}
		observability.Pipeline().OnFit(ctx, opts.Mode(), f.Font.Size(), f.Trials, f.Converged)
		if fit != nil {
			*fit = f
		}
		return rgba, nil
	}
}

// toRGBA returns img as an origin-anchored *image.RGBA, converting if needed.
func toRGBA(img image.Image) *image.RGBA {
	if img == nil {
		return nil
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
