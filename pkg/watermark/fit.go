package watermark

import (
	"math"
	"strings"

	"github.com/matzehuels/watermarker/pkg/errors"
	"github.com/matzehuels/watermarker/pkg/fonts"
)

// DefaultPadding is the margin kept between caption and image edges.
const DefaultPadding = 50.0

// minTrapCount is the lower bound on wrapped-fit trials.
const minTrapCount = 10

// Box is the region a caption must fit: text may be at most Width wide
// (wrapping happens there) and its height should land in
// [MinHeight, MaxHeight].
type Box struct {
	Width     float64
	MinHeight float64
	MaxHeight float64
}

// BoxFor derives the caption box for a width x height image: the image minus
// padding on every side, with a floor one padding below the ceiling.
func BoxFor(width, height int, padding float64) Box {
	maxH := float64(height) - 2*padding
	return Box{
		Width:     float64(width) - 2*padding,
		MinHeight: maxH - padding,
		MaxHeight: maxH,
	}
}

func (b Box) validate() error {
	if !(b.Width > 0) || !(b.MaxHeight > 0) {
		return errors.New(errors.ErrCodeInvalidGeometry, "caption box %gx%g is empty", b.Width, b.MaxHeight)
	}
	if b.MinHeight > b.MaxHeight {
		return errors.New(errors.ErrCodeInvalidGeometry, "caption box floor %g exceeds ceiling %g", b.MinHeight, b.MaxHeight)
	}
	return nil
}

// Fit is the outcome of a fitting strategy.
type Fit struct {
	Font      fonts.Font
	Size      Size // measured (wrapped) or predicted (scaled) extent at Font
	Trials    int  // number of measurements after the initial one
	Converged bool // Size.Height lies within the box bounds
}

// TrapCount returns the trial budget for a wrapped fit starting at size:
// twice the integral size, but never fewer than 10.
func TrapCount(size float64) int {
	return max(int(size)*2, minTrapCount)
}

// FitWrapped searches for a font size at which text, wrapped at box.Width,
// is between box.MinHeight and box.MaxHeight tall.
//
// Each trial moves the size by a step that starts at half the initial size.
// The step halves whenever the search reverses direction. After TrapCount
// trials the last font is returned with Converged false; callers must accept
// an inexact fit. Sizes never drop below fonts.MinSize.
func FitWrapped(m Measurer, text string, f fonts.Font, box Box) (Fit, error) {
	if strings.TrimSpace(text) == "" {
		return Fit{}, errors.New(errors.ErrCodeInvalidInput, "cannot fit empty text")
	}
	if f.IsZero() {
		return Fit{}, errors.New(errors.ErrCodeInvalidInput, "no font to fit")
	}
	if err := box.validate(); err != nil {
		return Fit{}, err
	}

	size := f.Size()
	measured := Size{Width: math.MaxFloat64, Height: math.MaxFloat64}
	step := size / 2
	tooSmall := false
	trap := TrapCount(size)
	trials := 0

	for (measured.Height > box.MaxHeight || measured.Height < box.MinHeight) && trap > 0 {
		if measured.Height > box.MaxHeight {
			if tooSmall {
				step /= 2
			}
			size -= step
			tooSmall = false
		}
		if measured.Height < box.MinHeight {
			if !tooSmall {
				step /= 2
			}
			size += step
			tooSmall = true
		}
		trap--

		f = f.WithSize(size)
		size = f.Size()
		measured = m.Measure(text, f, box.Width)
		trials++
	}

	return Fit{
		Font:      f,
		Size:      measured,
		Trials:    trials,
		Converged: measured.Height >= box.MinHeight && measured.Height <= box.MaxHeight,
	}, nil
}

// FitScaled scales f so unwrapped text spans the box along its tighter
// dimension: min(box.Width/w, box.MaxHeight/h) times the current size.
func FitScaled(m Measurer, text string, f fonts.Font, box Box) (Fit, error) {
	if strings.TrimSpace(text) == "" {
		return Fit{}, errors.New(errors.ErrCodeInvalidInput, "cannot fit empty text")
	}
	if f.IsZero() {
		return Fit{}, errors.New(errors.ErrCodeInvalidInput, "no font to fit")
	}
	if !(box.Width > 0) || !(box.MaxHeight > 0) {
		return Fit{}, errors.New(errors.ErrCodeInvalidGeometry, "caption box %gx%g is empty", box.Width, box.MaxHeight)
	}

	measured := m.Measure(text, f, 0)
	if !(measured.Width > 0) || !(measured.Height > 0) {
		return Fit{}, errors.New(errors.ErrCodeInvalidInput, "text %q measures %gx%g and cannot be scaled", text, measured.Width, measured.Height)
	}

	scaling := math.Min(box.Width/measured.Width, box.MaxHeight/measured.Height)
	scaled := Size{Width: measured.Width * scaling, Height: measured.Height * scaling}
	return Fit{
		Font:      f.WithSize(f.Size() * scaling),
		Size:      scaled,
		Trials:    1,
		Converged: true,
	}, nil
}
