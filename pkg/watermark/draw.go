package watermark

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"github.com/matzehuels/watermarker/pkg/errors"
	"github.com/matzehuels/watermarker/pkg/fonts"
)

// Options configures Apply.
type Options struct {
	Text     string
	Font     fonts.Font
	Color    color.Color
	Padding  float64
	WordWrap bool
}

// Mode returns the fitting mode name, "wrap" or "scale".
func (o Options) Mode() string {
	if o.WordWrap {
		return "wrap"
	}
	return "scale"
}

// Apply fits opts.Text to img and draws it in place.
//
// Without word wrap the caption is scaled to the padded image and centered.
// With word wrap it is fitted by FitWrapped and drawn as a block whose left
// edge sits at the padding, vertically centered, each line centered within
// the wrap width.
func Apply(img *image.RGBA, m Measurer, opts Options) (Fit, error) {
	if img == nil {
		return Fit{}, errors.New(errors.ErrCodeInvalidInput, "no image to watermark")
	}
	if opts.Color == nil {
		opts.Color = DefaultColor
	}

	b := img.Bounds()
	box := BoxFor(b.Dx(), b.Dy(), opts.Padding)

	if opts.WordWrap {
		fit, err := FitWrapped(m, opts.Text, opts.Font, box)
		if err != nil {
			return Fit{}, err
		}
		return fit, DrawWrapped(img, opts.Text, fit.Font, opts.Color, opts.Padding, box.Width)
	}

	fit, err := FitScaled(m, opts.Text, opts.Font, box)
	if err != nil {
		return Fit{}, err
	}
	return fit, DrawCentered(img, opts.Text, fit.Font, opts.Color)
}

// DrawCentered draws text centered on img, both horizontally and vertically.
// Lines split only at explicit newlines.
func DrawCentered(img *image.RGBA, text string, f fonts.Font, c color.Color) error {
	dc, done, err := textContext(img, f, c)
	if err != nil {
		return err
	}
	defer done()

	b := img.Bounds()
	w, _ := dc.MeasureMultilineString(text, lineSpacing)
	dc.DrawStringWrapped(text,
		float64(b.Dx())/2, float64(b.Dy())/2,
		0.5, 0.5, math.Max(w, 1), lineSpacing, gg.AlignCenter)
	return nil
}

// DrawWrapped draws text wrapped at wrapWidth, with the block's left edge at
// x = padding and its vertical center on the image's horizontal midline.
func DrawWrapped(img *image.RGBA, text string, f fonts.Font, c color.Color, padding, wrapWidth float64) error {
	if !(wrapWidth > 0) {
		return errors.New(errors.ErrCodeInvalidGeometry, "wrap width must be positive, got %g", wrapWidth)
	}
	dc, done, err := textContext(img, f, c)
	if err != nil {
		return err
	}
	defer done()

	b := img.Bounds()
	dc.DrawStringWrapped(text,
		padding, float64(b.Dy())/2,
		0, 0.5, wrapWidth, lineSpacing, gg.AlignCenter)
	return nil
}

// textContext returns a gg context drawing directly into img, which must be
// anchored at the origin.
func textContext(img *image.RGBA, f fonts.Font, c color.Color) (*gg.Context, func(), error) {
	if img == nil {
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "no image to draw on")
	}
	if f.IsZero() {
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "no font to draw with")
	}
	face := f.Face()
	dc := gg.NewContextForRGBA(img)
	dc.SetFontFace(face)
	dc.SetColor(c)
	return dc, func() { face.Close() }, nil
}
