// Package pipeline provides the watermarking pipeline shared by the CLI and
// the HTTP server.
//
// # Architecture
//
// A run consists of four stages:
//
//  1. Download: fetch the source image into a temporary directory
//  2. Crop: center crop-resize to the avatar size and clear the corners
//  3. Watermark: fit the caption to the padded avatar and draw it
//  4. Save: encode the result as PNG (Execute only)
//
// Crop and Watermark are [Transform] values composed with [Chain]. The
// temporary directory is removed when the run ends, on every path.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, 0, logger)
//	defer runner.Close()
//
//	opts := pipeline.NewOptions("Hello", "https://example.com/cat.jpg")
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Path) // ./watermarker-cat.png
//
// Use [Runner.Render] to keep the image in memory instead of saving it.
package pipeline

import (
	stderrors "errors"
	"fmt"
	"image"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	validatorV10 "github.com/go-playground/validator/v10"

	"github.com/matzehuels/watermarker/pkg/errors"
	"github.com/matzehuels/watermarker/pkg/watermark"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one watermarking run. Struct tags
// carry the defaults (applied by [NewOptions]) and the validation rules
// checked by [Options.Validate].
type Options struct {
	Text string `json:"text" validate:"required"`
	URL  string `json:"url" validate:"required,url"`

	// Avatar geometry
	Width  int     `json:"width" default:"400" validate:"gt=0,lte=8192"`
	Height int     `json:"height" default:"300" validate:"gt=0,lte=8192"`
	Radius float64 `json:"radius" default:"25" validate:"gte=0"`

	// Caption
	Padding  float64 `json:"padding" default:"50" validate:"gte=0"`
	Font     string  `json:"font" default:"Arial" validate:"required"`
	FontSize float64 `json:"font_size" default:"30" validate:"gt=0,lte=1000"`
	Color    string  `json:"color" default:"hotpink" validate:"required"`
	WordWrap bool    `json:"wrap"`

	// OutputDir is where Execute writes the result.
	OutputDir string `json:"-" default:"."`
}

// NewOptions returns Options for text and url with every other field at its
// default: a 400x300 avatar with radius 25 corners and an Arial 30 hotpink
// caption inside 50px of padding, without word wrap.
func NewOptions(text, url string) Options {
	opts := DefaultOptions()
	opts.Text = text
	opts.URL = url
	return opts
}

// DefaultOptions returns Options with every defaulted field set.
func DefaultOptions() Options {
	var opts Options
	if err := defaults.Set(&opts); err != nil {
		panic(fmt.Sprintf("pipeline: bad default tag: %v", err))
	}
	return opts
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Image is the watermarked avatar.
	Image *image.RGBA

	// Name is the output file name derived from the URL basename.
	Name string

	// Path is where Execute saved the image. Empty after Render.
	Path string

	// Fit describes the fitted caption font.
	Fit watermark.Fit

	// Stats contains timing information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	DownloadTime  time.Duration
	TransformTime time.Duration
	SaveTime      time.Duration
	SourceWidth   int
	SourceHeight  int
}

// =============================================================================
// Validation
// =============================================================================

var validate *validatorV10.Validate

// fieldCodes maps option fields to the error code of their violations.
// Unlisted fields report errors.ErrCodeInvalidInput.
var fieldCodes = map[string]errors.Code{
	"url":     errors.ErrCodeInvalidURL,
	"width":   errors.ErrCodeInvalidGeometry,
	"height":  errors.ErrCodeInvalidGeometry,
	"radius":  errors.ErrCodeInvalidGeometry,
	"padding": errors.ErrCodeInvalidGeometry,
	"color":   errors.ErrCodeInvalidColor,
}

func init() {
	validate = validatorV10.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})
}

// Validate checks field rules, then text, URL, geometry and color semantics.
// It returns the first violation as a structured error.
func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		var ves validatorV10.ValidationErrors
		if !stderrors.As(err, &ves) || len(ves) == 0 {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid options")
		}
		fe := ves[0]
		code, ok := fieldCodes[fe.Field()]
		if !ok {
			code = errors.ErrCodeInvalidInput
		}
		return errors.New(code, "%s %s", fe.Field(), getValidationMessage(fe))
	}
	if err := errors.ValidateText(o.Text); err != nil {
		return err
	}
	if err := errors.ValidateURL(o.URL); err != nil {
		return err
	}
	if err := errors.ValidateGeometry(o.Width, o.Height, o.Radius, o.Padding); err != nil {
		return err
	}
	if _, err := watermark.ParseColor(o.Color); err != nil {
		return err
	}
	return nil
}

func getValidationMessage(fe validatorV10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed validation for tag '%s'", fe.Tag())
	}
}
