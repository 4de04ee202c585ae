package io

import (
	"image"
	"io"
	"os"
	"path"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/watermarker/pkg/errors"
)

// OutputPrefix is prepended to every result file name.
const OutputPrefix = "watermarker-"

// OutputName returns the result file name for a source basename: the prefix,
// the basename without its extension, and ".png".
//
//	OutputName("cat.jpg")    // "watermarker-cat.png"
//	OutputName("cat")        // "watermarker-cat.png"
//	OutputName("a.b.webp")   // "watermarker-a.b.png"
//	OutputName(".hidden")    // "watermarker-.hidden.png"
//
// A dotfile name is its own base, so the leading dot is kept.
func OutputName(basename string) string {
	base := path.Base(basename)
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return OutputPrefix + base + ".png"
}

// WritePNG encodes img as PNG and writes it to w. Alpha is preserved.
func WritePNG(img image.Image, w io.Writer) error {
	if img == nil {
		return errors.New(errors.ErrCodeEncode, "no image to encode")
	}
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return errors.Wrap(errors.ErrCodeEncode, err, "encode png")
	}
	return nil
}

// ExportPNG writes img to a PNG file at name, replacing any existing file.
// A partially written file is removed on failure.
func ExportPNG(img image.Image, name string) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrap(errors.ErrCodeEncode, err, "create %s", name)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(errors.ErrCodeEncode, cerr, "close %s", name)
		}
		if err != nil {
			os.Remove(name)
		}
	}()
	return WritePNG(img, f)
}
