package io

import (
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/matzehuels/watermarker/pkg/errors"
)

// ReadImage decodes an image from r. The format is sniffed from the content.
// EXIF orientation tags are honored. ReadImage does not close r.
func ReadImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDecode, err, "decode image")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New(errors.ErrCodeDecode, "decoded image is empty (%dx%d)", b.Dx(), b.Dy())
	}
	return img, nil
}

// ImportImage reads and decodes the image file at path.
func ImportImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "open %s", path)
	}
	defer f.Close()
	return ReadImage(f)
}
