package io

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/watermarker/pkg/errors"
)

func TestOutputName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cat.jpg", "watermarker-cat.png"},
		{"cat", "watermarker-cat.png"},
		{"cat.png", "watermarker-cat.png"},
		{"a.b.webp", "watermarker-a.b.png"},
		{"photos/cat.jpeg", "watermarker-cat.png"},
		{".hidden", "watermarker-.hidden.png"},
	}
	for _, tt := range tests {
		if got := OutputName(tt.in); got != tt.want {
			t.Errorf("OutputName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReadImageFormats(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 8, 6))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}

	var pngBuf, jpgBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, src))
	require.NoError(t, jpeg.Encode(&jpgBuf, src, nil))

	for name, data := range map[string][]byte{"png": pngBuf.Bytes(), "jpeg": jpgBuf.Bytes()} {
		t.Run(name, func(t *testing.T) {
			img, err := ReadImage(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, 8, img.Bounds().Dx())
			assert.Equal(t, 6, img.Bounds().Dy())
		})
	}
}

func TestReadImageRejectsGarbage(t *testing.T) {
	_, err := ReadImage(strings.NewReader("<html>not an image</html>"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeDecode))

	_, err = ReadImage(bytes.NewReader(nil))
	assert.True(t, errors.Is(err, errors.ErrCodeDecode))
}

func TestImportImageMissing(t *testing.T) {
	_, err := ImportImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestExportPNGPreservesAlpha(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(1, 1, color.RGBA{R: 0xff, A: 0xff})

	out := filepath.Join(t.TempDir(), OutputName("dot.jpg"))
	require.NoError(t, ExportPNG(img, out))

	got, err := ImportImage(out)
	require.NoError(t, err)

	_, _, _, a := got.At(0, 0).RGBA()
	assert.Zero(t, a, "transparent pixel must stay transparent")
	r, _, _, a := got.At(1, 1).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	assert.Equal(t, uint32(0xffff), r)
}

func TestExportPNGErrors(t *testing.T) {
	dir := t.TempDir()

	err := ExportPNG(nil, filepath.Join(dir, "nil.png"))
	assert.True(t, errors.Is(err, errors.ErrCodeEncode))
	_, statErr := os.Stat(filepath.Join(dir, "nil.png"))
	assert.True(t, os.IsNotExist(statErr), "failed export must not leave a file")

	err = ExportPNG(image.NewRGBA(image.Rect(0, 0, 1, 1)), filepath.Join(dir, "no", "such", "dir.png"))
	assert.True(t, errors.Is(err, errors.ErrCodeEncode))
}
