package pipeline

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/watermarker/pkg/errors"
	"github.com/matzehuels/watermarker/pkg/io"
)

func TestDefaultOptions(t *testing.T) {
	opts := NewOptions("Hello", "https://example.com/cat.jpg")

	assert.Equal(t, "Hello", opts.Text)
	assert.Equal(t, "https://example.com/cat.jpg", opts.URL)
	assert.Equal(t, 400, opts.Width)
	assert.Equal(t, 300, opts.Height)
	assert.Equal(t, 25.0, opts.Radius)
	assert.Equal(t, 50.0, opts.Padding)
	assert.Equal(t, "Arial", opts.Font)
	assert.Equal(t, 30.0, opts.FontSize)
	assert.Equal(t, "hotpink", opts.Color)
	assert.False(t, opts.WordWrap)
	assert.Equal(t, ".", opts.OutputDir)
	assert.NoError(t, opts.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		want   errors.Code
	}{
		{"valid", func(*Options) {}, ""},
		{"zero radius", func(o *Options) { o.Radius = 0 }, ""},
		{"max radius", func(o *Options) { o.Radius = 150 }, ""},
		{"hex color", func(o *Options) { o.Color = "#00ff00" }, ""},
		{"empty text", func(o *Options) { o.Text = "" }, errors.ErrCodeInvalidInput},
		{"blank text", func(o *Options) { o.Text = "   " }, errors.ErrCodeInvalidInput},
		{"empty url", func(o *Options) { o.URL = "" }, errors.ErrCodeInvalidURL},
		{"ftp url", func(o *Options) { o.URL = "ftp://example.com/cat.jpg" }, errors.ErrCodeInvalidURL},
		{"url without file", func(o *Options) { o.URL = "https://example.com/" }, errors.ErrCodeInvalidURL},
		{"zero width", func(o *Options) { o.Width = 0 }, errors.ErrCodeInvalidGeometry},
		{"negative radius", func(o *Options) { o.Radius = -1 }, errors.ErrCodeInvalidGeometry},
		{"oversized radius", func(o *Options) { o.Radius = 151 }, errors.ErrCodeInvalidGeometry},
		{"padding fills image", func(o *Options) { o.Padding = 150 }, errors.ErrCodeInvalidGeometry},
		{"zero font size", func(o *Options) { o.FontSize = 0 }, errors.ErrCodeInvalidInput},
		{"empty font", func(o *Options) { o.Font = "" }, errors.ErrCodeInvalidInput},
		{"bad color", func(o *Options) { o.Color = "blurple" }, errors.ErrCodeInvalidColor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOptions("Hello", "https://example.com/cat.jpg")
			tt.modify(&opts)

			err := opts.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.GetCode(err), "error: %v", err)
		})
	}
}

func TestChain(t *testing.T) {
	var order []string
	step := func(name string) Transform {
		return func(_ context.Context, img image.Image) (image.Image, error) {
			order = append(order, name)
			return img, nil
		}
	}
	boom := stderrors.New("boom")
	fail := func(context.Context, image.Image) (image.Image, error) { return nil, boom }

	src := image.NewRGBA(image.Rect(0, 0, 1, 1))

	out, err := Chain(step("a"), step("b"))(context.Background(), src)
	require.NoError(t, err)
	assert.Same(t, src, out)
	assert.Equal(t, []string{"a", "b"}, order)

	order = nil
	_, err = Chain(step("a"), fail, step("c"))(context.Background(), src)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, order)

	order = nil
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Chain(step("a"))(ctx, src)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, order)
}

func TestToRGBA(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 2, 2))
	assert.Same(t, rgba, toRGBA(rgba))

	offset := image.NewNRGBA(image.Rect(5, 5, 7, 8))
	offset.Set(5, 5, color.NRGBA{R: 255, A: 255})
	got := toRGBA(offset)
	assert.Equal(t, image.Rect(0, 0, 2, 3), got.Bounds())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, got.RGBAAt(0, 0))

	assert.Nil(t, toRGBA(nil))
}

// grayJPEG encodes a uniform w x h gray JPEG.
func grayJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x40
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func imageServer(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testRunner(t *testing.T) *Runner {
	t.Helper()
	r := NewRunner(nil, 0, log.NewWithOptions(os.Stderr, log.Options{Level: log.ErrorLevel}))
	r.TempDir = t.TempDir()
	return r
}

func TestExecute(t *testing.T) {
	srv := imageServer(t, grayJPEG(t, 800, 600))
	r := testRunner(t)

	var steps []string
	r.Progress = func(step, subject string) {
		steps = append(steps, step+" "+subject)
	}

	opts := NewOptions("Hello", srv.URL+"/photos/cat.jpg")
	opts.Font = "Go"
	opts.OutputDir = t.TempDir()

	result, err := r.Execute(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"downloading " + opts.URL,
		"saving watermarker-cat.png",
	}, steps)
	assert.Equal(t, filepath.Join(opts.OutputDir, "watermarker-cat.png"), result.Path)
	assert.Equal(t, 800, result.Stats.SourceWidth)
	assert.Equal(t, 600, result.Stats.SourceHeight)
	assert.Greater(t, result.Fit.Font.Size(), 30.0)

	saved, err := io.ImportImage(result.Path)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 400, 300), saved.Bounds())

	for _, p := range []image.Point{{0, 0}, {399, 0}, {0, 299}, {399, 299}} {
		_, _, _, a := saved.At(p.X, p.Y).RGBA()
		assert.Zero(t, a, "corner pixel %v must be transparent", p)
	}
	for _, p := range []image.Point{{200, 20}, {5, 150}, {394, 150}, {200, 297}} {
		_, _, _, a := saved.At(p.X, p.Y).RGBA()
		assert.Equal(t, uint32(0xffff), a, "edge pixel %v must stay opaque", p)
	}

	opaque := 0
	for y := 0; y < 300; y++ {
		for x := 0; x < 400; x++ {
			if _, _, _, a := saved.At(x, y).RGBA(); a == 0xffff {
				opaque++
			}
		}
	}
	assert.Greater(t, opaque, 400*300-4*25*25, "only the corners may lose opacity")

	pink := 0
	for y := 100; y < 200; y++ {
		for x := 60; x < 340; x++ {
			r, g, b, a := saved.At(x, y).RGBA()
			if a == 0xffff && r>>8 == 0xff && g>>8 == 0x69 && b>>8 == 0xb4 {
				pink++
			}
		}
	}
	assert.Greater(t, pink, 50, "expected hotpink caption pixels near the center")

	entries, err := os.ReadDir(r.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "download directory must be removed")
}

func TestExecuteWordWrap(t *testing.T) {
	srv := imageServer(t, grayJPEG(t, 640, 640))
	r := testRunner(t)

	opts := NewOptions("a caption that is long enough to wrap", srv.URL+"/square.jpg")
	opts.Font = "Go"
	opts.WordWrap = true
	opts.OutputDir = t.TempDir()

	result, err := r.Execute(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "watermarker-square.png", filepath.Base(result.Path))
	assert.Positive(t, result.Fit.Trials)
}

func TestExecuteNotFound(t *testing.T) {
	srv := imageServer(t, grayJPEG(t, 10, 10))
	r := testRunner(t)

	opts := NewOptions("Hello", srv.URL+"/missing.jpg")
	opts.Font = "Go"
	opts.OutputDir = t.TempDir()

	_, err := r.Execute(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNetwork), "error: %v", err)

	out, err := os.ReadDir(opts.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, out, "no output file on failure")

	tmp, err := os.ReadDir(r.TempDir)
	require.NoError(t, err)
	assert.Empty(t, tmp)
}

func TestRenderInMemory(t *testing.T) {
	srv := imageServer(t, grayJPEG(t, 500, 500))
	r := testRunner(t)
	r.InMemory = true

	opts := NewOptions("Hello", srv.URL+"/cat.jpg")
	opts.Font = "Go"

	result, err := r.Render(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "watermarker-cat.png", result.Name)
	assert.Equal(t, image.Rect(0, 0, 400, 300), result.Image.Bounds())
	assert.Empty(t, result.Path, "Render does not save")

	entries, err := os.ReadDir(r.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "in-memory runs never create download directories")

	garbage := imageServer(t, []byte("not an image"))
	opts.URL = garbage.URL + "/x.jpg"
	_, err = r.Render(context.Background(), opts)
	assert.True(t, errors.Is(err, errors.ErrCodeDecode), "error: %v", err)
}

func TestRenderNotAnImage(t *testing.T) {
	srv := imageServer(t, []byte("<html>definitely not a jpeg</html>"))
	r := testRunner(t)

	opts := NewOptions("Hello", srv.URL+"/page.jpg")
	opts.Font = "Go"

	_, err := r.Render(context.Background(), opts)
	assert.True(t, errors.Is(err, errors.ErrCodeDecode), "error: %v", err)
}

func TestRenderMissingFont(t *testing.T) {
	srv := imageServer(t, grayJPEG(t, 10, 10))
	r := testRunner(t)

	var steps []string
	r.Progress = func(step, subject string) { steps = append(steps, step) }

	opts := NewOptions("Hello", srv.URL+"/cat.jpg")
	opts.Font = "No Such Typeface Zq9x"

	_, err := r.Render(context.Background(), opts)
	assert.True(t, errors.Is(err, errors.ErrCodeFontNotFound), "error: %v", err)
	assert.Empty(t, steps, "nothing is downloaded without a font")
}

func TestRenderInvalidOptions(t *testing.T) {
	r := testRunner(t)

	_, err := r.Render(context.Background(), NewOptions("", "https://example.com/cat.jpg"))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}
