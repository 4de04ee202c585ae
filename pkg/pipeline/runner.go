package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/watermarker/pkg/cache"
	"github.com/matzehuels/watermarker/pkg/errors"
	"github.com/matzehuels/watermarker/pkg/fonts"
	"github.com/matzehuels/watermarker/pkg/httputil"
	"github.com/matzehuels/watermarker/pkg/io"
	"github.com/matzehuels/watermarker/pkg/observability"
	"github.com/matzehuels/watermarker/pkg/watermark"
)

// ProgressFunc reports a user-visible step ("downloading", "saving") and its
// subject (a URL or file name).
type ProgressFunc func(step, subject string)

// Runner executes watermarking runs.
//
// The Runner stores no per-run state. Multiple goroutines can safely use the
// same Runner with different options.
type Runner struct {
	Cache      cache.Cache
	Fonts      *fonts.Resolver
	Downloader *httputil.Downloader
	Measurer   watermark.Measurer
	Logger     *log.Logger

	// Progress, if set, is called before the download and before the save.
	Progress ProgressFunc

	// TempDir is the parent of per-run download directories.
	// Empty means os.TempDir().
	TempDir string

	// InMemory decodes downloads from memory and never touches TempDir.
	InMemory bool
}

// NewRunner creates a runner whose font lookups are memoized in c.
// If c is nil, a NullCache is used (caching disabled).
// A zero timeout disables the download timeout.
func NewRunner(c cache.Cache, timeout time.Duration, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:      c,
		Fonts:      fonts.NewResolver(c, logger),
		Downloader: httputil.NewDownloader(timeout, logger),
		Measurer:   watermark.NewMeasurer(),
		Logger:     logger,
	}
}

// Execute runs the pipeline and saves the result to
// opts.OutputDir/watermarker-<name>.png, silently replacing an existing file.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	result, err := r.Render(ctx, opts)
	if err != nil {
		return nil, err
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, result.Name)

	r.progress("saving", result.Name)
	err = r.stage(ctx, StageSave, func() error {
		start := time.Now()
		if err := io.ExportPNG(result.Image, path); err != nil {
			return err
		}
		result.Stats.SaveTime = time.Since(start)
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Path = path

	r.Logger.Info("saved avatar", "file", path, "duration", result.Stats.SaveTime)
	return result, nil
}

// Render downloads, crops and watermarks the image without saving it.
func (r *Runner) Render(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	name, err := errors.URLBasename(opts.URL)
	if err != nil {
		return nil, err
	}

	font, err := r.Fonts.Load(ctx, opts.Font, opts.FontSize)
	if err != nil {
		return nil, err
	}
	color, err := watermark.ParseColor(opts.Color)
	if err != nil {
		return nil, err
	}

	result := &Result{Name: io.OutputName(name)}

	// Stage 1: Download
	r.progress("downloading", opts.URL)
	var src image.Image
	err = r.stage(ctx, StageDownload, func() error {
		start := time.Now()
		img, err := r.download(ctx, opts.URL)
		if err != nil {
			return err
		}
		src = img
		result.Stats.DownloadTime = time.Since(start)
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Stats.SourceWidth = src.Bounds().Dx()
	result.Stats.SourceHeight = src.Bounds().Dy()

	r.Logger.Debug("downloaded image",
		"url", opts.URL,
		"size", fmt.Sprintf("%dx%d", result.Stats.SourceWidth, result.Stats.SourceHeight),
		"duration", result.Stats.DownloadTime)

	// Stages 2 and 3: Crop, Watermark
	process := Chain(
		Named(StageCrop, Crop(opts.Width, opts.Height, opts.Radius)),
		Named(StageWatermark, Watermark(r.Measurer, watermark.Options{
			Text:     opts.Text,
			Font:     font,
			Color:    color,
			Padding:  opts.Padding,
			WordWrap: opts.WordWrap,
		}, &result.Fit)),
	)

	start := time.Now()
	out, err := process(ctx, src)
	if err != nil {
		return nil, err
	}
	result.Image = toRGBA(out)
	result.Stats.TransformTime = time.Since(start)

	r.Logger.Debug("watermarked",
		"font", result.Fit.Font,
		"trials", result.Fit.Trials,
		"converged", result.Fit.Converged,
		"duration", result.Stats.TransformTime)
	if !result.Fit.Converged {
		r.Logger.Warn("caption did not settle within the size bounds", "font", result.Fit.Font, "trials", result.Fit.Trials)
	}

	return result, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// download fetches and decodes the source image, through a per-run temporary
// directory that is removed afterwards unless InMemory is set.
func (r *Runner) download(ctx context.Context, url string) (image.Image, error) {
	if r.InMemory {
		data, err := r.Downloader.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		return io.ReadImage(bytes.NewReader(data))
	}

	tmp, err := r.tempDir()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	path, err := r.Downloader.Download(ctx, url, tmp)
	if err != nil {
		return nil, err
	}
	return io.ImportImage(path)
}

func (r *Runner) stage(ctx context.Context, name string, fn func() error) error {
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, name)
	start := time.Now()
	err := fn()
	hooks.OnStageComplete(ctx, name, time.Since(start), err)
	return err
}

func (r *Runner) progress(step, subject string) {
	if r.Progress != nil {
		r.Progress(step, subject)
	}
}

// tempDir creates a fresh per-run download directory.
func (r *Runner) tempDir() (string, error) {
	parent := r.TempDir
	if parent == "" {
		parent = os.TempDir()
	}
	dir := filepath.Join(parent, "watermarker-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "create temp dir")
	}
	return dir, nil
}
