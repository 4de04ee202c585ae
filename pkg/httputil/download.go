package httputil

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/watermarker/pkg/buildinfo"
	"github.com/matzehuels/watermarker/pkg/errors"
	"github.com/matzehuels/watermarker/pkg/observability"
)

// MaxBodyBytes caps the size of a downloaded image.
const MaxBodyBytes int64 = 50 << 20

// Downloader fetches images over HTTP. It is safe for concurrent use.
type Downloader struct {
	http      *http.Client
	userAgent string
	maxBytes  int64
	logger    *log.Logger
}

// NewDownloader creates a Downloader. A zero timeout means no client timeout.
// A nil logger discards output.
func NewDownloader(timeout time.Duration, logger *log.Logger) *Downloader {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Downloader{
		http:      &http.Client{Timeout: timeout},
		userAgent: buildinfo.UserAgent(),
		maxBytes:  MaxBodyBytes,
		logger:    logger,
	}
}

// Fetch GETs rawURL and returns the response body.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := d.open(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, d.maxBytes+1))
	if err != nil {
		return nil, classify(err, "read %s", rawURL)
	}
	if int64(len(data)) > d.maxBytes {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s exceeds %d bytes", rawURL, d.maxBytes)
	}
	return data, nil
}

// Download GETs rawURL and writes the body to dir, in a file named after the
// URL path basename. It returns the file path. A partial file is removed on
// failure.
func (d *Downloader) Download(ctx context.Context, rawURL, dir string) (path string, err error) {
	name, err := errors.URLBasename(rawURL)
	if err != nil {
		return "", err
	}

	body, err := d.open(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	path = filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(errors.ErrCodeInternal, cerr, "close %s", path)
		}
		if err != nil {
			os.Remove(path)
			path = ""
		}
	}()

	n, err := io.Copy(f, io.LimitReader(body, d.maxBytes+1))
	if err != nil {
		return path, classify(err, "read %s", rawURL)
	}
	if n > d.maxBytes {
		return path, errors.New(errors.ErrCodeInvalidInput, "%s exceeds %d bytes", rawURL, d.maxBytes)
	}
	d.logger.Debug("downloaded", "url", rawURL, "bytes", n, "file", path)
	return path, nil
}

func (d *Downloader) open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidURL, err, "parse %q", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidURL, err, "request %q", rawURL)
	}
	req.Header.Set("User-Agent", d.userAgent)

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, u.Host, u.Path)
	start := time.Now()

	resp, err := d.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, u.Host, u.Path, err)
		return nil, classify(err, "GET %s", rawURL)
	}
	hooks.OnResponse(ctx, req.Method, u.Host, u.Path, resp.StatusCode, time.Since(start))
	d.logger.Debug("response", "url", rawURL, "status", resp.StatusCode, "elapsed", time.Since(start).Round(time.Millisecond))

	if err := checkStatus(resp.StatusCode, rawURL); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(code int, rawURL string) error {
	if code >= 200 && code < 300 {
		return nil
	}
	se := &errors.StatusError{StatusCode: code, URL: rawURL}
	return errors.Wrap(se.Code(), se, "download failed with status %d", code)
}

// classify maps transport errors to TIMEOUT or NETWORK_ERROR.
func classify(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	var ne net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &ne) && ne.Timeout()) {
		return errors.Wrap(errors.ErrCodeTimeout, err, "%s: timed out", msg)
	}
	return errors.Wrap(errors.ErrCodeNetwork, err, "%s", msg)
}
