package httputil

import (
	"bytes"
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/watermarker/pkg/buildinfo"
	"github.com/matzehuels/watermarker/pkg/errors"
)

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	payload := []byte("\x89PNG fake image bytes")
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if got := r.Header.Get("User-Agent"); got != buildinfo.UserAgent() {
			t.Errorf("User-Agent = %q, want %q", got, buildinfo.UserAgent())
		}
		w.Write(payload)
	})

	got, err := NewDownloader(0, nil).Fetch(context.Background(), srv.URL+"/cat.png")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Fetch() = %q, want %q", got, payload)
	}
}

func TestFetchStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"not found", http.StatusNotFound},
		{"forbidden", http.StatusForbidden},
		{"server error", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})

			_, err := NewDownloader(0, nil).Fetch(context.Background(), srv.URL+"/cat.png")
			if !errors.Is(err, errors.ErrCodeNetwork) {
				t.Fatalf("Fetch() error = %v, want %s", err, errors.ErrCodeNetwork)
			}
			var se *errors.StatusError
			if !stderrors.As(err, &se) {
				t.Fatalf("Fetch() error = %v, want *StatusError in chain", err)
			}
			if se.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", se.StatusCode, tt.status)
			}
		})
	}
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	t.Run("client timeout", func(t *testing.T) {
		_, err := NewDownloader(20*time.Millisecond, nil).Fetch(context.Background(), srv.URL+"/slow.png")
		if !errors.Is(err, errors.ErrCodeTimeout) {
			t.Errorf("Fetch() error = %v, want %s", err, errors.ErrCodeTimeout)
		}
	})

	t.Run("context deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := NewDownloader(0, nil).Fetch(ctx, srv.URL+"/slow.png")
		if !errors.Is(err, errors.ErrCodeTimeout) {
			t.Errorf("Fetch() error = %v, want %s", err, errors.ErrCodeTimeout)
		}
	})
}

func TestFetchCanceled(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDownloader(0, nil).Fetch(ctx, srv.URL+"/cat.png")
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("Fetch() error = %v, want context.Canceled in chain", err)
	}
}

func TestFetchTooLarge(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("x"), 64))
	})

	d := NewDownloader(0, nil)
	d.maxBytes = 16

	_, err := d.Fetch(context.Background(), srv.URL+"/big.png")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Fetch() error = %v, want %s", err, errors.ErrCodeInvalidInput)
	}
}

func TestDownload(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image"))
	})
	dir := t.TempDir()

	path, err := NewDownloader(0, nil).Download(context.Background(), srv.URL+"/photos/cat.jpg?size=large", dir)
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if want := filepath.Join(dir, "cat.jpg"); path != want {
		t.Errorf("Download() path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(data) != "image" {
		t.Errorf("file content = %q, want %q", data, "image")
	}
}

func TestDownloadFailureLeavesNoFile(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	dir := t.TempDir()

	path, err := NewDownloader(0, nil).Download(context.Background(), srv.URL+"/missing.jpg", dir)
	if !errors.Is(err, errors.ErrCodeNetwork) {
		t.Fatalf("Download() error = %v, want %s", err, errors.ErrCodeNetwork)
	}
	if path != "" {
		t.Errorf("Download() path = %q, want empty", path)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("dir has %d entries, want 0", len(entries))
	}
}

func TestDownloadTruncatedBodyLeavesNoFile(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("x"), 64))
	})
	dir := t.TempDir()

	d := NewDownloader(0, nil)
	d.maxBytes = 16

	_, err := d.Download(context.Background(), srv.URL+"/big.png", dir)
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("Download() error = %v, want %s", err, errors.ErrCodeInvalidInput)
	}
	if _, err := os.Stat(filepath.Join(dir, "big.png")); !os.IsNotExist(err) {
		t.Errorf("partial file left behind: %v", err)
	}
}

func TestDownloadRejectsNamelessURL(t *testing.T) {
	_, err := NewDownloader(0, nil).Download(context.Background(), "https://example.com/", t.TempDir())
	if !errors.Is(err, errors.ErrCodeInvalidURL) {
		t.Errorf("Download() error = %v, want %s", err, errors.ErrCodeInvalidURL)
	}
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewDownloader(time.Second, nil).Fetch(context.Background(), url+"/cat.png")
	if !errors.Is(err, errors.ErrCodeNetwork) {
		t.Errorf("Fetch() error = %v, want %s", err, errors.ErrCodeNetwork)
	}
	if !strings.Contains(err.Error(), "GET") {
		t.Errorf("error %q should name the request", err)
	}
}
