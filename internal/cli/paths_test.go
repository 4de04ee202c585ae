package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCacheDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join(home, ".cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirXDG(t *testing.T) {
	custom := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", custom)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join(custom, "watermarker"); dir != want {
		t.Errorf("cacheDir() with XDG_CACHE_HOME = %q, want %q", dir, want)
	}
}

func TestNewCache(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	c, err := newCache(true)
	if err != nil {
		t.Fatalf("newCache(true) error: %v", err)
	}
	if _, ok := c.(interface{ Dir() string }); ok {
		t.Error("newCache(true) should not return a file cache")
	}

	c, err = newCache(false)
	if err != nil {
		t.Fatalf("newCache(false) error: %v", err)
	}
	fc, ok := c.(interface{ Dir() string })
	if !ok {
		t.Fatalf("newCache(false) = %T, want a file cache", c)
	}
	if want, _ := cacheDir(); fc.Dir() != want {
		t.Errorf("cache dir = %q, want %q", fc.Dir(), want)
	}
}
