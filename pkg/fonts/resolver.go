package fonts

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/flopp/go-findfont"
	"github.com/golang/freetype/truetype"

	"github.com/matzehuels/watermarker/pkg/cache"
	"github.com/matzehuels/watermarker/pkg/errors"
	"github.com/matzehuels/watermarker/pkg/observability"
)

// pathTTL is how long a resolved font path stays cached.
const pathTTL = 30 * 24 * time.Hour

// Resolver loads fonts by family name. It is safe for concurrent use.
type Resolver struct {
	cache  cache.Cache
	keyer  cache.Keyer
	logger *log.Logger

	// find locates a font file by name; findfont.Find outside tests.
	find func(name string) (string, error)

	mu     sync.Mutex
	parsed map[string]*truetype.Font // by file path
}

// NewResolver creates a resolver backed by c.
// A nil cache disables path memoization; a nil logger discards output.
func NewResolver(c cache.Cache, logger *log.Logger) *Resolver {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Resolver{
		cache:  c,
		keyer:  cache.NewDefaultKeyer(),
		logger: logger,
		find:   findfont.Find,
		parsed: make(map[string]*truetype.Font),
	}
}

// Load returns family at the given point size.
//
// Errors:
//   - INVALID_INPUT when family is blank or size is not positive
//   - FONT_NOT_FOUND when no file matches or the match is not a parsable
//     TrueType font (TrueType collections and CFF-flavored OpenType fonts are
//     not supported)
func (r *Resolver) Load(ctx context.Context, family string, size float64) (Font, error) {
	if strings.TrimSpace(family) == "" {
		return Font{}, errors.New(errors.ErrCodeInvalidInput, "font family cannot be empty")
	}
	if !(size > 0) {
		return Font{}, errors.New(errors.ErrCodeInvalidInput, "font size must be positive, got %v", size)
	}

	ttf, ok, err := embedded(family)
	if err != nil {
		return Font{}, errors.Wrap(errors.ErrCodeInternal, err, "parse embedded font %q", family)
	}
	if ok {
		r.logger.Debug("using embedded font", "family", family)
		return New(family, ttf, size), nil
	}

	path, err := r.Locate(ctx, family)
	if err != nil {
		return Font{}, err
	}

	ttf, err = r.parse(path)
	if err != nil {
		// A stale cache entry may point at a file that changed; forget it.
		_ = r.cache.Delete(ctx, r.keyer.FontKey(family))
		return Font{}, errors.Wrap(errors.ErrCodeFontNotFound, err, "font %q at %s is not a usable TrueType font", family, path)
	}
	return New(family, ttf, size), nil
}

// Locate resolves family to a font file path without parsing it.
func (r *Resolver) Locate(ctx context.Context, family string) (string, error) {
	key := r.keyer.FontKey(family)

	if data, hit, err := r.cache.Get(ctx, key); err == nil && hit {
		path := string(data)
		if _, statErr := os.Stat(path); statErr == nil {
			observability.Cache().OnCacheHit(ctx, "font")
			r.logger.Debug("font path from cache", "family", family, "path", path)
			return path, nil
		}
		_ = r.cache.Delete(ctx, key)
	}
	observability.Cache().OnCacheMiss(ctx, "font")

	var lastErr error
	for _, name := range candidates(family) {
		path, err := r.find(name)
		if err != nil {
			lastErr = err
			continue
		}
		r.logger.Debug("found font", "family", family, "path", path)
		if err := r.cache.Set(ctx, key, []byte(path), pathTTL); err != nil {
			r.logger.Warn("cache font path", "family", family, "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "font", len(path))
		}
		return path, nil
	}

	return "", errors.Wrap(errors.ErrCodeFontNotFound, lastErr, "font family %q is not installed", family)
}

func (r *Resolver) parse(path string) (*truetype.Font, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.parsed[path]; ok {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, err
	}
	r.parsed[path] = f
	return f, nil
}

// candidates returns file names to try for a family, most specific first.
// A family that already carries a font extension is used as-is.
func candidates(family string) []string {
	family = strings.TrimSpace(family)
	switch strings.ToLower(filepath.Ext(family)) {
	case ".ttf", ".otf", ".ttc":
		return []string{family}
	}

	names := []string{family + ".ttf"}
	if squashed := strings.ReplaceAll(family, " ", ""); squashed != family {
		names = append(names, squashed+".ttf")
	}
	if dashed := strings.ReplaceAll(family, " ", "-"); dashed != family {
		names = append(names, dashed+".ttf")
	}
	return names
}

// List returns installed font files whose name contains query
// (case-insensitive). An empty query lists everything.
func List(query string) []string {
	query = strings.ToLower(query)
	var out []string
	for _, path := range findfont.List() {
		if query == "" || strings.Contains(strings.ToLower(filepath.Base(path)), query) {
			out = append(out, path)
		}
	}
	return out
}
