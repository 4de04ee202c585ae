package fonts

import (
	"sort"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// embeddedTTF maps normalized family names to the Go font data bundled with
// golang.org/x/image.
var embeddedTTF = map[string][]byte{
	"go":         goregular.TTF,
	"go regular": goregular.TTF,
	"go bold":    gobold.TTF,
	"go italic":  goitalic.TTF,
	"go medium":  gomedium.TTF,
	"go mono":    gomono.TTF,
}

var (
	embeddedMu     sync.Mutex
	embeddedParsed = map[string]*truetype.Font{}
)

// normalizeFamily lowercases and collapses whitespace so "Go  Bold" and
// "go bold" name the same family.
func normalizeFamily(family string) string {
	return strings.ToLower(strings.Join(strings.Fields(family), " "))
}

// IsEmbedded reports whether family is served from the bundled Go fonts.
func IsEmbedded(family string) bool {
	_, ok := embeddedTTF[normalizeFamily(family)]
	return ok
}

// EmbeddedFamilies returns the bundled family names, sorted.
func EmbeddedFamilies() []string {
	names := make([]string, 0, len(embeddedTTF))
	for name := range embeddedTTF {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// embedded returns the parsed typeface for an embedded family.
// Each family is parsed at most once per process.
func embedded(family string) (*truetype.Font, bool, error) {
	key := normalizeFamily(family)
	data, ok := embeddedTTF[key]
	if !ok {
		return nil, false, nil
	}

	embeddedMu.Lock()
	defer embeddedMu.Unlock()
	if f, ok := embeddedParsed[key]; ok {
		return f, true, nil
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, true, err
	}
	embeddedParsed[key] = f
	return f, true, nil
}

// Fallback returns the embedded Go Regular font at the given size.
func Fallback(size float64) Font {
	ttf, _, err := embedded("go")
	if err != nil {
		panic("fonts: embedded Go Regular failed to parse: " + err.Error())
	}
	return New("Go", ttf, size)
}
