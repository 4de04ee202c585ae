package watermark

import (
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"

	"github.com/matzehuels/watermarker/pkg/errors"
)

// DefaultColor is the caption color, CSS hotpink (#ff69b4).
var DefaultColor color.Color = colornames.Hotpink

// ParseColor accepts a CSS/SVG color name ("hotpink", "Navy") or a hex
// triplet ("#ff69b4", "#f6b"). Hex colors are opaque.
func ParseColor(s string) (color.Color, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return nil, errors.New(errors.ErrCodeInvalidColor, "color cannot be empty")
	}
	if c, ok := colornames.Map[name]; ok {
		return c, nil
	}

	if !strings.HasPrefix(name, "#") {
		name = "#" + name
	}
	if len(name) != 4 && len(name) != 7 {
		return nil, errors.New(errors.ErrCodeInvalidColor, "unknown color %q", s)
	}
	c, err := colorful.Hex(name)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidColor, err, "unknown color %q", s)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
