package colors

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is RGBA with components in [0..1].
type Color [4]float32

var (
	White    = Color{1, 1, 1, 1}
	Red      = Color{1, 0, 0, 1}
	Green    = Color{0, 1, 0, 1}
	Blue     = Color{0, 0, 1, 1}
	Black    = Color{0, 0, 0, 1}
	DarkGray = Color{0.08, 0.10, 0.12, 1}
)

// ParseHex reads "#rrggbb" or "#rgb" (the '#' is optional) as an opaque
// sRGB color.
func ParseHex(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) != 4 && len(s) != 7 {
		return Color{}, fmt.Errorf("parse color %q: want #rgb or #rrggbb", s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	return Color{float32(c.R), float32(c.G), float32(c.B), 1}, nil
}

func (c Color) WithAlpha(a float32) Color {
	c[3] = a
	return c
}

// Linear converts sRGB-encoded components to linear light. Alpha is kept.
func (c Color) Linear() Color {
	r, g, b := c.colorful().LinearRgb()
	return Color{float32(r), float32(g), float32(b), c[3]}
}

func (c Color) Hex() string { return c.colorful().Hex() }

// RGB drops alpha.
func (c Color) RGB() [3]float32 { return [3]float32{c[0], c[1], c[2]} }

func (c Color) colorful() colorful.Color {
	return colorful.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2])}
}
