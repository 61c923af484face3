// Package theme holds the fixed set of dark-mode background themes and the
// perceptual color mapper that recolors a PDF color against one of them.
package theme

import (
	"fmt"
	"math"
)

// Theme is an immutable record pairing an identifier with the background
// color that anchors near-white document chrome.
type Theme struct {
	ID         string
	Background RGB8
}

// RGB8 is an 8-bit-per-channel color, as found in the theme table.
type RGB8 struct {
	R, G, B uint8
}

// Normalized returns the background as float components in [0,1].
func (c RGB8) Normalized() (r, g, b float64) {
	return float64(c.R) / 255.0, float64(c.G) / 255.0, float64(c.B) / 255.0
}

// Hex renders the color as "#rrggbb".
func (c RGB8) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// The six built-in themes, fixed by ID. These values are load-bearing: the
// color mapper's near-white band collapses onto exactly these backgrounds.
var (
	Classic  = Theme{ID: "classic", Background: RGB8{0, 0, 0}}
	Claude   = Theme{ID: "claude", Background: RGB8{42, 37, 34}}
	ChatGPT  = Theme{ID: "chatgpt", Background: RGB8{52, 53, 65}}
	Sepia    = Theme{ID: "sepia", Background: RGB8{40, 35, 25}}
	Midnight = Theme{ID: "midnight", Background: RGB8{25, 30, 45}}
	Forest   = Theme{ID: "forest", Background: RGB8{25, 35, 30}}
)

// All lists the six built-in themes for CLI/HTTP enumeration (e.g. the
// `themes` subcommand, the HTTP theme check).
var All = []Theme{Classic, Claude, ChatGPT, Sepia, Midnight, Forest}

var byID = map[string]Theme{
	Classic.ID:  Classic,
	Claude.ID:   Claude,
	ChatGPT.ID:  ChatGPT,
	Sepia.ID:    Sepia,
	Midnight.ID: Midnight,
	Forest.ID:   Forest,
}

// Resolve looks up a theme by its case-sensitive ID. An unknown ID falls
// back to Classic with no error, per the `process` entry point's contract.
func Resolve(id string) Theme {
	if t, ok := byID[id]; ok {
		return t
	}
	return Classic
}

// clamp01 clamps a float64 into [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Gray is a single-channel color in [0,1].
type Gray struct{ V float64 }

// RGB is a three-channel color, each component in [0,1].
type RGB struct{ R, G, B float64 }

// CMYK is a four-channel color, each component in [0,1].
type CMYK struct{ C, M, Y, K float64 }

// luminance is the Rec. 601 weighted sum used for band gating.
func luminance(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

// rgbToHSV converts RGB in [0,1] to HSV with H in [0,1), achromatic inputs
// reporting H=0.
func rgbToHSV(r, g, b float64) (h, s, v float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	d := max - min
	v = max

	if max == 0 {
		s = 0
	} else {
		s = d / max
	}

	if d == 0 {
		h = 0
		return
	}

	switch max {
	case r:
		h = math.Mod((g-b)/d, 6)
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	h /= 6
	if h < 0 {
		h += 1
	}
	return
}

func hsvToRGB(h, s, v float64) (r, g, b float64) {
	if s <= 0 {
		return v, v, v
	}
	h = math.Mod(h, 1) * 6
	if h < 0 {
		h += 6
	}
	i := math.Floor(h)
	f := h - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	switch int(i) % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}

// MapRGB applies a piecewise mapping over luminance bands that flips
// near-white document chrome to the theme background and brightens
// near-black/dark colors without destroying hue.
func MapRGB(c RGB, th Theme) RGB {
	r, g, b := clamp01(c.R), clamp01(c.G), clamp01(c.B)
	y := luminance(r, g, b)

	if y > 0.93 {
		br, bg, bb := th.Background.Normalized()
		return RGB{br, bg, bb}
	}

	h, s, v := rgbToHSV(r, g, b)

	if y < 0.15 {
		if s < 0.30 {
			return RGB{0.98, 0.98, 0.98}
		}
		v2 := 0.65 + (v/0.15)*0.20
		s2 := math.Min(s*1.10, 1)
		nr, ng, nb := hsvToRGB(h, s2, clamp01(v2))
		return RGB{clamp01(nr), clamp01(ng), clamp01(nb)}
	}

	if y < 0.40 {
		v2 := 0.75 + (v-0.15)*0.80
		s2 := s * 0.85
		nr, ng, nb := hsvToRGB(h, s2, clamp01(v2))
		return RGB{clamp01(nr), clamp01(ng), clamp01(nb)}
	}

	if y < 0.60 {
		v2 := 0.65 + (v-0.40)*1.00
		s2 := s * 0.90
		nr, ng, nb := hsvToRGB(h, s2, clamp01(v2))
		return RGB{clamp01(nr), clamp01(ng), clamp01(nb)}
	}

	v2 := 0.5 + v*0.5
	nr, ng, nb := hsvToRGB(h, s, clamp01(v2))
	return RGB{clamp01(nr), clamp01(ng), clamp01(nb)}
}

// MapGray mirrors the RGB bands with a scalar ramp in place of hue/saturation.
func MapGray(c Gray, th Theme) Gray {
	v := clamp01(c.V)
	y := v // for a gray input, luminance equals the value itself

	if y > 0.93 {
		br, bg, bb := th.Background.Normalized()
		return Gray{luminance(br, bg, bb)}
	}
	if y < 0.15 {
		return Gray{0.98}
	}
	if y < 0.40 {
		return Gray{clamp01(0.75 + (v-0.15)*0.80)}
	}
	if y < 0.60 {
		return Gray{clamp01(0.65 + (v-0.40)*1.00)}
	}
	return Gray{clamp01(0.5 + v*0.5)}
}

// MapCMYK converts to RGB, maps, and converts back.
func MapCMYK(c CMYK, th Theme) CMYK {
	cc, mm, yy, kk := clamp01(c.C), clamp01(c.M), clamp01(c.Y), clamp01(c.K)
	r := (1 - cc) * (1 - kk)
	g := (1 - mm) * (1 - kk)
	b := (1 - yy) * (1 - kk)

	mapped := MapRGB(RGB{r, g, b}, th)

	return rgbToCMYK(mapped.R, mapped.G, mapped.B)
}

func rgbToCMYK(r, g, b float64) CMYK {
	k := 1 - math.Max(r, math.Max(g, b))
	if k >= 1 {
		return CMYK{0, 0, 0, 1}
	}
	c := (1 - r - k) / (1 - k)
	m := (1 - g - k) / (1 - k)
	y := (1 - b - k) / (1 - k)
	return CMYK{clamp01(c), clamp01(m), clamp01(y), clamp01(k)}
}

// CMYKToRGB is exposed for tests that compare CMYK round-trips against the
// RGB path directly.
func CMYKToRGB(c CMYK) RGB {
	cc, mm, yy, kk := clamp01(c.C), clamp01(c.M), clamp01(c.Y), clamp01(c.K)
	return RGB{
		R: (1 - cc) * (1 - kk),
		G: (1 - mm) * (1 - kk),
		B: (1 - yy) * (1 - kk),
	}
}
