package contentstream

import (
	"fmt"

	"duskpdf/theme"
)

// Background builds the background-fill prologue fragment: a filled
// rectangle covering the media box in the theme's background color, wrapped
// in a balanced q/Q pair so it cannot leak graphics state into the page's
// own drawing operators.
//
// x0, y0, w, h describe the media box rectangle in the page's own
// coordinate space; the rectangle origin tracks the media box's lower-left
// corner rather than assuming it is (0,0).
func Background(th theme.Theme, x0, y0, w, h float64) []byte {
	r, g, b := th.Background.Normalized()
	return []byte(fmt.Sprintf("q\n%s %s %s rg\n%s %s %s %s re f\nQ\n",
		formatNumber(r), formatNumber(g), formatNumber(b),
		formatNumber(x0), formatNumber(y0), formatNumber(w), formatNumber(h)))
}
