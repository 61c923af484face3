package contentstream

import (
	"strconv"
	"strings"

	"duskpdf/theme"
)

// DeviceSpace names one of the three built-in device color spaces recognized
// for sc/scn arity resolution, or "unknown" for anything neither the rewriter
// nor its ColorSpaceResolver maps to one (indexed, separation, pattern, ...),
// which the rewriter must leave alone.
type DeviceSpace int

const (
	SpaceUnknown DeviceSpace = iota
	SpaceGray
	SpaceRGB
	SpaceCMYK
)

func spaceArity(s DeviceSpace) int {
	switch s {
	case SpaceGray:
		return 1
	case SpaceRGB:
		return 3
	case SpaceCMYK:
		return 4
	default:
		return 0
	}
}

// ColorSpaceResolver maps a named color-space resource (as it appears after
// cs/CS, decoded without its leading slash) back to a device space, by
// consulting the page's /Resources /ColorSpace dictionary. A nil resolver
// means only the names the rewriter knows itself are recognized: the three
// device space names, their G/RGB/CMYK abbreviations, CalGray and CalRGB.
type ColorSpaceResolver func(name string) DeviceSpace

// Rewriter scans a token sequence and rewrites color-setting operators
// through a theme's color mapper.
type Rewriter struct {
	Theme   theme.Theme
	Resolve ColorSpaceResolver
}

type gstateFrame struct {
	nonStroke, stroke DeviceSpace
}

// Rewrite returns a new token slice with every recognized color operator's
// numeric operands replaced. Tokens outside an operand run of a matched
// operator are returned unchanged (same Raw slice, same identity).
func (r *Rewriter) Rewrite(toks []Token) []Token {
	out := make([]Token, 0, len(toks))
	var pending []int // indices into out holding the current operand run

	nonStroke, stroke := SpaceGray, SpaceGray
	var stack []gstateFrame

	clear := func() { pending = pending[:0] }

	resolve := func(name string) DeviceSpace {
		switch name {
		case "DeviceGray", "CalGray", "G":
			return SpaceGray
		case "DeviceRGB", "CalRGB", "RGB":
			return SpaceRGB
		case "DeviceCMYK", "CMYK":
			return SpaceCMYK
		case "Pattern":
			return SpaceUnknown
		}
		if r.Resolve != nil {
			return r.Resolve(name)
		}
		return SpaceUnknown
	}

	for _, t := range toks {
		switch t.Kind {
		case KindWhitespace, KindComment:
			out = append(out, t)

		case KindNumber, KindName:
			out = append(out, t)
			pending = append(pending, len(out)-1)

		case KindOperator:
			switch t.Text {
			case "g", "G":
				r.rewriteGray(out, pending)
				out = append(out, t)
				clear()
			case "rg", "RG":
				r.rewriteRGB(out, pending)
				out = append(out, t)
				clear()
			case "k", "K":
				r.rewriteCMYK(out, pending)
				out = append(out, t)
				clear()
			case "sc":
				r.rewriteDeviceColor(out, pending, nonStroke)
				out = append(out, t)
				clear()
			case "SC":
				r.rewriteDeviceColor(out, pending, stroke)
				out = append(out, t)
				clear()
			case "scn":
				r.rewriteScn(out, pending, nonStroke)
				out = append(out, t)
				clear()
			case "SCN":
				r.rewriteScn(out, pending, stroke)
				out = append(out, t)
				clear()
			case "cs", "CS":
				if len(pending) > 0 {
					last := out[pending[len(pending)-1]]
					if last.Kind == KindName {
						sp := resolve(last.Text)
						if t.Text == "cs" {
							nonStroke = sp
						} else {
							stroke = sp
						}
					}
				}
				out = append(out, t)
				clear()
			case "q":
				stack = append(stack, gstateFrame{nonStroke, stroke})
				out = append(out, t)
				clear()
			case "Q":
				if n := len(stack); n > 0 {
					top := stack[n-1]
					stack = stack[:n-1]
					nonStroke, stroke = top.nonStroke, top.stroke
				}
				out = append(out, t)
				clear()
			default:
				out = append(out, t)
				clear()
			}

		default: // array/dict delimiters, strings, inline images
			out = append(out, t)
			clear()
		}
	}

	return out
}

// allNumbers reports whether every index in pending names a Number token.
func allNumbers(out []Token, pending []int) bool {
	for _, idx := range pending {
		if out[idx].Kind != KindNumber {
			return false
		}
	}
	return true
}

func (r *Rewriter) rewriteGray(out []Token, pending []int) {
	if len(pending) != 1 || !allNumbers(out, pending) {
		return
	}
	mapped := theme.MapGray(theme.Gray{V: out[pending[0]].Num}, r.Theme)
	out[pending[0]] = numberToken(mapped.V)
}

func (r *Rewriter) rewriteRGB(out []Token, pending []int) {
	if len(pending) != 3 || !allNumbers(out, pending) {
		return
	}
	mapped := theme.MapRGB(theme.RGB{
		R: out[pending[0]].Num,
		G: out[pending[1]].Num,
		B: out[pending[2]].Num,
	}, r.Theme)
	out[pending[0]] = numberToken(mapped.R)
	out[pending[1]] = numberToken(mapped.G)
	out[pending[2]] = numberToken(mapped.B)
}

func (r *Rewriter) rewriteCMYK(out []Token, pending []int) {
	if len(pending) != 4 || !allNumbers(out, pending) {
		return
	}
	mapped := theme.MapCMYK(theme.CMYK{
		C: out[pending[0]].Num,
		M: out[pending[1]].Num,
		Y: out[pending[2]].Num,
		K: out[pending[3]].Num,
	}, r.Theme)
	out[pending[0]] = numberToken(mapped.C)
	out[pending[1]] = numberToken(mapped.M)
	out[pending[2]] = numberToken(mapped.Y)
	out[pending[3]] = numberToken(mapped.K)
}

// rewriteDeviceColor handles sc/SC: arity is fixed by the currently active
// color space; anything else (named, pattern, unresolved) passes through.
func (r *Rewriter) rewriteDeviceColor(out []Token, pending []int, space DeviceSpace) {
	arity := spaceArity(space)
	if arity == 0 || len(pending) != arity || !allNumbers(out, pending) {
		return
	}
	switch space {
	case SpaceGray:
		r.rewriteGray(out, pending)
	case SpaceRGB:
		r.rewriteRGB(out, pending)
	case SpaceCMYK:
		r.rewriteCMYK(out, pending)
	}
}

// rewriteScn handles scn/SCN: a trailing Name operand means a pattern fill,
// which passes through untouched; otherwise it behaves like sc/SC.
func (r *Rewriter) rewriteScn(out []Token, pending []int, space DeviceSpace) {
	if len(pending) == 0 {
		return
	}
	if out[pending[len(pending)-1]].Kind == KindName {
		return
	}
	r.rewriteDeviceColor(out, pending, space)
}

// numberToken formats v with up to 6 fractional digits, trailing zeros
// trimmed, and at least one digit (so 0 renders as "0", not "").
func numberToken(v float64) Token {
	s := formatNumber(v)
	f, _ := strconv.ParseFloat(s, 64)
	return Token{Kind: KindNumber, Raw: []byte(s), Num: f}
}

func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	if s == "" || s == "-" || s == "-0" {
		s = "0"
	}
	return s
}

// Serialize concatenates every token's raw bytes back into a byte stream.
func Serialize(toks []Token) []byte {
	n := 0
	for _, t := range toks {
		n += len(t.Raw)
	}
	buf := make([]byte, 0, n)
	for _, t := range toks {
		buf = append(buf, t.Raw...)
	}
	return buf
}
