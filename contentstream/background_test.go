package contentstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duskpdf/theme"
)

func TestBackgroundIsBalancedAndFillsMediaBox(t *testing.T) {
	frag := Background(theme.Midnight, 0, 0, 612, 792)

	toks, err := Tokenize(frag)
	require.NoError(t, err)
	require.NotEmpty(t, toks)
	assert.Equal(t, KindOperator, toks[0].Kind)
	assert.Equal(t, "q", toks[0].Text)
	// The fragment ends with a newline so that it stays separated from the
	// page content it is prepended to; Q is the last non-whitespace token.
	last := len(toks) - 1
	for last > 0 && toks[last].Kind == KindWhitespace {
		last--
	}
	assert.Equal(t, KindOperator, toks[last].Kind)
	assert.Equal(t, "Q", toks[last].Text)

	var ops []string
	for _, tok := range toks {
		if tok.Kind == KindOperator {
			ops = append(ops, tok.Text)
		}
	}
	assert.Equal(t, []string{"q", "rg", "re", "f", "Q"}, ops)
}

func TestBackgroundUsesMediaBoxOrigin(t *testing.T) {
	frag := Background(theme.Forest, 10, 20, 300, 400)
	assert.Contains(t, string(frag), "10 20 300 400 re")
}

func TestBackgroundUsesThemeColor(t *testing.T) {
	r, g, b := theme.Sepia.Background.Normalized()
	frag := Background(theme.Sepia, 0, 0, 1, 1)
	s := string(frag)
	assert.Contains(t, s, formatNumber(r))
	assert.Contains(t, s, formatNumber(g))
	assert.Contains(t, s, formatNumber(b))
}
