// Package contentstream implements a PDF content-stream tokenizer and the
// color-operator rewriter built on top of it. Content streams are a
// stack-based drawing language, not a text format: naive regex matching
// against raw bytes breaks on numbers inside text-showing strings, operator
// letters inside literal strings, and named (non-device) color spaces. This
// package tokenizes properly instead.
package contentstream

// Kind tags a Token's lexical category.
type Kind int

const (
	KindNumber Kind = iota
	KindName
	KindLiteralString
	KindHexString
	KindArrayStart
	KindArrayEnd
	KindDictStart
	KindDictEnd
	KindOperator
	KindWhitespace
	KindComment
	KindInlineImage // opaque BI ... ID ... EI block, emitted as one token
)

// Token carries its original byte slice so that unmodified regions of a
// content stream round-trip byte for byte.
type Token struct {
	Kind Kind
	Raw  []byte // exact bytes as they appeared in the source stream

	// Num is the parsed numeric value, valid when Kind == KindNumber.
	Num float64

	// Text is a decoded form for Kind == KindName (leading '/' stripped,
	// #xx escapes decoded) and Kind == KindOperator (ASCII identifier).
	Text string
}

// Bytes returns the token's literal byte representation. For tokens whose
// Raw has not been replaced, this always equals the original input slice.
func (t Token) Bytes() []byte {
	return t.Raw
}

func newRaw(kind Kind, raw []byte) Token {
	return Token{Kind: kind, Raw: raw}
}
