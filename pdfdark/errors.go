// Package pdfdark implements the core in-process PDF recoloring pipeline:
// document loader, page iterator, background injector, and operator
// rewriter wired together over github.com/pdfcpu/pdfcpu's object model.
package pdfdark

import "errors"

// Sentinel errors distinguishing unrecoverable failures from internal,
// recovered-from conditions. ErrParse and ErrSerialize propagate out of
// Process and abort the conversion; ErrUnsupportedColorSpace is never
// returned to a caller, and nothing in the package returns it: an sc/scn
// against a non-device color space is passed through without an error.
var (
	// ErrParse indicates the input bytes are not a valid PDF, or a
	// document-level structure (page tree, xref) could not be read.
	ErrParse = errors.New("pdfdark: parse error")

	// ErrUnsupportedColorSpace marks an sc/scn operand set against a
	// non-device color space. Never fatal: the operator is passed through.
	ErrUnsupportedColorSpace = errors.New("pdfdark: unsupported color space")

	// ErrSerialize indicates the saver could not produce output bytes.
	ErrSerialize = errors.New("pdfdark: serialize error")
)
