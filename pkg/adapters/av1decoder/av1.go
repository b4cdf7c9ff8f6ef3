// Package av1decoder decodes AV1 streams with libaom. The libaom backend is
// compiled only with cgo and the "aom" build tag; other builds report the
// codec as unsupported.
package av1decoder

import "errors"

// Mime is the media type handled by this decoder.
const Mime = "video/av01"

var (
	// ErrNotInitialized is returned when decoding before Init.
	ErrNotInitialized = errors.New("av1decoder: decoder not initialized")
	// ErrHighBitDepth is returned for streams above 8 bits per sample.
	ErrHighBitDepth = errors.New("av1decoder: high bit depth output is not supported")
)
