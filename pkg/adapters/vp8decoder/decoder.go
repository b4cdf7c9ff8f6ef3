// Package vp8decoder decodes VP8 streams in pure Go with golang.org/x/image/vp8.
// Only key frames carry picture data; inter frames repeat the last key frame.
package vp8decoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/user/supervideo/pkg/ports"
	"golang.org/x/image/vp8"
)

// Mime is the media type handled by this decoder.
const Mime = "video/x-vnd.on2.vp8"

// ErrNotInitialized is returned when decoding before Init.
var ErrNotInitialized = errors.New("vp8decoder: decoder not initialized")

// Decoder implements ports.FrameDecoder.
type Decoder struct {
	logger ports.Logger
	dec    *vp8.Decoder
	last   *image.YCbCr
	warned bool
}

// New creates an uninitialized decoder.
func New(logger ports.Logger) *Decoder {
	return &Decoder{logger: logger}
}

// Init prepares the decoder for a VP8 stream.
func (d *Decoder) Init(source ports.MediaSource) error {
	if source.MimeType != Mime {
		return fmt.Errorf("%w: %s", ports.ErrUnsupportedCodec, source.MimeType)
	}
	d.dec = vp8.NewDecoder()
	d.last = nil
	return nil
}

// isKeyFrame reads the frame tag: bit 0 is clear for key frames.
func isKeyFrame(data []byte) bool {
	return len(data) > 0 && data[0]&1 == 0
}

// Decode decodes one VP8 frame.
func (d *Decoder) Decode(data []byte) ([]image.Image, error) {
	if d.dec == nil {
		return nil, ErrNotInitialized
	}
	if !isKeyFrame(data) {
		if d.last == nil {
			if !d.warned {
				d.logger.Debug("Skipping inter frame without key frame")
				d.warned = true
			}
			return nil, nil
		}
		return []image.Image{d.last}, nil
	}

	d.dec.Init(bytes.NewReader(data), len(data))
	if _, err := d.dec.DecodeFrameHeader(); err != nil {
		return nil, fmt.Errorf("decode frame header: %w", err)
	}
	img, err := d.dec.DecodeFrame()
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	d.last = cloneYCbCr(img)
	return []image.Image{d.last}, nil
}

// Flush returns nothing; the decoder holds no delayed frames.
func (d *Decoder) Flush() ([]image.Image, error) {
	return nil, nil
}

// Close releases the decoder.
func (d *Decoder) Close() {
	d.dec = nil
	d.last = nil
}

// cloneYCbCr copies img since the vp8 decoder reuses its output buffer.
func cloneYCbCr(img *image.YCbCr) *image.YCbCr {
	out := image.NewYCbCr(img.Rect, img.SubsampleRatio)
	copy(out.Y, img.Y)
	copy(out.Cb, img.Cb)
	copy(out.Cr, img.Cr)
	out.YStride = img.YStride
	out.CStride = img.CStride
	return out
}

var _ ports.FrameDecoder = (*Decoder)(nil)
