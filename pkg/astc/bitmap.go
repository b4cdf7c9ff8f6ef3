// Package astc holds ASTC block-compressed bitmap content and .astc file parsing.
package astc

import (
	"errors"
	"fmt"

	"github.com/user/supervideo/pkg/ports"
)

var (
	// ErrNotAstc is returned when a non-ASTC surface format is used.
	ErrNotAstc = errors.New("astc: format is not ASTC")
	// ErrNoData is returned by PixelData before any data was set.
	ErrNoData = errors.New("astc: no data set on bitmap")
	// ErrSizeMismatch is returned when pixel data does not match the block layout.
	ErrSizeMismatch = errors.New("astc: data size does not match dimensions")
)

// BitmapContent is an ASTC-compressed image at a fixed block footprint.
type BitmapContent struct {
	format ports.SurfaceFormat
	width  int
	height int
	data   []byte
}

// NewBitmapContent creates empty content for one of the ASTC formats.
func NewBitmapContent(format ports.SurfaceFormat, width, height int) (*BitmapContent, error) {
	if !format.IsAstc() {
		return nil, fmt.Errorf("%w: %s", ErrNotAstc, format)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ports.ErrInvalidArgument, width, height)
	}
	return &BitmapContent{format: format, width: width, height: height}, nil
}

func (b *BitmapContent) Width() int  { return b.width }
func (b *BitmapContent) Height() int { return b.height }

// TryGetFormat returns the surface format. ASTC content always has one.
func (b *BitmapContent) TryGetFormat() (ports.SurfaceFormat, bool) {
	return b.format, true
}

// DataSize is the byte length of the compressed payload.
func (b *BitmapContent) DataSize() int {
	return b.format.BytesFor(b.width, b.height)
}

// PixelData returns a copy of the compressed payload.
func (b *BitmapContent) PixelData() ([]byte, error) {
	if b.data == nil {
		return nil, ErrNoData
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, nil
}

// SetPixelData stores the compressed payload without copying it.
func (b *BitmapContent) SetPixelData(data []byte) error {
	if len(data) != b.DataSize() {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(data), b.DataSize())
	}
	b.data = data
	return nil
}

// TryCopyFrom always fails; ASTC content cannot be converted in place.
func (b *BitmapContent) TryCopyFrom(src *BitmapContent) bool {
	return false
}

// TryCopyTo always fails; ASTC content cannot be converted in place.
func (b *BitmapContent) TryCopyTo(dst *BitmapContent) bool {
	return false
}

func (b *BitmapContent) String() string {
	bw, bh := b.format.BlockSize()
	kind := "ARGB"
	if b.format.IsSRGB() {
		kind = "SRGBA"
	}
	return fmt.Sprintf("ASTC %s %dx%d %dx%d", kind, bw, bh, b.width, b.height)
}

// Upload creates a texture on dev holding the compressed payload.
func Upload(dev ports.GraphicsDevice, b *BitmapContent) (ports.Texture, error) {
	data, err := b.PixelData()
	if err != nil {
		return nil, err
	}
	tex, err := dev.NewTexture(b.width, b.height, b.format)
	if err != nil {
		return nil, fmt.Errorf("create texture: %w", err)
	}
	if err := tex.SetData(data); err != nil {
		tex.Dispose()
		return nil, fmt.Errorf("upload astc: %w", err)
	}
	return tex, nil
}
