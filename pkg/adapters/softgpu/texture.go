package softgpu

import (
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/fogleman/gg"

	"github.com/user/supervideo/pkg/ports"
)

// Texture is a CPU-resident texture.
type Texture struct {
	dev      *Device
	mu       sync.RWMutex
	width    int
	height   int
	format   ports.SurfaceFormat
	pix      []byte
	disposed atomic.Bool
}

func newTexture(dev *Device, w, h int, format ports.SurfaceFormat) *Texture {
	dev.created.Add(1)
	return &Texture{
		dev:    dev,
		width:  w,
		height: h,
		format: format,
		pix:    make([]byte, format.BytesFor(w, h)),
	}
}

func (t *Texture) Width() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.width
}

func (t *Texture) Height() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.height
}

func (t *Texture) Format() ports.SurfaceFormat { return t.format }

// SetData replaces the whole payload.
func (t *Texture) SetData(data []byte) error {
	if t.disposed.Load() {
		return ports.ErrDisposed
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(data) != len(t.pix) {
		return fmt.Errorf("%w: %s %dx%d needs %d bytes, got %d",
			ports.ErrInvalidArgument, t.format, t.width, t.height, len(t.pix), len(data))
	}
	copy(t.pix, data)
	return nil
}

// SetDataRange copies count bytes of data into the payload at offset.
func (t *Texture) SetDataRange(data []byte, offset, count int) error {
	if t.disposed.Load() {
		return ports.ErrDisposed
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if offset < 0 || count < 0 || count > len(data) || offset+count > len(t.pix) {
		return fmt.Errorf("%w: range %d+%d outside %d bytes", ports.ErrInvalidArgument, offset, count, len(t.pix))
	}
	copy(t.pix[offset:offset+count], data[:count])
	return nil
}

// GetData copies the payload into dst.
func (t *Texture) GetData(dst []byte) error {
	if t.disposed.Load() {
		return ports.ErrDisposed
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(dst) < len(t.pix) {
		return fmt.Errorf("%w: need %d bytes, got %d", ports.ErrInvalidArgument, len(t.pix), len(dst))
	}
	copy(dst, t.pix)
	return nil
}

func (t *Texture) Dispose() {
	if t.disposed.CompareAndSwap(false, true) {
		t.dev.disposed.Add(1)
	}
}

func (t *Texture) IsDisposed() bool { return t.disposed.Load() }

// Image returns the texture decoded to RGBA.
func (t *Texture) Image() *image.RGBA {
	t.mu.RLock()
	defer t.mu.RUnlock()
	img := image.NewRGBA(image.Rect(0, 0, t.width, t.height))
	switch t.format {
	case ports.Color, ports.ExternalOES:
		copy(img.Pix, t.pix)
	default:
		s := sampler{}
		for y := 0; y < t.height; y++ {
			for x := 0; x < t.width; x++ {
				v := s.texel(t, x, y)
				img.SetRGBA(x, y, toRGBA(v))
			}
		}
	}
	return img
}

// rgba views Color storage as an image. Callers hold t.mu.
func (t *Texture) rgba() *image.RGBA {
	return &image.RGBA{Pix: t.pix, Stride: 4 * t.width, Rect: image.Rect(0, 0, t.width, t.height)}
}

// RenderTarget is a Color texture usable as a draw destination.
type RenderTarget struct {
	*Texture
}

// Clear fills the target with c.
func (rt *RenderTarget) Clear(c color.Color) {
	if rt.disposed.Load() {
		return
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	dc := gg.NewContextForRGBA(rt.rgba())
	dc.SetColor(c)
	dc.Clear()
}

// ExternalTexture is filled by an external surface.
type ExternalTexture struct {
	*Texture
}

// Resize reallocates storage.
func (et *ExternalTexture) Resize(w, h int) {
	et.mu.Lock()
	defer et.mu.Unlock()
	et.width, et.height = w, h
	et.pix = make([]byte, et.format.BytesFor(w, h))
}

var (
	_ ports.Texture         = (*Texture)(nil)
	_ ports.RenderTarget    = (*RenderTarget)(nil)
	_ ports.ExternalTexture = (*ExternalTexture)(nil)
)
