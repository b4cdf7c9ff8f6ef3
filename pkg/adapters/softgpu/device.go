// Package softgpu provides a CPU graphics device.
// Textures live in memory, sprite batches run shaders per pixel and the
// back buffer is an RGBA image that can be saved with gg.
package softgpu

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/fogleman/gg"

	"github.com/user/supervideo/pkg/ports"
)

// Stats counts device activity.
type Stats struct {
	Invocations uint64
	Created     int64
	Disposed    int64
}

// Device implements ports.GraphicsDevice.
type Device struct {
	// ctx serializes Invoke calls like a single GPU thread.
	ctx sync.Mutex

	mu       sync.Mutex
	back     *RenderTarget
	target   *RenderTarget
	viewport ports.Viewport

	invocations atomic.Uint64
	created     atomic.Int64
	disposed    atomic.Int64
}

// NewDevice creates a device with a w x h back buffer.
func NewDevice(w, h int) (*Device, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: back buffer %dx%d", ports.ErrInvalidArgument, w, h)
	}
	d := &Device{}
	d.back = &RenderTarget{newTexture(d, w, h, ports.Color)}
	d.viewport = ports.Viewport{Width: w, Height: h}
	return d, nil
}

// NewTexture creates a texture.
func (d *Device) NewTexture(w, h int, format ports.SurfaceFormat) (ports.Texture, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: texture %dx%d", ports.ErrInvalidArgument, w, h)
	}
	return newTexture(d, w, h, format), nil
}

// NewRenderTarget creates a Color render target.
func (d *Device) NewRenderTarget(w, h int) (ports.RenderTarget, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: render target %dx%d", ports.ErrInvalidArgument, w, h)
	}
	return &RenderTarget{newTexture(d, w, h, ports.Color)}, nil
}

// NewExternalTexture creates an empty external texture.
func (d *Device) NewExternalTexture() (ports.ExternalTexture, error) {
	return &ExternalTexture{newTexture(d, 0, 0, ports.ExternalOES)}, nil
}

// NewSpriteBatch creates a sprite batch drawing into the bound target.
func (d *Device) NewSpriteBatch() ports.SpriteBatch {
	return &SpriteBatch{dev: d}
}

// RenderTarget returns the bound target, or nil for the back buffer.
func (d *Device) RenderTarget() ports.RenderTarget {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.target == nil {
		return nil
	}
	return d.target
}

// SetRenderTarget binds rt and resets the viewport to its size.
// A nil rt binds the back buffer.
func (d *Device) SetRenderTarget(rt ports.RenderTarget) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.target = nil
	dst := d.back
	if rt != nil {
		if t, ok := rt.(*RenderTarget); ok {
			d.target = t
			dst = t
		}
	}
	d.viewport = ports.Viewport{Width: dst.Width(), Height: dst.Height()}
}

func (d *Device) Viewport() ports.Viewport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewport
}

func (d *Device) SetViewport(vp ports.Viewport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.viewport = vp
}

// Invoke runs fn on the device context. Calls must not nest.
func (d *Device) Invoke(fn func()) {
	d.ctx.Lock()
	defer d.ctx.Unlock()
	d.invocations.Add(1)
	fn()
}

// bound returns the draw destination and the viewport.
func (d *Device) bound() (*RenderTarget, ports.Viewport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.target != nil {
		return d.target, d.viewport
	}
	return d.back, d.viewport
}

// BackBuffer returns the back buffer.
func (d *Device) BackBuffer() ports.RenderTarget {
	return d.back
}

// Snapshot copies the back buffer.
func (d *Device) Snapshot() *image.RGBA {
	return d.back.Image()
}

// SavePNG writes the back buffer to path.
func (d *Device) SavePNG(path string) error {
	return gg.SavePNG(path, d.Snapshot())
}

// Stats returns activity counters.
func (d *Device) Stats() Stats {
	return Stats{
		Invocations: d.invocations.Load(),
		Created:     d.created.Load(),
		Disposed:    d.disposed.Load(),
	}
}

var _ ports.GraphicsDevice = (*Device)(nil)
