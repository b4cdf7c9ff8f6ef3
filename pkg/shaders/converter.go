package shaders

import (
	"fmt"
	"image"
	"image/color"
	"sync/atomic"

	"github.com/user/supervideo/pkg/ports"
)

// YUVConverter implements ports.ColorConverter with the YUV shader.
// Convert must run on the device context. The returned texture is reused
// by the next conversion of the same size.
type YUVConverter struct {
	dev         ports.GraphicsDevice
	batch       ports.SpriteBatch
	target      ports.RenderTarget
	conversions atomic.Uint64
}

// NewYUVConverter creates a converter drawing with dev.
func NewYUVConverter(dev ports.GraphicsDevice) *YUVConverter {
	return &YUVConverter{dev: dev, batch: dev.NewSpriteBatch()}
}

// Convert renders luma and chroma into an RGBA render target.
func (c *YUVConverter) Convert(luma, chroma ports.Texture) (ports.Texture, error) {
	if luma == nil || chroma == nil {
		return nil, fmt.Errorf("%w: missing plane", ports.ErrInvalidArgument)
	}
	if luma.Format() != ports.Luma8 || chroma.Format() != ports.Rg16 {
		return nil, fmt.Errorf("%w: planes are %s and %s", ports.ErrInvalidArgument, luma.Format(), chroma.Format())
	}

	w, h := luma.Width(), luma.Height()
	if c.target == nil || c.target.IsDisposed() || c.target.Width() != w || c.target.Height() != h {
		if c.target != nil {
			c.target.Dispose()
		}
		rt, err := c.dev.NewRenderTarget(w, h)
		if err != nil {
			return nil, fmt.Errorf("create render target: %w", err)
		}
		c.target = rt
	}

	prevTarget, prevViewport := c.dev.RenderTarget(), c.dev.Viewport()
	defer func() {
		c.dev.SetRenderTarget(prevTarget)
		c.dev.SetViewport(prevViewport)
	}()

	c.dev.SetRenderTarget(c.target)
	c.batch.Begin(ports.Opaque, &YUV{Chroma: chroma})
	c.batch.Draw(luma, image.Rect(0, 0, w, h), color.White)
	if err := c.batch.End(); err != nil {
		return nil, fmt.Errorf("yuv pass: %w", err)
	}
	c.conversions.Add(1)
	return c.target, nil
}

// Conversions returns the number of completed conversions.
func (c *YUVConverter) Conversions() uint64 {
	return c.conversions.Load()
}

// Dispose frees the cached render target.
func (c *YUVConverter) Dispose() {
	if c.target != nil {
		c.target.Dispose()
		c.target = nil
	}
}

var _ ports.ColorConverter = (*YUVConverter)(nil)
