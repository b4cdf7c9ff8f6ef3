package ports

import (
	"fmt"
	"image"
	"image/color"
)

// SurfaceFormat is the pixel layout of a texture.
type SurfaceFormat int

const (
	// Color is 8-bit RGBA.
	Color SurfaceFormat = iota
	// Bgra32 is 8-bit BGRA.
	Bgra32
	// Luma8 is a single 8-bit channel.
	Luma8
	// Rg16 is two signed normalized 8-bit channels.
	Rg16
	// ExternalOES is a surface written by a decoder. Bytes are sampled as stored.
	ExternalOES
	RgbaAstc4x4
	RgbaAstc5x5
	RgbaAstc6x6
	SRgbaAstc4x4
	SRgbaAstc5x5
	SRgbaAstc6x6
)

func (f SurfaceFormat) String() string {
	switch f {
	case Color:
		return "Color"
	case Bgra32:
		return "Bgra32"
	case Luma8:
		return "Luma8"
	case Rg16:
		return "Rg16"
	case ExternalOES:
		return "ExternalOES"
	case RgbaAstc4x4:
		return "RgbaAstc4x4"
	case RgbaAstc5x5:
		return "RgbaAstc5x5"
	case RgbaAstc6x6:
		return "RgbaAstc6x6"
	case SRgbaAstc4x4:
		return "SRgbaAstc4x4"
	case SRgbaAstc5x5:
		return "SRgbaAstc5x5"
	case SRgbaAstc6x6:
		return "SRgbaAstc6x6"
	default:
		return fmt.Sprintf("SurfaceFormat(%d)", int(f))
	}
}

// IsAstc reports whether the format is ASTC block compressed.
func (f SurfaceFormat) IsAstc() bool {
	return f >= RgbaAstc4x4 && f <= SRgbaAstc6x6
}

// IsSRGB reports whether the format stores sRGB-encoded color.
func (f SurfaceFormat) IsSRGB() bool {
	return f >= SRgbaAstc4x4 && f <= SRgbaAstc6x6
}

// BlockSize returns the compression footprint. Uncompressed formats are 1x1.
func (f SurfaceFormat) BlockSize() (int, int) {
	switch f {
	case RgbaAstc4x4, SRgbaAstc4x4:
		return 4, 4
	case RgbaAstc5x5, SRgbaAstc5x5:
		return 5, 5
	case RgbaAstc6x6, SRgbaAstc6x6:
		return 6, 6
	default:
		return 1, 1
	}
}

// BytesPerPixel returns the size of one pixel, or of one block for ASTC.
func (f SurfaceFormat) BytesPerPixel() int {
	switch f {
	case Luma8:
		return 1
	case Rg16:
		return 2
	case Color, Bgra32, ExternalOES:
		return 4
	default:
		// every ASTC footprint encodes into 128-bit blocks
		return 16
	}
}

// BytesFor returns the payload size of a w x h image in this format.
func (f SurfaceFormat) BytesFor(w, h int) int {
	bw, bh := f.BlockSize()
	return ((w + bw - 1) / bw) * ((h + bh - 1) / bh) * f.BytesPerPixel()
}

// Vec4 is a shader color value with components in shader space.
type Vec4 [4]float64

// Viewport is the drawable region of the current render target.
type Viewport struct {
	X, Y, Width, Height int
}

// Bounds returns the viewport as a rectangle.
func (v Viewport) Bounds() image.Rectangle {
	return image.Rect(v.X, v.Y, v.X+v.Width, v.Y+v.Height)
}

// BlendMode selects how sprite output combines with the target.
type BlendMode int

const (
	// Opaque replaces destination pixels.
	Opaque BlendMode = iota
	// AlphaBlend composites premultiplied source over destination.
	AlphaBlend
)

// Texture is a 2D image owned by the graphics device.
type Texture interface {
	Width() int
	Height() int
	Format() SurfaceFormat

	// SetData replaces the whole payload. len(data) must equal Format().BytesFor(w, h).
	SetData(data []byte) error

	// SetDataRange copies count bytes of data into the payload at offset.
	SetDataRange(data []byte, offset, count int) error

	// GetData copies the payload into dst.
	GetData(dst []byte) error

	Dispose()
	IsDisposed() bool
}

// RenderTarget is a Color texture that can be bound as a draw destination.
type RenderTarget interface {
	Texture
	Clear(c color.Color)
}

// ExternalTexture is a texture whose storage is filled from an
// ExternalSurface rather than by uploads.
type ExternalTexture interface {
	Texture
	// Resize reallocates storage. Contents are undefined afterwards.
	Resize(w, h int)
}

// Sampler reads filtered texels for shaders.
type Sampler interface {
	// Sample returns the texel at normalized coordinates u, v.
	Sample(tex Texture, u, v float64) Vec4
}

// Shader computes one output pixel of a sprite draw.
type Shader interface {
	Name() string
	Shade(s Sampler, src Texture, u, v float64) Vec4
}

// SpriteBatch queues textured quads and draws them on End.
type SpriteBatch interface {
	// Begin starts a batch. A nil shader uses the default sprite shader.
	Begin(blend BlendMode, shader Shader)
	Draw(src Texture, dst image.Rectangle, tint color.Color)
	End() error
}

// GraphicsDevice creates GPU resources and owns the render state.
type GraphicsDevice interface {
	NewTexture(w, h int, format SurfaceFormat) (Texture, error)
	NewRenderTarget(w, h int) (RenderTarget, error)
	NewExternalTexture() (ExternalTexture, error)
	NewSpriteBatch() SpriteBatch

	// RenderTarget returns the bound target, or nil for the back buffer.
	RenderTarget() RenderTarget
	SetRenderTarget(rt RenderTarget)

	Viewport() Viewport
	SetViewport(vp Viewport)

	// Invoke runs fn on the GPU context and waits for it to finish.
	Invoke(fn func())
}

// ColorConverter reconstructs color from a luma texture and an Rg16 chroma texture.
type ColorConverter interface {
	Convert(luma, chroma Texture) (Texture, error)
}
