// Package shaders holds the sprite shaders used by the output strategies.
package shaders

import "github.com/user/supervideo/pkg/ports"

// Sprite samples the source unchanged.
type Sprite struct{}

func (Sprite) Name() string { return "sprite" }

func (Sprite) Shade(s ports.Sampler, src ports.Texture, u, v float64) ports.Vec4 {
	return s.Sample(src, u, v)
}

// ExternalOES samples a decoder surface as stored.
type ExternalOES struct{}

func (ExternalOES) Name() string { return "sprite_oes" }

func (ExternalOES) Shade(s ports.Sampler, src ports.Texture, u, v float64) ports.Vec4 {
	c := s.Sample(src, u, v)
	c[3] = 1
	return c
}

// SwapRB exchanges the red and blue channels.
type SwapRB struct{}

func (SwapRB) Name() string { return "swap_rb" }

func (SwapRB) Shade(s ports.Sampler, src ports.Texture, u, v float64) ports.Vec4 {
	c := s.Sample(src, u, v)
	c[0], c[2] = c[2], c[0]
	return c
}

// chromaScale maps a signed Rg16 component back to an offset of an
// unsigned 8-bit chroma sample.
const chromaScale = 127.0 / 255.0

// YUV rebuilds RGB from a Luma8 source and an Rg16 chroma texture using
// full-range BT.601.
type YUV struct {
	Chroma ports.Texture
}

func (*YUV) Name() string { return "yuv" }

func (y *YUV) Shade(s ports.Sampler, src ports.Texture, u, v float64) ports.Vec4 {
	l := s.Sample(src, u, v)[0]
	c := s.Sample(y.Chroma, u, v)
	cb := c[0] * chromaScale
	cr := c[1] * chromaScale
	return ports.Vec4{
		l + 1.402*cr,
		l - 0.344136*cb - 0.714136*cr,
		l + 1.772*cb,
		1,
	}
}

var (
	_ ports.Shader = Sprite{}
	_ ports.Shader = ExternalOES{}
	_ ports.Shader = SwapRB{}
	_ ports.Shader = (*YUV)(nil)
)
